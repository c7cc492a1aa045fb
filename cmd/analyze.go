package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maimood/mood-coach/internal/capture"
	"github.com/maimood/mood-coach/internal/config"
	"github.com/maimood/mood-coach/internal/emotion"
	"github.com/maimood/mood-coach/internal/predictor"
	"github.com/maimood/mood-coach/internal/store"
	"github.com/maimood/mood-coach/internal/store/postgres"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Analyze image or audio files through the inference API",
	Long: `Analyze one or more captured files through the emotion inference API.

By default each file is treated as an image. Use --mode audio for voice
recordings, or --mode both with a single image and --audio to run the
combined analysis. With --save the results are persisted for the user
given by --user (email or display name).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("mode", "image", "Analysis mode: image, audio or both")
	analyzeCmd.Flags().String("audio", "", "Audio file paired with the image (mode both)")
	analyzeCmd.Flags().Bool("save", false, "Persist results to the database")
	analyzeCmd.Flags().String("user", "", "Owner of saved records, by email or display name")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	mode, err := capture.ParseMode(mustGetString(cmd, "mode"))
	if err != nil {
		return err
	}
	audioPath := mustGetString(cmd, "audio")
	save := mustGetBool(cmd, "save")

	if mode == capture.ModeBoth {
		if len(args) != 1 || audioPath == "" {
			return errors.New("mode both requires exactly one image file and --audio")
		}
	}

	client, err := predictor.New(cfg.Inference.BaseURL, cfg.Inference.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create inference client: %w", err)
	}

	var records *postgres.RecordRepository
	var owner *store.User
	if save {
		records, owner, err = openSaveTarget(cmd.Context(), cfg, mustGetString(cmd, "user"))
		if err != nil {
			return err
		}
	}

	var bar *progressbar.ProgressBar
	if len(args) > 1 {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetDescription("Analyzing"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	failures := 0
	for _, path := range args {
		result, fileSize, err := analyzeFile(cmd.Context(), client, mode, path, audioPath)
		if bar != nil {
			bar.Add(1)
			fmt.Println()
		}
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}

		printResult(path, result)

		if save {
			if err := saveResult(cmd.Context(), records, owner, mode, path, fileSize, audioPath != "", result); err != nil {
				failures++
				fmt.Fprintf(os.Stderr, "%s: save failed: %v\n", path, err)
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, len(args))
	}
	return nil
}

func analyzeFile(ctx context.Context, client *predictor.Client, mode capture.Mode, path, audioPath string) (*predictor.Result, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("could not read file: %w", err)
	}

	upload := &predictor.Upload{Name: filepath.Base(path), Data: data}

	switch mode {
	case capture.ModeAudio:
		result, err := client.Analyze(ctx, nil, upload)
		return result, int64(len(data)), err
	case capture.ModeBoth:
		audioData, err := os.ReadFile(audioPath)
		if err != nil {
			return nil, 0, fmt.Errorf("could not read audio file: %w", err)
		}
		audio := &predictor.Upload{Name: filepath.Base(audioPath), Data: audioData}
		result, err := client.Analyze(ctx, upload, audio)
		return result, int64(len(data)), err
	default:
		result, err := client.Analyze(ctx, upload, nil)
		return result, int64(len(data)), err
	}
}

func printResult(path string, result *predictor.Result) {
	line := fmt.Sprintf("%s  %s %s", path, emotion.Emoji(string(result.Emotion)), result.Emotion)
	if result.HasConfidence {
		line += fmt.Sprintf(" (%.0f%%)", result.Confidence*100)
	}
	fmt.Println(line)

	if result.ImageEmotion != "" || result.AudioEmotion != "" {
		fmt.Printf("  image: %s  audio: %s\n", result.ImageEmotion, result.AudioEmotion)
	}
}

// openSaveTarget connects to the database and resolves the record owner.
func openSaveTarget(ctx context.Context, cfg *config.Config, userRef string) (*postgres.RecordRepository, *store.User, error) {
	if userRef == "" {
		return nil, nil, errors.New("--save requires --user")
	}
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required for --save")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	owner, err := lookupUser(ctx, postgres.NewUserRepository(pool), userRef)
	if err != nil {
		return nil, nil, err
	}

	return postgres.NewRecordRepository(pool), owner, nil
}

// lookupUser finds a user by email, or by diacritic-insensitive display name.
func lookupUser(ctx context.Context, users store.UserRepository, ref string) (*store.User, error) {
	var user *store.User
	var err error
	if strings.Contains(ref, "@") {
		user, err = users.GetByEmail(ctx, strings.ToLower(ref))
	} else {
		user, err = users.GetByDisplayName(ctx, ref)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no user matches %q", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	return user, nil
}

func saveResult(ctx context.Context, records *postgres.RecordRepository, owner *store.User, mode capture.Mode, path string, fileSize int64, hasAudio bool, result *predictor.Result) error {
	rec := &store.Record{
		UserID:          owner.ID,
		UserEmail:       owner.Email,
		UserDisplayName: owner.DisplayName,
		Mode:            string(mode),
		Emotion:         string(result.Emotion),
		ImageEmotion:    string(result.ImageEmotion),
		AudioEmotion:    string(result.AudioEmotion),
		Confidence:      result.Confidence,
		HasConfidence:   result.HasConfidence,
		FileName:        filepath.Base(path),
		FileSize:        fileSize,
		FileType:        fileTypeFor(path),
		HasImage:        mode != capture.ModeAudio,
		HasAudio:        mode == capture.ModeAudio || hasAudio,
		Platform:        "cli",
	}
	if result.FaceCoords != nil {
		rec.FaceCoords = &store.FaceCoords{
			X: result.FaceCoords.X,
			Y: result.FaceCoords.Y,
			W: result.FaceCoords.W,
			H: result.FaceCoords.H,
		}
	}

	_, err := records.Save(ctx, rec)
	return err
}

func fileTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".wav":
		return "audio/wav"
	case ".webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}
