package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/maimood/mood-coach/internal/config"
	"github.com/maimood/mood-coach/internal/emotion"
	"github.com/maimood/mood-coach/internal/history"
	"github.com/maimood/mood-coach/internal/store/postgres"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <user>",
	Short: "Show a user's mood timeline and stats",
	Long: `Show the recent mood timeline and aggregate stats for a user.
The user can be given by email or by display name; display names match
regardless of accents and capitalization.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", history.MaxEntries, "Maximum number of timeline entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	limit := mustGetInt(cmd, "limit")
	if limit <= 0 || limit > history.MaxEntries {
		limit = history.MaxEntries
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := cmd.Context()

	user, err := lookupUser(ctx, postgres.NewUserRepository(pool), args[0])
	if err != nil {
		return err
	}

	records := postgres.NewRecordRepository(pool)
	recs, err := records.ListByUser(ctx, user.ID, limit)
	if err != nil {
		return fmt.Errorf("could not load records: %w", err)
	}
	total, err := records.CountByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("could not count records: %w", err)
	}

	fmt.Printf("Mood history for %s <%s>\n\n", user.DisplayName, user.Email)

	if len(recs) == 0 {
		fmt.Println("No records yet.")
		return nil
	}

	for _, rec := range recs {
		line := fmt.Sprintf("%s  %s %-9s",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			emotion.Emoji(rec.Emotion),
			rec.Emotion,
		)
		if rec.HasConfidence {
			line += fmt.Sprintf(" %3.0f%%", rec.Confidence*100)
		} else {
			line += "     "
		}
		line += fmt.Sprintf("  [%s]", rec.Mode)
		fmt.Println(line)
	}

	stats := history.Compute(recs, time.Now())
	stats.Total = total

	fmt.Println()
	fmt.Printf("Total records:      %d\n", stats.Total)
	fmt.Printf("Last 7 days:        %d\n", stats.LastWeek)
	fmt.Printf("Most common mood:   %s %s\n", emotion.Emoji(string(stats.MostCommonEmotion)), stats.MostCommonEmotion)
	fmt.Printf("Average confidence: %.1f\n", stats.AverageConfidence)
	fmt.Printf("Streak:             %d day(s)\n", stats.StreakDays)

	return nil
}
