package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maimood/mood-coach/internal/config"
	"github.com/maimood/mood-coach/internal/predictor"
	"github.com/maimood/mood-coach/internal/recommend"
	"github.com/maimood/mood-coach/internal/store/postgres"
	"github.com/maimood/mood-coach/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Mood Coach web server.
The server provides the capture/analyze API, account management,
mood history and activity recommendations.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (overrides SESSION_SECRET)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	// Flags override the environment.
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Web.SessionSecret = secret
	}

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	client, err := predictor.New(cfg.Inference.BaseURL, cfg.Inference.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create inference client: %w", err)
	}
	fmt.Printf("Inference API: %s\n", cfg.Inference.BaseURL)

	recommender := recommend.NewServiceFromConfig(cmd.Context(), cfg)
	fmt.Printf("Recommendation provider: %s\n", recommender.Provider())

	repos := web.Repositories{
		Users:    postgres.NewUserRepository(pool),
		Records:  postgres.NewRecordRepository(pool),
		Sessions: postgres.NewSessionRepository(pool),
		Resets:   postgres.NewResetTokenRepository(pool),
	}

	server := web.NewServer(cfg, client, recommender, repos)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Mood Coach on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
