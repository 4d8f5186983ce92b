package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"spinlog/internal/api"
	"spinlog/internal/backfill"
	"spinlog/internal/config"
)

var (
	serveAddr        string
	serveIntegration string
	serveLogFile     string
	serveLogLevel    string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scrobbling agent with an HTTP API",
	Long: `Run the scrobbling agent and expose it over an HTTP API.

The API serves engine state, scrobble controls, Last.fm passthrough
endpoints, and listening statistics from the local store. All endpoints
except the health check require the bearer token from APP_TOKEN.

Scrobbling starts disabled; enable it with POST /scrobble/toggle/.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveIntegration, "integration", "apple_music", "Player to watch (apple_music or spotify)")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Log file path (default: stderr)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.AppToken == "" {
		return fmt.Errorf("APP_TOKEN must be set to run the HTTP API")
	}

	logger := setupLogger(serveLogFile, serveLogLevel)
	logger.Info().
		Str("version", version).
		Str("addr", serveAddr).
		Str("integration", serveIntegration).
		Msg("starting spinlog server")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Scrobbling starts disabled when driven over the API.
	eng, st, client, err := buildEngine(ctx, cfg, serveIntegration, false, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	server := api.New(api.Options{
		Engine:         eng,
		Client:         client,
		Stats:          st,
		Backfill:       backfill.New(client, st, logger),
		Token:          cfg.AppToken,
		AllowedOrigin:  cfg.WebAppURL,
		DatetimeFormat: cfg.DatetimeFormat,
		Logger:         logger,
	})

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- eng.Run(ctx)
	}()

	if err := server.ListenAndServe(ctx, serveAddr); err != nil && ctx.Err() == nil {
		return fmt.Errorf("http server error: %w", err)
	}

	if err := <-engineDone; err != nil && ctx.Err() == nil {
		return fmt.Errorf("engine error: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}
