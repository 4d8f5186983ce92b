package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"spinlog/internal/config"
	"spinlog/internal/tui"
)

var tuiIntegration string

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the scrobbling agent with a terminal dashboard",
	Long: `Run the scrobbling agent with a terminal dashboard.

The dashboard shows the currently playing track, scrobble progress
towards the threshold, pending deliveries, and the session's scrobbles.

Keys:
  q - quit
  s - toggle scrobbling on/off
  f - force-scrobble the current track`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVar(&tuiIntegration, "integration", "apple_music", "Player to watch (apple_music or spotify)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The dashboard owns the terminal; logs would tear it up.
	logger := setupLogger("/dev/null", "error")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, st, _, err := buildEngine(ctx, cfg, tuiIntegration, true, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	go func() {
		_ = eng.Run(ctx)
	}()

	app := tui.New(eng)
	defer app.Stop()
	return app.Run(ctx)
}
