package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"spinlog/internal/config"
)

var (
	agentIntegration string
	agentLogFile     string
	agentLogLevel    string
)

// agentCmd represents the agent command
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the scrobbling agent",
	Long: `Run the scrobbling agent that watches the player and scrobbles to Last.fm.

The agent will:
- Poll the player once a second to detect track and play-state changes
- Track playback time and handle pause/resume correctly
- Push now-playing updates while a track plays
- Scrobble once a track reaches half its length or two minutes
- Queue scrobbles while offline and deliver them when the network returns
- Handle graceful shutdown on SIGINT/SIGTERM

The agent runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for launchd).`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)

	agentCmd.Flags().StringVar(&agentIntegration, "integration", "apple_music", "Player to watch (apple_music or spotify)")
	agentCmd.Flags().StringVar(&agentLogFile, "log-file", "", "Log file path (default: stderr)")
	agentCmd.Flags().StringVar(&agentLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(agentLogFile, agentLogLevel)
	logger.Info().
		Str("version", version).
		Str("integration", agentIntegration).
		Msg("starting spinlog agent")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, st, _, err := buildEngine(ctx, cfg, agentIntegration, true, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("agent error: %w", err)
	}

	logger.Info().Msg("agent stopped")
	return nil
}
