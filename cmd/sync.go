package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"spinlog/internal/backfill"
	"spinlog/internal/config"
	"spinlog/internal/scrobbler"
	"spinlog/internal/store"
)

var (
	syncFrom      string
	syncTo        string
	syncNormalize bool
	syncLogLevel  string
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import your Last.fm listening history into the local store",
	Long: `Fetch your Last.fm listening history and store it locally.

History is fetched newest-first in pages of 200 and deduplicated against
what the store already holds, so re-running sync is always safe. Use
--from and --to to bound the imported window.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncFrom, "from", "", "Oldest date to import (YYYY-MM-DD)")
	syncCmd.Flags().StringVar(&syncTo, "to", "", "Newest date to import (YYYY-MM-DD, default: now)")
	syncCmd.Flags().BoolVar(&syncNormalize, "normalize", false, "Strip noise suffixes from track and album titles")
	syncCmd.Flags().StringVar(&syncLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var opts backfill.Options
	opts.Normalize = syncNormalize
	if syncFrom != "" {
		opts.From, err = time.Parse("2006-01-02", syncFrom)
		if err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if syncTo != "" {
		to, err := time.Parse("2006-01-02", syncTo)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
		opts.To = to.Add(24*time.Hour - time.Second)
	}

	logger := setupLogger("", syncLogLevel)

	// History reads are unsigned; no session needed.
	api, err := newLastfmClient(cfg)
	if err != nil {
		return err
	}
	client := scrobbler.New(api, logger)

	st, err := store.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open scrobble store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := backfill.New(client, st, logger).Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("Fetched %d scrobbles, inserted %d new\n", result.Fetched, result.Inserted)
	return nil
}
