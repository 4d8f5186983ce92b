package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spinlog",
	Short: "Last.fm scrobbler for Apple Music and Spotify",
	Long: `spinlog scrobbles your listening to Last.fm.

It watches Apple Music or Spotify for playback, applies Last.fm's
scrobbling rules (half the track or two minutes, whichever comes first),
and keeps a local sqlite archive of everything it delivers.

Run 'spinlog agent' for the background scrobbler, 'spinlog serve' for the
HTTP API, 'spinlog sync' to import your Last.fm history, or 'spinlog now'
to print the current track for a status bar.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
