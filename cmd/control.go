package cmd

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"spinlog/internal/music"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Resume playback in Apple Music",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlayer(cmd, func(ctx context.Context, p *music.AppleMusicPoller) error {
			return p.Play(ctx)
		})
	},
}

// pauseCmd represents the pause command
var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback in Apple Music",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlayer(cmd, func(ctx context.Context, p *music.AppleMusicPoller) error {
			return p.Pause(ctx)
		})
	},
}

// playpauseCmd represents the playpause command
var playpauseCmd = &cobra.Command{
	Use:   "playpause",
	Short: "Toggle play/pause in Apple Music",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlayer(cmd, func(ctx context.Context, p *music.AppleMusicPoller) error {
			return p.PlayPause(ctx)
		})
	},
}

// nextCmd represents the next command
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to the next track in Apple Music",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlayer(cmd, func(ctx context.Context, p *music.AppleMusicPoller) error {
			return p.NextTrack(ctx)
		})
	},
}

// prevCmd represents the prev command
var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to the previous track in Apple Music",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlayer(cmd, func(ctx context.Context, p *music.AppleMusicPoller) error {
			return p.PreviousTrack(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(playpauseCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
}

func withPlayer(cmd *cobra.Command, fn func(context.Context, *music.AppleMusicPoller) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	return fn(ctx, music.NewAppleMusicPoller(zerolog.Nop()))
}
