package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"spinlog/internal/config"
	"spinlog/internal/music"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the currently playing track",
	Long: `Query the player and display the currently playing track.

The output format is a Go template, configurable via OUTPUT_FORMAT or the
--format flag. Available fields: .Name, .Artist, .Album

Exit codes:
  0 - Track is currently playing
  1 - No track playing, paused, or player not running`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().StringVar(&nowIntegration, "integration", "apple_music", "Player to query (apple_music or spotify)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	nowCmd.Flags().Bool("marquee", false, "Enable marquee scrolling for long text (overrides config)")
}

var nowIntegration string

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}

	poller, err := newPoller(cfg, nowIntegration, zerolog.Nop())
	if err != nil {
		return err
	}

	snap, err := poller.Poll(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current track: %w", err)
	}

	// Nothing playing or paused: exit 1 so status bars can hide the segment.
	if snap == nil || !snap.Playing {
		os.Exit(1)
		return nil
	}

	output, err := formatTrack(snap, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	marquee, _ := cmd.Flags().GetBool("marquee")
	if !marquee && !cmd.Flags().Changed("marquee") {
		marquee = cfg.MarqueeEnabled
	}

	if width > 0 {
		if marquee {
			output = marqueeText(output, width, cfg.MarqueeSpeed, cfg.MarqueeSeparator)
		} else {
			output = padToWidth(output, width)
		}
	}

	fmt.Println(output)
	return nil
}

// formatTrack applies the template to the track data
func formatTrack(snap *music.TrackSnapshot, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, snap); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width, measured in
// display columns so emoji and CJK characters count double.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)
	if currentWidth == width {
		return text
	}
	if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	ellipsis := "..."
	ellipsisWidth := runewidth.StringWidth(ellipsis)
	if width <= ellipsisWidth {
		return runewidth.Truncate(ellipsis, width, "")
	}

	result := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis

	// Truncation can land short of the target when it splits before a
	// wide rune; pad back out to the exact width.
	if resultWidth := runewidth.StringWidth(result); resultWidth < width {
		return result + strings.Repeat(" ", width-resultWidth)
	}
	return result
}

// marqueeText renders a scrolling window over text that exceeds width.
// The scroll position derives from the wall clock (speed columns per
// second), so repeated invocations from a status bar advance the text
// without any state between calls.
func marqueeText(text string, width int, speed int, separator string) string {
	if width <= 0 {
		return text
	}
	if runewidth.StringWidth(text) <= width {
		return padToWidth(text, width)
	}

	// Doubling the text with a separator makes the loop seamless.
	extended := []rune(text + separator + text)
	total := len(extended)
	position := int(time.Now().Unix()*int64(speed)) % total

	var result []rune
	resultWidth := 0
	for i := 0; i < total && resultWidth < width; i++ {
		r := extended[(position+i)%total]
		rw := runewidth.RuneWidth(r)
		if resultWidth+rw > width {
			break
		}
		result = append(result, r)
		resultWidth += rw
	}

	if resultWidth < width {
		return string(result) + strings.Repeat(" ", width-resultWidth)
	}
	return string(result)
}
