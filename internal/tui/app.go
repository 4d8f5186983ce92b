// Package tui renders the engine state as a terminal dashboard.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"

	"spinlog/internal/engine"
	"spinlog/internal/scrobbler"
)

const maxRecentTracks = 5

// Config holds TUI configuration options.
type Config struct {
	RefreshRate time.Duration
}

// DefaultConfig returns the default TUI configuration.
func DefaultConfig() Config {
	return Config{RefreshRate: 500 * time.Millisecond}
}

// App is the TUI application for displaying scrobbling state.
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	progress   *tview.TextView
	scrobble   *tview.TextView
	recent     *tview.TextView
	status     *tview.TextView

	config Config
	engine *engine.Engine

	sessionStart time.Time

	// Last-rendered content for change detection.
	lastNowPlaying string
	lastProgress   string
	lastScrobble   string
	lastRecent     string

	// Cached progress bar width to stabilize change detection.
	// Updated only when GetInnerRect returns a positive value.
	lastBarWidth int

	cancelFunc context.CancelFunc
}

// New creates a TUI application bound to an engine.
func New(eng *engine.Engine) *App {
	return NewWithConfig(eng, DefaultConfig())
}

// NewWithConfig creates a TUI application with the given config.
func NewWithConfig(eng *engine.Engine, cfg Config) *App {
	a := &App{
		app:          tview.NewApplication(),
		config:       cfg,
		engine:       eng,
		sessionStart: time.Now(),
	}
	a.setupUI()
	return a
}

// setupUI creates the UI layout.
func (a *App) setupUI() {
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	a.scrobble = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.scrobble.SetBorder(true).
		SetTitle(" Scrobble ").
		SetTitleAlign(tview.AlignLeft)

	a.recent = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.recent.SetBorder(true).
		SetTitle(" Recent ").
		SetTitleAlign(tview.AlignLeft)

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]q:quit  s:toggle scrobbling  f:force scrobble[-]")

	bottomRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.scrobble, 0, 1, false).
		AddItem(a.recent, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 3, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(bottomRow, 9, 1, false).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)
	a.app.SetRoot(flex, true)
}

// handleKeyEvent processes keyboard input.
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		a.app.Stop()
		return nil
	case 's', 'S':
		a.engine.ToggleScrobbling()
		return nil
	case 'f', 'F':
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			a.engine.ForceScrobble(ctx)
		}()
		return nil
	}
	return event
}

// Run displays the dashboard until the context is cancelled or the user
// quits. The engine loop runs elsewhere; the TUI only reads views.
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)

	go a.refreshLoop(ctx)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// refreshLoop is the sole source of redraws.
func (a *App) refreshLoop(ctx context.Context) {
	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 500 * time.Millisecond
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			view := a.engine.View()
			stats := a.engine.Ledger().Stats()
			recent := a.engine.Ledger().Delivered()
			a.refresh(view, stats, recent)
		}
	}
}

// refresh updates all UI components.
func (a *App) refresh(view engine.View, stats engine.Stats, recent []scrobbler.Delivered) {
	a.app.QueueUpdateDraw(func() {
		a.updateNowPlaying(view)
		a.updateProgress(view)
		a.updateScrobbleStatus(view, stats)
		a.updateRecentTracks(recent)
	})
}

func (a *App) updateNowPlaying(view engine.View) {
	var text string

	if view.Track == nil {
		text = "\n\n[gray]No track playing[-]"
	} else {
		snap := view.Track.Snapshot
		var sb strings.Builder
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(snap.Name)))
		sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(snap.Artist)))
		album := snap.Album
		if view.Album != nil && view.Album.Title != "" {
			album = view.Album.Title
		}
		sb.WriteString(fmt.Sprintf("[gray]%s[-]", tview.Escape(album)))

		stateIcon := "[green]▶[-]"
		if !snap.Playing {
			stateIcon = "[yellow]⏸[-]"
		}
		sb.WriteString(fmt.Sprintf("\n\n%s", stateIcon))
		text = sb.String()
	}

	if text != a.lastNowPlaying {
		a.lastNowPlaying = text
		a.nowPlaying.SetText(text)
	}
}

func (a *App) updateProgress(view engine.View) {
	var text string

	if view.Track != nil {
		_, _, width, _ := a.progress.GetInnerRect()
		barWidth := width - 14 // Account for time display
		// Only update cached width when GetInnerRect returns a positive
		// value, avoiding flicker from transient zero-width during layout.
		if barWidth > 0 {
			a.lastBarWidth = barWidth
		}
		if a.lastBarWidth < 10 {
			a.lastBarWidth = 10
		}

		played := time.Duration(view.Track.TimePlayed) * time.Second
		duration := view.Track.Snapshot.Duration
		bar := buildProgressBar(played, duration, a.lastBarWidth)
		text = fmt.Sprintf("%s %s %s", formatDuration(played), bar, formatDuration(duration))
	}

	if text != a.lastProgress {
		a.lastProgress = text
		a.progress.SetText(text)
	}
}

func (a *App) updateScrobbleStatus(view engine.View, stats engine.Stats) {
	var sb strings.Builder

	switch {
	case view.Track == nil:
		sb.WriteString("[gray]No track[-]\n")
	case view.Track.Scrobbled:
		sb.WriteString("[green]✓ Scrobbled[-]\n")
	case view.Track.PendingDelivery:
		sb.WriteString("[red]Pending (no internet)[-]\n")
	default:
		played := time.Duration(view.Track.TimePlayed) * time.Second
		threshold := scrobbler.Threshold(view.Track.Snapshot.Duration)
		progress := float64(played) / float64(threshold) * 100
		if progress > 100 {
			progress = 100
		}

		barWidth := 10
		filled := int(progress / 100 * float64(barWidth))
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		sb.WriteString(fmt.Sprintf("[yellow]%s %.0f%%[-]\n", bar, progress))
	}

	enabled := "[green]on[-]"
	if !view.ScrobbleEnabled {
		enabled = "[red]off[-]"
	}
	sb.WriteString(fmt.Sprintf("Scrobbling: %s\n", enabled))
	sb.WriteString(fmt.Sprintf("Status: %s\n", view.Status))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Delivered: %d\n", stats.Total))
	sb.WriteString(fmt.Sprintf("Pending: %d\n", stats.Pending))
	sb.WriteString(fmt.Sprintf("Session: %s", formatDuration(time.Since(a.sessionStart))))

	text := sb.String()
	if text != a.lastScrobble {
		a.lastScrobble = text
		a.scrobble.SetText(text)
	}
}

func (a *App) updateRecentTracks(recent []scrobbler.Delivered) {
	var sb strings.Builder

	if len(recent) == 0 {
		sb.WriteString("[gray]No scrobbles yet[-]")
	} else {
		// Most recent first, capped to the panel height.
		shown := 0
		for i := len(recent) - 1; i >= 0 && shown < maxRecentTracks; i-- {
			if shown > 0 {
				sb.WriteString("\n")
			}
			d := recent[i]
			sb.WriteString("[green]✓[-] ")
			sb.WriteString(fmt.Sprintf("[white]%s[-]", tview.Escape(truncate(d.Name, 20))))
			shown++
		}
	}

	text := sb.String()
	if text != a.lastRecent {
		a.lastRecent = text
		a.recent.SetText(text)
	}
}

// Stop stops the TUI application.
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

// truncate shortens s to at most width display cells.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// buildProgressBar creates a text-based progress bar.
func buildProgressBar(position, duration time.Duration, width int) string {
	if duration <= 0 || width <= 0 {
		return strings.Repeat("-", max(width, 0))
	}

	progress := float64(position) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	return "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"
}

// formatDuration formats a duration as MM:SS or H:MM:SS for longer spans.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
