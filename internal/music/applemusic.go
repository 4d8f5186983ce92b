package music

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Apple Music briefly reports this placeholder while buffering a stream.
const connectingPlaceholder = "Connecting…"

// AppleScript error codes that mean "nothing to report", not failure.
const (
	errCodeNoCurrentTrack    = "-1728"
	errCodeInvalidConnection = "-609"
)

// AppleMusicPoller reads the currently playing track from the macOS Music
// app through osascript.
type AppleMusicPoller struct {
	logger zerolog.Logger
}

// NewAppleMusicPoller creates an Apple Music poller.
func NewAppleMusicPoller(logger zerolog.Logger) *AppleMusicPoller {
	return &AppleMusicPoller{
		logger: logger.With().Str("component", "applemusic").Logger(),
	}
}

// pollScript checks that Music is running and reads the current track in a
// single osascript invocation, avoiding a second subprocess spawn.
const pollScript = `
tell application "System Events"
	if not ((name of processes) contains "Music") then
		return "not_running"
	end if
end tell
tell application "Music"
	if player state is stopped then
		return "stopped"
	else
		set trackName to name of current track
		set trackArtist to artist of current track
		set trackAlbum to album of current track
		set trackDuration to duration of current track
		set playerState to player state as string

		return trackName & "|||" & trackArtist & "|||" & trackAlbum & "|||" & trackDuration & "|||" & playerState
	end if
end tell`

// Poll returns the current snapshot, or nil when nothing qualifies.
// Scripting errors and timeouts are logged and reported as "nothing
// playing"; they never propagate to the engine.
func (p *AppleMusicPoller) Poll(ctx context.Context) (*TrackSnapshot, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", pollScript)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr := string(exitErr.Stderr)
			if strings.Contains(stderr, errCodeNoCurrentTrack) || strings.Contains(stderr, errCodeInvalidConnection) {
				return nil, nil
			}
			p.logger.Info().Str("stderr", strings.TrimSpace(stderr)).Msg("osascript error")
			return nil, nil
		}
		p.logger.Info().Err(err).Msg("Failed to run osascript")
		return nil, nil
	}

	result := strings.TrimSpace(string(output))
	if result == "not_running" || result == "stopped" {
		return nil, nil
	}

	snap, err := parsePollOutput(result)
	if err != nil {
		p.logger.Info().Err(err).Msg("Unparseable track output")
		return nil, nil
	}

	// The transient buffering placeholder and artist-less tracks never
	// become engine state.
	if snap.Name == connectingPlaceholder || snap.Artist == "" {
		return nil, nil
	}

	snap.CleanName = CleanTitle(snap.Name)
	snap.CleanAlbum = CleanTitle(snap.Album)
	return snap, nil
}

// parsePollOutput parses the delimited fields returned by pollScript.
func parsePollOutput(output string) (*TrackSnapshot, error) {
	parts := strings.Split(output, "|||")
	if len(parts) != 5 {
		return nil, fmt.Errorf("expected 5 parts, got %d: %q", len(parts), output)
	}

	durationStr := strings.TrimSpace(parts[3])
	stateStr := strings.TrimSpace(parts[4])

	// The Music app reports duration in seconds as a float.
	durationSec, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration %q: %w", durationStr, err)
	}

	var playing bool
	switch stateStr {
	case "playing":
		playing = true
	case "paused":
		playing = false
	default:
		return nil, fmt.Errorf("unknown player state: %q", stateStr)
	}

	return &TrackSnapshot{
		Name:     strings.TrimSpace(parts[0]),
		Artist:   strings.TrimSpace(parts[1]),
		Album:    strings.TrimSpace(parts[2]),
		Playing:  playing,
		Duration: time.Duration(durationSec * float64(time.Second)),
		Source:   SourceAppleMusic,
	}, nil
}

// Play resumes playback in the Music app.
func (p *AppleMusicPoller) Play(ctx context.Context) error {
	return p.run(ctx, `tell application "Music" to play`)
}

// Pause pauses playback in the Music app.
func (p *AppleMusicPoller) Pause(ctx context.Context) error {
	return p.run(ctx, `tell application "Music" to pause`)
}

// PlayPause toggles between play and pause.
func (p *AppleMusicPoller) PlayPause(ctx context.Context) error {
	return p.run(ctx, `tell application "Music" to playpause`)
}

// NextTrack skips to the next track.
func (p *AppleMusicPoller) NextTrack(ctx context.Context) error {
	return p.run(ctx, `tell application "Music" to next track`)
}

// PreviousTrack goes back to the previous track.
func (p *AppleMusicPoller) PreviousTrack(ctx context.Context) error {
	return p.run(ctx, `tell application "Music" to back track`)
}

func (p *AppleMusicPoller) run(ctx context.Context, script string) error {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("osascript failed: %w", err)
	}
	return nil
}
