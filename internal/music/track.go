package music

import (
	"context"
	"fmt"
	"time"
)

// Source identifies which player integration produced a snapshot.
type Source string

const (
	SourceAppleMusic Source = "apple_music"
	SourceSpotify    Source = "spotify"
)

// ParseSource converts a CLI/config value into a Source.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceAppleMusic, SourceSpotify:
		return Source(s), nil
	default:
		return "", fmt.Errorf("unknown integration %q (want apple_music or spotify)", s)
	}
}

// TrackSnapshot is a single observation of the player. Snapshots are values
// and are never mutated after the poller returns them.
type TrackSnapshot struct {
	Name   string
	Artist string
	Album  string

	// CleanName and CleanAlbum are the normalized forms of Name and Album,
	// set by the poller via CleanTitle.
	CleanName  string
	CleanAlbum string

	Playing bool

	// Duration is the source-reported track length, or 0 when unknown.
	Duration time.Duration

	Source Source
}

// SameIdentity reports whether two snapshots refer to the same track.
// Identity is the pair (normalized title, artist).
func (t *TrackSnapshot) SameIdentity(name, artist string) bool {
	return t.CleanName == name && t.Artist == artist
}

// DisplayName renders the snapshot for logs and status lines.
func (t *TrackSnapshot) DisplayName() string {
	return t.Name + " by " + t.Artist
}

// Poller produces one snapshot per call from the active source.
//
// A nil snapshot with a nil error means nothing is playing. Pollers must
// respect ctx deadlines; the engine polls with a 3 second budget.
type Poller interface {
	Poll(ctx context.Context) (*TrackSnapshot, error)
}
