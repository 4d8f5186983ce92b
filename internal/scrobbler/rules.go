package scrobbler

import (
	"math"
	"time"
)

// DefaultThreshold is the play time after which a track with unknown
// duration is scrobbled. It is also the cap for long tracks.
const DefaultThreshold = 120 * time.Second

// Threshold returns the play time after which a track should be scrobbled:
// half the track's duration, rounded to whole seconds, capped at
// DefaultThreshold. Tracks with unknown duration use DefaultThreshold.
func Threshold(trackDuration time.Duration) time.Duration {
	if trackDuration <= 0 {
		return DefaultThreshold
	}

	half := time.Duration(math.Round(trackDuration.Seconds()/2)) * time.Second
	if half > DefaultThreshold {
		return DefaultThreshold
	}
	return half
}

// ShouldScrobble reports whether a track that has been playing for
// playedDuration has crossed its scrobble threshold.
func ShouldScrobble(trackDuration, playedDuration time.Duration) bool {
	return playedDuration >= Threshold(trackDuration)
}
