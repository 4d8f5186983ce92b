package scrobbler

import (
	"testing"
	"time"
)

func TestThreshold(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     time.Duration
	}{
		{"three minute track", 180 * time.Second, 90 * time.Second},
		{"short track", 30 * time.Second, 15 * time.Second},
		{"long track capped", 20 * time.Minute, 120 * time.Second},
		{"exactly four minutes", 240 * time.Second, 120 * time.Second},
		{"just over cap", 242 * time.Second, 120 * time.Second},
		{"odd duration rounds", 181 * time.Second, 91 * time.Second}, // 90.5 rounds up
		{"unknown duration", 0, 120 * time.Second},
		{"negative duration", -1 * time.Second, 120 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Threshold(tt.duration); got != tt.want {
				t.Errorf("Threshold(%v) = %v, want %v", tt.duration, got, tt.want)
			}
		})
	}
}

func TestShouldScrobble(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		played   time.Duration
		want     bool
	}{
		{"crossed half", 180 * time.Second, 90 * time.Second, true},
		{"just under half", 180 * time.Second, 89 * time.Second, false},
		{"long track at cap", 20 * time.Minute, 120 * time.Second, true},
		{"long track under cap", 20 * time.Minute, 119 * time.Second, false},
		{"unknown duration at default", 0, 120 * time.Second, true},
		{"unknown duration under default", 0, 119 * time.Second, false},
		{"nothing played", 180 * time.Second, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldScrobble(tt.duration, tt.played); got != tt.want {
				t.Errorf("ShouldScrobble(%v, %v) = %v, want %v", tt.duration, tt.played, got, tt.want)
			}
		})
	}
}
