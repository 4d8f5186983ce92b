package tui

import (
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{59 * time.Second, "00:59"},
		{90 * time.Second, "01:30"},
		{1 * time.Hour, "1:00:00"},
		{-5 * time.Second, "00:00"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 20, "short"},
		{"a very long track title indeed", 10, "a very ..."},
		{"exactly ten", 11, "exactly ten"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestBuildProgressBar(t *testing.T) {
	full := buildProgressBar(100*time.Second, 100*time.Second, 10)
	if strings.Count(full, "█") != 10 {
		t.Errorf("full bar should be entirely filled: %q", full)
	}

	empty := buildProgressBar(0, 100*time.Second, 10)
	if strings.Count(empty, "░") != 10 {
		t.Errorf("empty bar should be entirely unfilled: %q", empty)
	}

	unknown := buildProgressBar(30*time.Second, 0, 10)
	if unknown != strings.Repeat("-", 10) {
		t.Errorf("unknown duration should render dashes: %q", unknown)
	}

	over := buildProgressBar(200*time.Second, 100*time.Second, 10)
	if strings.Count(over, "█") != 10 {
		t.Errorf("overplayed bar should clamp to full: %q", over)
	}
}
