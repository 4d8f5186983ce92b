package music

import (
	"testing"
	"time"
)

func TestParsePollOutput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *TrackSnapshot
		wantErr bool
	}{
		{
			name:  "playing track",
			input: "Yesterday|||The Beatles|||Help!|||125.5|||playing",
			want: &TrackSnapshot{
				Name:     "Yesterday",
				Artist:   "The Beatles",
				Album:    "Help!",
				Playing:  true,
				Duration: time.Duration(125.5 * float64(time.Second)),
				Source:   SourceAppleMusic,
			},
		},
		{
			name:  "paused track",
			input: "Let It Be|||The Beatles|||Let It Be|||243|||paused",
			want: &TrackSnapshot{
				Name:     "Let It Be",
				Artist:   "The Beatles",
				Album:    "Let It Be",
				Playing:  false,
				Duration: 243 * time.Second,
				Source:   SourceAppleMusic,
			},
		},
		{
			name:    "too few parts",
			input:   "Yesterday|||The Beatles",
			wantErr: true,
		},
		{
			name:    "bad duration",
			input:   "Yesterday|||The Beatles|||Help!|||abc|||playing",
			wantErr: true,
		},
		{
			name:    "unknown state",
			input:   "Yesterday|||The Beatles|||Help!|||125|||buffering",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePollOutput(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePollOutput: %v", err)
			}
			if *got != *tt.want {
				t.Errorf("parsePollOutput(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSource(t *testing.T) {
	if _, err := ParseSource("apple_music"); err != nil {
		t.Errorf("apple_music should parse: %v", err)
	}
	if _, err := ParseSource("spotify"); err != nil {
		t.Errorf("spotify should parse: %v", err)
	}
	if _, err := ParseSource("winamp"); err == nil {
		t.Error("expected error for unknown integration")
	}
}
