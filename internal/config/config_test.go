package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LASTFM_API_KEY", "key")
	t.Setenv("LASTFM_API_SECRET", "secret")
	t.Setenv("LASTFM_USERNAME", "someone")
	t.Setenv("LASTFM_PASSWORD", "password")
}

func TestLoad(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LastFM.APIURL != DefaultAPIURL {
		t.Errorf("expected default API URL, got %q", cfg.LastFM.APIURL)
	}
	if cfg.DatetimeFormat != DefaultDatetimeFormat {
		t.Errorf("expected default datetime format, got %q", cfg.DatetimeFormat)
	}

	// Password is hashed at load; the plain text is nowhere in the config.
	if cfg.LastFM.PasswordHash != "5f4dcc3b5aa765d61d8327deb882cf99" {
		t.Errorf("expected MD5 of password, got %q", cfg.LastFM.PasswordHash)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("LASTFM_API_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error for a missing required variable")
	}
	if !strings.Contains(err.Error(), "LASTFM_API_SECRET") {
		t.Errorf("error should name the missing variable, got %q", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LASTFM_API_URL", "http://localhost:9090/2.0/")
	t.Setenv("DATABASE_URL", "/tmp/spinlog-test.db")
	t.Setenv("DATETIME_FORMAT", "2006-01-02")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LastFM.APIURL != "http://localhost:9090/2.0/" {
		t.Errorf("API URL override not applied: %q", cfg.LastFM.APIURL)
	}
	if cfg.DatabaseURL != "/tmp/spinlog-test.db" {
		t.Errorf("database URL override not applied: %q", cfg.DatabaseURL)
	}
	if cfg.DatetimeFormat != "2006-01-02" {
		t.Errorf("datetime format override not applied: %q", cfg.DatetimeFormat)
	}
}

func TestSpotifyEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  SpotifyConfig
		want bool
	}{
		{"all set", SpotifyConfig{ClientID: "id", ClientSecret: "s", RefreshToken: "rt"}, true},
		{"missing refresh token", SpotifyConfig{ClientID: "id", ClientSecret: "s"}, false},
		{"empty", SpotifyConfig{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
