// Package config loads application configuration from a .env file and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"spinlog/pkg/lastfm"
)

// DefaultAPIURL is the Last.fm web service endpoint.
const DefaultAPIURL = "https://ws.audioscrobbler.com/2.0/"

// DefaultDatetimeFormat renders timestamps in CLI and API output.
const DefaultDatetimeFormat = "2006-01-02 15:04:05"

// Config holds application configuration.
type Config struct {
	LastFM  LastFMConfig
	Spotify SpotifyConfig

	// AppToken authenticates requests to the HTTP API.
	AppToken string

	// WebAppURL is the allowed CORS origin for the HTTP API.
	WebAppURL string

	// DatabaseURL is the sqlite database path.
	DatabaseURL string

	// DatetimeFormat is a Go reference layout for rendered timestamps.
	DatetimeFormat string

	// OutputFormat is the template for the now command.
	OutputFormat string

	// OutputWidth fixes the now command's display width; 0 disables it.
	OutputWidth int

	// MarqueeEnabled scrolls now output that exceeds OutputWidth.
	MarqueeEnabled   bool
	MarqueeSpeed     int
	MarqueeSeparator string
}

// LastFMConfig holds Last.fm credentials.
type LastFMConfig struct {
	APIURL    string
	APIKey    string
	APISecret string
	Username  string

	// PasswordHash is the MD5 of the account password. The plain
	// password is hashed at load time and never retained.
	PasswordHash string
}

// SpotifyConfig holds the Spotify OAuth application credentials. All
// fields empty means the Spotify source is disabled.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	RefreshToken string
}

// Enabled reports whether the Spotify source can be used.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != ""
}

// Load reads configuration from .env and the environment, validates the
// required variables, and returns the result. A missing .env file is not
// an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("lastfm_api_url", DefaultAPIURL)
	v.SetDefault("database_url", defaultDatabasePath())
	v.SetDefault("datetime_format", DefaultDatetimeFormat)
	v.SetDefault("output_format", "{{.Artist}} - {{.Name}}")
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", "   ")
	v.AutomaticEnv()

	cfg := &Config{
		LastFM: LastFMConfig{
			APIURL:    v.GetString("lastfm_api_url"),
			APIKey:    v.GetString("lastfm_api_key"),
			APISecret: v.GetString("lastfm_api_secret"),
			Username:  v.GetString("lastfm_username"),
		},
		Spotify: SpotifyConfig{
			ClientID:     v.GetString("spotify_client_id"),
			ClientSecret: v.GetString("spotify_client_secret"),
			RedirectURI:  v.GetString("spotify_redirect_uri"),
			RefreshToken: v.GetString("spotify_refresh_token"),
		},
		AppToken:         v.GetString("app_token"),
		WebAppURL:        v.GetString("web_app_url"),
		DatabaseURL:      v.GetString("database_url"),
		DatetimeFormat:   v.GetString("datetime_format"),
		OutputFormat:     v.GetString("output_format"),
		OutputWidth:      v.GetInt("output_width"),
		MarqueeEnabled:   v.GetBool("marquee_enabled"),
		MarqueeSpeed:     v.GetInt("marquee_speed"),
		MarqueeSeparator: v.GetString("marquee_separator"),
	}

	if password := v.GetString("lastfm_password"); password != "" {
		cfg.LastFM.PasswordHash = lastfm.MD5(password)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"LASTFM_API_KEY", c.LastFM.APIKey},
		{"LASTFM_API_SECRET", c.LastFM.APISecret},
		{"LASTFM_USERNAME", c.LastFM.Username},
		{"LASTFM_PASSWORD", c.LastFM.PasswordHash},
	}
	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: required variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// defaultDatabasePath places the database under the user config
// directory, falling back to the working directory.
func defaultDatabasePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "spinlog.db"
	}
	dir := filepath.Join(homeDir, ".config", "spinlog")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "spinlog.db")
}
