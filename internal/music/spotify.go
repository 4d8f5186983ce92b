package music

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	spotifyTokenURL          = "https://accounts.spotify.com/api/token"
	spotifyCurrentlyPlaying  = "https://api.spotify.com/v1/me/player/currently-playing"
	spotifyAuthURL           = "https://accounts.spotify.com/authorize"
	spotifyPollerHTTPTimeout = 5 * time.Second
)

// SpotifyCredentials holds the OAuth material for the Spotify Web API.
// The refresh token comes from a one-time authorization flow done outside
// this process; the poller only ever exchanges it for access tokens.
type SpotifyCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	RefreshToken string
}

// SpotifyPoller reads the currently playing track from the Spotify Web API.
type SpotifyPoller struct {
	client *http.Client
	logger zerolog.Logger

	// playerURL is overridable in tests.
	playerURL string
}

// NewSpotifyPoller creates a Spotify poller. The returned poller owns an
// HTTP client that transparently refreshes the access token.
func NewSpotifyPoller(creds SpotifyCredentials, logger zerolog.Logger) *SpotifyPoller {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	token := &oauth2.Token{RefreshToken: creds.RefreshToken}
	client := conf.Client(context.Background(), token)
	client.Timeout = spotifyPollerHTTPTimeout

	return &SpotifyPoller{
		client:    client,
		logger:    logger.With().Str("component", "spotify").Logger(),
		playerURL: spotifyCurrentlyPlaying,
	}
}

// currentlyPlayingResponse mirrors the fields we need from the Spotify
// currently-playing payload.
type currentlyPlayingResponse struct {
	Item struct {
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Name string `json:"name"`
		} `json:"album"`
		DurationMs int `json:"duration_ms"`
	} `json:"item"`
	IsPlaying bool `json:"is_playing"`
}

// Poll returns the current snapshot, or nil when nothing is playing.
// Remote errors are logged and reported as "nothing playing".
func (p *SpotifyPoller) Poll(ctx context.Context) (*TrackSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.playerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Info().Err(err).Msg("Spotify request failed")
		return nil, nil
	}
	defer resp.Body.Close()

	// 204 means no active playback.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.logger.Info().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Spotify API error")
		return nil, nil
	}

	var payload currentlyPlayingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		p.logger.Info().Err(err).Msg("Failed to decode Spotify response")
		return nil, nil
	}

	if payload.Item.Name == "" || len(payload.Item.Artists) == 0 {
		return nil, nil
	}

	snap := &TrackSnapshot{
		Name:     payload.Item.Name,
		Artist:   payload.Item.Artists[0].Name,
		Album:    payload.Item.Album.Name,
		Playing:  payload.IsPlaying,
		Duration: time.Duration(payload.Item.DurationMs) * time.Millisecond,
		Source:   SourceSpotify,
	}
	snap.CleanName = CleanTitle(snap.Name)
	snap.CleanAlbum = CleanTitle(snap.Album)
	return snap, nil
}
