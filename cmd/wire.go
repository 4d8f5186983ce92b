package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"spinlog/internal/config"
	"spinlog/internal/engine"
	"spinlog/internal/music"
	"spinlog/internal/netcheck"
	"spinlog/internal/scrobbler"
	"spinlog/internal/store"
	"spinlog/pkg/lastfm"
)

// newLastfmClient builds the SDK client from configuration.
func newLastfmClient(cfg *config.Config) (*lastfm.Client, error) {
	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:    cfg.LastFM.APIKey,
		APISecret: cfg.LastFM.APISecret,
		Username:  cfg.LastFM.Username,
		BaseURL:   cfg.LastFM.APIURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lastfm client: %w", err)
	}
	return client, nil
}

// newScrobbleClient builds and authenticates the scrobbling facade.
func newScrobbleClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*scrobbler.Client, error) {
	api, err := newLastfmClient(cfg)
	if err != nil {
		return nil, err
	}

	client := scrobbler.New(api, logger)
	if err := client.Authenticate(ctx, cfg.LastFM.Username, cfg.LastFM.PasswordHash); err != nil {
		return nil, fmt.Errorf("lastfm authentication failed: %w", err)
	}
	return client, nil
}

// newPoller builds the player poller for the chosen integration.
func newPoller(cfg *config.Config, integration string, logger zerolog.Logger) (music.Poller, error) {
	source, err := music.ParseSource(integration)
	if err != nil {
		return nil, err
	}

	switch source {
	case music.SourceAppleMusic:
		return music.NewAppleMusicPoller(logger), nil
	case music.SourceSpotify:
		if !cfg.Spotify.Enabled() {
			return nil, fmt.Errorf("spotify integration requires SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, and SPOTIFY_REFRESH_TOKEN")
		}
		return music.NewSpotifyPoller(music.SpotifyCredentials{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RedirectURI:  cfg.Spotify.RedirectURI,
			RefreshToken: cfg.Spotify.RefreshToken,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown integration %q", integration)
	}
}

// buildEngine wires the poller, facade, probe, and store into an engine.
// The caller owns closing the returned store.
func buildEngine(ctx context.Context, cfg *config.Config, integration string, scrobbleEnabled bool, logger zerolog.Logger) (*engine.Engine, *store.Store, *scrobbler.Client, error) {
	poller, err := newPoller(cfg, integration, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := newScrobbleClient(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	st, err := store.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open scrobble store: %w", err)
	}

	eng := engine.New(engine.Options{
		Poller:          poller,
		Client:          client,
		Probe:           netcheck.NewHTTPProbe(),
		Store:           st,
		Logger:          logger,
		ScrobbleEnabled: scrobbleEnabled,
	})
	return eng, st, client, nil
}
