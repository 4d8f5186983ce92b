package scrobbler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"spinlog/internal/music"
	"spinlog/pkg/lastfm"
)

// Per-call deadlines. Scrobble delivery gets a longer budget because the
// engine retries pending items rather than blocking on a slow submit.
const (
	nowPlayingTimeout = 3 * time.Second
	readTimeout       = 5 * time.Second
	scrobbleTimeout   = 10 * time.Second
)

// Outcome classifies the result of a delivery attempt.
type Outcome int

const (
	// Ok means Last.fm accepted the submission.
	Ok Outcome = iota
	// Transient means the attempt failed but is worth retrying: network
	// errors, timeouts, and the API's own temporary failure codes.
	Transient
	// Permanent means retrying cannot help: bad credentials, invalid
	// signature, suspended key. The caller should stop submitting.
	Permanent
)

func (o Outcome) String() string {
	switch o {
	case Ok:
		return "ok"
	case Transient:
		return "transient"
	default:
		return "permanent"
	}
}

// Delivered records one accepted scrobble.
type Delivered struct {
	Name   string
	Artist string
	Album  string
	At     time.Time
}

// Client is the agent-facing facade over the Last.fm SDK. It owns per-call
// deadlines and error classification so callers never see raw SDK errors.
type Client struct {
	api    *lastfm.Client
	logger zerolog.Logger
}

// New wraps an SDK client.
func New(api *lastfm.Client, logger zerolog.Logger) *Client {
	return &Client{
		api:    api,
		logger: logger.With().Str("component", "scrobbler").Logger(),
	}
}

// Authenticate establishes an API session from a username and MD5 password
// hash. Call once at startup, before any delivery.
func (c *Client) Authenticate(ctx context.Context, username, passwordHash string) error {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	session, err := c.api.Auth().GetMobileSession(ctx, username, passwordHash)
	if err != nil {
		return err
	}

	c.api.SetSessionKey(session.Key)
	c.logger.Info().Str("user", session.Username).Msg("authenticated with Last.fm")
	return nil
}

// UpdateNowPlaying reports the snapshot as the currently playing track.
// Failures are logged and classified; now-playing updates are never retried.
func (c *Client) UpdateNowPlaying(ctx context.Context, snap *music.TrackSnapshot) Outcome {
	ctx, cancel := context.WithTimeout(ctx, nowPlayingTimeout)
	defer cancel()

	_, err := c.api.Scrobble().UpdateNowPlaying(ctx, lastfm.Track{
		Artist:   lastfmFriendly(snap.Artist),
		Track:    lastfmFriendly(snap.CleanName),
		Album:    lastfmFriendly(snap.CleanAlbum),
		Duration: int(snap.Duration.Seconds()),
	})
	if err != nil {
		outcome := classify(err)
		c.logger.Debug().Err(err).Stringer("outcome", outcome).Msg("now playing update failed")
		return outcome
	}
	return Ok
}

// Scrobble submits one play of the snapshot, timestamped at. On success the
// returned Delivered record describes what Last.fm accepted.
func (c *Client) Scrobble(ctx context.Context, snap *music.TrackSnapshot, at time.Time) (Delivered, Outcome) {
	ctx, cancel := context.WithTimeout(ctx, scrobbleTimeout)
	defer cancel()

	resp, err := c.api.Scrobble().Scrobble(ctx, lastfm.Track{
		Artist:   lastfmFriendly(snap.Artist),
		Track:    lastfmFriendly(snap.CleanName),
		Album:    lastfmFriendly(snap.CleanAlbum),
		Duration: int(snap.Duration.Seconds()),
	}, at)
	if err != nil {
		outcome := classify(err)
		c.logger.Warn().Err(err).
			Str("track", snap.CleanName).
			Str("artist", snap.Artist).
			Stringer("outcome", outcome).
			Msg("scrobble failed")
		return Delivered{}, outcome
	}

	if resp.Ignored > 0 {
		reason := "unspecified"
		if len(resp.Scrobbles) > 0 && resp.Scrobbles[0].IgnoredMessage.Text != "" {
			reason = resp.Scrobbles[0].IgnoredMessage.Text
		}
		c.logger.Warn().
			Str("track", snap.CleanName).
			Str("reason", reason).
			Msg("scrobble ignored by Last.fm")
		// An ignore is final for this play; treat as delivered so the
		// engine does not loop on a track Last.fm will never accept.
	}

	return Delivered{
		Name:   snap.CleanName,
		Artist: snap.Artist,
		Album:  snap.CleanAlbum,
		At:     at.UTC(),
	}, Ok
}

// TrackScrobbles returns the user's play history for one track.
func (c *Client) TrackScrobbles(ctx context.Context, artist, track string) (*lastfm.RecentTracksPage, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return c.api.User().GetTrackScrobbles(ctx, lastfmFriendly(artist), lastfmFriendly(track), 0)
}

// RecentTracks returns one page of listening history.
func (c *Client) RecentTracks(ctx context.Context, p lastfm.RecentTracksParams) (*lastfm.RecentTracksPage, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return c.api.User().GetRecentTracks(ctx, p)
}

// AlbumInfo returns album metadata. The toggles select whether the track
// listing and top tags come back with it.
func (c *Client) AlbumInfo(ctx context.Context, artist, album string, withTracks, withTags bool) (*lastfm.AlbumInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return c.api.Album().GetInfo(ctx, lastfmFriendly(artist), lastfmFriendly(album), lastfm.AlbumInfoParams{
		WithTracks: withTracks,
		WithTags:   withTags,
	})
}

// UserInfo returns the account profile summary.
func (c *Client) UserInfo(ctx context.Context) (*lastfm.UserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return c.api.User().GetInfo(ctx)
}

// WeeklyAlbumChart returns the user's weekly album chart. Zero from/to
// select the most recent chart week.
func (c *Client) WeeklyAlbumChart(ctx context.Context, from, to time.Time) ([]lastfm.ChartAlbum, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return c.api.User().GetWeeklyAlbumChart(ctx, from, to)
}

// Username returns the configured Last.fm account name.
func (c *Client) Username() string {
	return c.api.Username()
}

// classify maps an SDK error to a delivery outcome. API errors carry a
// Temporary flag; anything that is not an API error (timeouts, DNS, TLS)
// is worth retrying.
func classify(err error) Outcome {
	var apiErr *lastfm.Error
	if errors.As(err, &apiErr) {
		if apiErr.Temporary() {
			return Transient
		}
		return Permanent
	}
	return Transient
}

// lastfmFriendly escapes literal plus signs, which the Last.fm API treats
// as spaces even in form-encoded bodies.
func lastfmFriendly(s string) string {
	return strings.ReplaceAll(s, "+", "%2B")
}
