// Package api exposes the engine, store, and Last.fm surfaces over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/justinas/alice"
	"github.com/rs/zerolog"

	"spinlog/internal/backfill"
	"spinlog/internal/engine"
	"spinlog/internal/store"
	"spinlog/pkg/lastfm"
)

// Engine is the slice of the scrobble engine the API drives.
type Engine interface {
	Tick(ctx context.Context)
	View() engine.View
	ToggleScrobbling() bool
	ScrobblingEnabled() bool
	ForceScrobble(ctx context.Context) bool
}

// Lastfm reads user data from Last.fm.
type Lastfm interface {
	TrackScrobbles(ctx context.Context, artist, track string) (*lastfm.RecentTracksPage, error)
	RecentTracks(ctx context.Context, p lastfm.RecentTracksParams) (*lastfm.RecentTracksPage, error)
	WeeklyAlbumChart(ctx context.Context, from, to time.Time) ([]lastfm.ChartAlbum, error)
	UserInfo(ctx context.Context) (*lastfm.UserInfo, error)
	Username() string
}

// Stats reads listening analytics from the local store.
type Stats interface {
	YearOverview(ctx context.Context, year, topLimit int) (*store.Overview, error)
	TopTracksByArtist(ctx context.Context, artist string, limit int) ([]store.NameCount, error)
	TopAlbumsByArtist(ctx context.Context, artist string, limit int) ([]store.NameCount, error)
	ArtistCountsByYear(ctx context.Context, artist string) ([]store.YearCount, error)
}

// Backfiller imports listening history into the store.
type Backfiller interface {
	Run(ctx context.Context, opts backfill.Options) (backfill.Result, error)
}

// Options configures a Server.
type Options struct {
	Engine   Engine
	Client   Lastfm
	Stats    Stats
	Backfill Backfiller

	// Token is the bearer token required on every non-health endpoint.
	Token string

	// AllowedOrigin is the CORS allow-origin. Empty disables CORS headers.
	AllowedOrigin string

	// DatetimeFormat renders timestamps in responses.
	DatetimeFormat string

	Logger zerolog.Logger
}

// Server is the HTTP surface.
type Server struct {
	engine   Engine
	client   Lastfm
	stats    Stats
	backfill Backfiller

	token          string
	allowedOrigin  string
	datetimeFormat string
	logger         zerolog.Logger
}

// New builds a Server from its collaborators.
func New(opts Options) *Server {
	format := opts.DatetimeFormat
	if format == "" {
		format = "2006-01-02 15:04:05"
	}
	return &Server{
		engine:         opts.Engine,
		client:         opts.Client,
		stats:          opts.Stats,
		backfill:       opts.Backfill,
		token:          opts.Token,
		allowedOrigin:  opts.AllowedOrigin,
		datetimeFormat: format,
		logger:         opts.Logger.With().Str("component", "api").Logger(),
	}
}

// Handler assembles the route table and middleware chains.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	standard := alice.New(s.recoverPanic, s.logRequest, s.cors)
	protected := standard.Append(s.requireToken)

	mux.Handle("GET /{$}", standard.ThenFunc(s.handleHealth))

	mux.Handle("GET /state/", protected.ThenFunc(s.handleState))
	mux.Handle("GET /poll-song/", protected.ThenFunc(s.handlePollSong))
	mux.Handle("GET /scrobble/status/", protected.ThenFunc(s.handleScrobbleStatus))
	mux.Handle("POST /scrobble/toggle/", protected.ThenFunc(s.handleScrobbleToggle))
	mux.Handle("POST /scrobble/", protected.ThenFunc(s.handleForceScrobble))
	mux.Handle("GET /sync/scrobbles/", protected.ThenFunc(s.handleSync))
	mux.Handle("GET /user/current-track-scrobbles/", protected.ThenFunc(s.handleTrackScrobbles))
	mux.Handle("GET /user/charts/albums/weekly/", protected.ThenFunc(s.handleWeeklyAlbumChart))
	mux.Handle("GET /user/recent-tracks/", protected.ThenFunc(s.handleRecentTracks))
	mux.Handle("GET /stats/overview/", protected.ThenFunc(s.handleStatsOverview))
	mux.Handle("GET /stats/artist/", protected.ThenFunc(s.handleStatsArtist))

	// Preflight requests carry no bearer token.
	mux.Handle("OPTIONS /", standard.ThenFunc(s.handlePreflight))

	return mux
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info().Str("addr", addr).Msg("http server started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
