// Package backfill imports a user's Last.fm listening history into the
// local store.
package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"spinlog/internal/music"
	"spinlog/internal/store"
	"spinlog/pkg/lastfm"
)

const (
	pageSize = 200

	// pageInterval paces page requests to stay well inside Last.fm's
	// rate limits.
	pageInterval = 500 * time.Millisecond

	// maxConsecutiveErrors stops a run after this many failed pages in a
	// row.
	maxConsecutiveErrors = 2
)

// HistorySource reads pages of listening history.
type HistorySource interface {
	RecentTracks(ctx context.Context, p lastfm.RecentTracksParams) (*lastfm.RecentTracksPage, error)
}

// Store is the slice of the scrobble store the backfill writes to.
type Store interface {
	InsertMany(ctx context.Context, scrobbles []store.Scrobble) error
	BatchExists(ctx context.Context, keys []store.Key) (map[store.Key]bool, error)
}

// Options bounds and shapes one run.
type Options struct {
	// From and To bound the imported window, inclusive, in UTC. Zero To
	// means now; zero From means unbounded.
	From time.Time
	To   time.Time

	// Normalize applies the title normalizer to track and album names
	// before storing.
	Normalize bool
}

// Result reports what one run did.
type Result struct {
	Fetched  int
	Inserted int
}

// Runner walks recent tracks backwards in pages, deduplicates against the
// store, and bulk-inserts what is new.
type Runner struct {
	source  HistorySource
	store   Store
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New builds a Runner.
func New(source HistorySource, st Store, logger zerolog.Logger) *Runner {
	return &Runner{
		source:  source,
		store:   st,
		limiter: rate.NewLimiter(rate.Every(pageInterval), 1),
		logger:  logger.With().Str("component", "backfill").Logger(),
	}
}

// Run imports history until the window is exhausted. Within a page,
// insertion preserves Last.fm's order (most recent first).
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	cursor := opts.To
	if cursor.IsZero() {
		cursor = time.Now().UTC()
	}

	var result Result
	errorsInARow := 0

	r.logger.Info().Time("to", cursor).Time("from", opts.From).Msg("backfill started")

	for {
		if err := r.limiter.Wait(ctx); err != nil {
			return result, err
		}

		page, err := r.source.RecentTracks(ctx, lastfm.RecentTracksParams{
			Limit: pageSize,
			To:    cursor,
		})
		if err != nil {
			errorsInARow++
			r.logger.Warn().Err(err).Int("attempt", errorsInARow).Msg("page fetch failed")
			if errorsInARow >= maxConsecutiveErrors {
				return result, fmt.Errorf("backfill aborted after %d consecutive errors: %w", errorsInARow, err)
			}
			continue
		}
		errorsInARow = 0

		tracks := historyOnly(page.Tracks)
		if len(tracks) == 0 {
			break
		}
		result.Fetched += len(tracks)

		inserted, err := r.insertPage(ctx, tracks, opts)
		if err != nil {
			return result, err
		}
		result.Inserted += inserted

		oldest := tracks[len(tracks)-1].PlayedAt
		cursor = oldest.Add(-1 * time.Second)
		if !opts.From.IsZero() && cursor.Before(opts.From) {
			break
		}
	}

	r.logger.Info().
		Int("fetched", result.Fetched).
		Int("inserted", result.Inserted).
		Msg("backfill finished")
	return result, nil
}

// historyOnly drops the synthetic now-playing entry Last.fm prepends to
// the first page.
func historyOnly(tracks []lastfm.PlayedTrack) []lastfm.PlayedTrack {
	out := tracks[:0:0]
	for _, t := range tracks {
		if t.NowPlaying || t.PlayedAt.IsZero() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// insertPage dedups one page against the store (and within itself) and
// writes the remainder in a single transaction.
func (r *Runner) insertPage(ctx context.Context, tracks []lastfm.PlayedTrack, opts Options) (int, error) {
	rows := make([]store.Scrobble, 0, len(tracks))
	keys := make([]store.Key, 0, len(tracks))

	for _, t := range tracks {
		if !opts.From.IsZero() && t.PlayedAt.Before(opts.From) {
			continue
		}

		name, album := t.Name, t.Album
		if opts.Normalize {
			name = music.CleanTitle(name)
			album = music.CleanTitle(album)
		}

		rows = append(rows, store.Scrobble{
			TrackName:   name,
			ArtistName:  t.Artist,
			AlbumName:   album,
			ScrobbledAt: t.PlayedAt,
		})
		keys = append(keys, store.Key{
			TrackName:   name,
			ArtistName:  t.Artist,
			ScrobbledAt: t.PlayedAt,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	exists, err := r.store.BatchExists(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("dedup probe failed: %w", err)
	}

	fresh := rows[:0:0]
	seen := make(map[store.Key]bool, len(rows))
	for i, row := range rows {
		key := keys[i].Normalized()
		if exists[key] || seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, row)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := r.store.InsertMany(ctx, fresh); err != nil {
		return 0, fmt.Errorf("page insert failed: %w", err)
	}
	return len(fresh), nil
}
