package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NameCount pairs a name with a play count.
type NameCount struct {
	Name  string
	Count int
}

// YearCount pairs a calendar year with a play count.
type YearCount struct {
	Year  int
	Count int
}

// MonthCount pairs a month (1-12) with a play count.
type MonthCount struct {
	Month int
	Count int
}

// DayCount pairs a calendar day with a play count.
type DayCount struct {
	Day   string // YYYY-MM-DD
	Count int
}

func yearBounds(year int) (int64, int64) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.Unix(), start.AddDate(1, 0, 0).Unix()
}

func (s *Store) queryNameCounts(ctx context.Context, query string, args ...interface{}) ([]NameCount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}
	defer rows.Close()

	var out []NameCount
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		out = append(out, nc)
	}
	return out, rows.Err()
}

// TopTracksByArtist returns the artist's most played tracks.
func (s *Store) TopTracksByArtist(ctx context.Context, artist string, limit int) ([]NameCount, error) {
	return s.queryNameCounts(ctx, `
		SELECT track_name, COUNT(*) AS plays FROM scrobbles
		WHERE lower(artist_name) = lower(?)
		GROUP BY lower(track_name)
		ORDER BY plays DESC, track_name ASC
		LIMIT ?`, artist, limit)
}

// TopAlbumsByArtist returns the artist's most played albums.
func (s *Store) TopAlbumsByArtist(ctx context.Context, artist string, limit int) ([]NameCount, error) {
	return s.queryNameCounts(ctx, `
		SELECT album_name, COUNT(*) AS plays FROM scrobbles
		WHERE lower(artist_name) = lower(?) AND album_name IS NOT NULL
		GROUP BY lower(album_name)
		ORDER BY plays DESC, album_name ASC
		LIMIT ?`, artist, limit)
}

// ArtistCountsByYear returns the artist's play count per calendar year,
// oldest year first.
func (s *Store) ArtistCountsByYear(ctx context.Context, artist string) ([]YearCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(strftime('%Y', scrobbled_at, 'unixepoch') AS INTEGER) AS y, COUNT(*)
		FROM scrobbles
		WHERE lower(artist_name) = lower(?)
		GROUP BY y
		ORDER BY y ASC`, artist)
	if err != nil {
		return nil, fmt.Errorf("failed to query artist years: %w", err)
	}
	defer rows.Close()

	var out []YearCount
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan year row: %w", err)
		}
		out = append(out, yc)
	}
	return out, rows.Err()
}

// TopArtistsByYear returns the most played artists of one year.
func (s *Store) TopArtistsByYear(ctx context.Context, year, limit int) ([]NameCount, error) {
	from, to := yearBounds(year)
	return s.queryNameCounts(ctx, `
		SELECT artist_name, COUNT(*) AS plays FROM scrobbles
		WHERE scrobbled_at >= ? AND scrobbled_at < ?
		GROUP BY lower(artist_name)
		ORDER BY plays DESC, artist_name ASC
		LIMIT ?`, from, to, limit)
}

// TopTracksByYear returns the most played tracks of one year, labelled
// "track - artist".
func (s *Store) TopTracksByYear(ctx context.Context, year, limit int) ([]NameCount, error) {
	from, to := yearBounds(year)
	return s.queryNameCounts(ctx, `
		SELECT track_name || ' - ' || artist_name, COUNT(*) AS plays FROM scrobbles
		WHERE scrobbled_at >= ? AND scrobbled_at < ?
		GROUP BY lower(track_name), lower(artist_name)
		ORDER BY plays DESC, track_name ASC
		LIMIT ?`, from, to, limit)
}

// TopAlbumsByYear returns the most played albums of one year, labelled
// "album - artist".
func (s *Store) TopAlbumsByYear(ctx context.Context, year, limit int) ([]NameCount, error) {
	from, to := yearBounds(year)
	return s.queryNameCounts(ctx, `
		SELECT album_name || ' - ' || artist_name, COUNT(*) AS plays FROM scrobbles
		WHERE scrobbled_at >= ? AND scrobbled_at < ? AND album_name IS NOT NULL
		GROUP BY lower(album_name), lower(artist_name)
		ORDER BY plays DESC, album_name ASC
		LIMIT ?`, from, to, limit)
}

// TotalByYear returns the number of scrobbles in one year.
func (s *Store) TotalByYear(ctx context.Context, year int) (int, error) {
	from, to := yearBounds(year)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scrobbles WHERE scrobbled_at >= ? AND scrobbled_at < ?`,
		from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count scrobbles: %w", err)
	}
	return n, nil
}

// UniqueCounts holds the distinct artist/track/album counts for a period.
type UniqueCounts struct {
	Artists int
	Tracks  int
	Albums  int
}

// UniquesByYear returns distinct artist, track, and album counts for one
// year.
func (s *Store) UniquesByYear(ctx context.Context, year int) (UniqueCounts, error) {
	from, to := yearBounds(year)
	var u UniqueCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT lower(artist_name)),
			COUNT(DISTINCT lower(track_name) || '|' || lower(artist_name)),
			COUNT(DISTINCT lower(album_name) || '|' || lower(artist_name))
		FROM scrobbles
		WHERE scrobbled_at >= ? AND scrobbled_at < ?`, from, to).
		Scan(&u.Artists, &u.Tracks, &u.Albums)
	if err != nil {
		return UniqueCounts{}, fmt.Errorf("failed to count uniques: %w", err)
	}
	return u, nil
}

// ScrobblesByMonth returns per-month play counts for one year; months with
// no plays are present with a zero count.
func (s *Store) ScrobblesByMonth(ctx context.Context, year int) ([]MonthCount, error) {
	from, to := yearBounds(year)
	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(strftime('%m', scrobbled_at, 'unixepoch') AS INTEGER) AS m, COUNT(*)
		FROM scrobbles
		WHERE scrobbled_at >= ? AND scrobbled_at < ?
		GROUP BY m
		ORDER BY m ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query months: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var month, count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, fmt.Errorf("failed to scan month row: %w", err)
		}
		counts[month] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]MonthCount, 12)
	for m := 1; m <= 12; m++ {
		out[m-1] = MonthCount{Month: m, Count: counts[m]}
	}
	return out, nil
}

// FirstScrobbleOfYear returns the year's earliest scrobble, or nil when
// the year is empty.
func (s *Store) FirstScrobbleOfYear(ctx context.Context, year int) (*Scrobble, error) {
	from, to := yearBounds(year)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, track_name, artist_name, album_name, scrobbled_at, created_at
		FROM scrobbles
		WHERE scrobbled_at >= ? AND scrobbled_at < ?
		ORDER BY scrobbled_at ASC
		LIMIT 1`, from, to)

	var sc Scrobble
	var album sql.NullString
	var scrobbledAt, createdAt int64
	err := row.Scan(&sc.ID, &sc.TrackName, &sc.ArtistName, &album, &scrobbledAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query first scrobble: %w", err)
	}
	sc.AlbumName = album.String
	sc.ScrobbledAt = time.Unix(scrobbledAt, 0).UTC()
	sc.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &sc, nil
}

// MostActiveDay returns the day with the most plays in one year, or a zero
// DayCount when the year is empty.
func (s *Store) MostActiveDay(ctx context.Context, year int) (DayCount, error) {
	from, to := yearBounds(year)
	row := s.db.QueryRowContext(ctx, `
		SELECT strftime('%Y-%m-%d', scrobbled_at, 'unixepoch') AS d, COUNT(*) AS plays
		FROM scrobbles
		WHERE scrobbled_at >= ? AND scrobbled_at < ?
		GROUP BY d
		ORDER BY plays DESC, d ASC
		LIMIT 1`, from, to)

	var dc DayCount
	err := row.Scan(&dc.Day, &dc.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return DayCount{}, nil
	}
	if err != nil {
		return DayCount{}, fmt.Errorf("failed to query most active day: %w", err)
	}
	return dc, nil
}

// Overview is a year's listening summary.
type Overview struct {
	Year          int
	Total         int
	Uniques       UniqueCounts
	TopArtists    []NameCount
	TopTracks     []NameCount
	TopAlbums     []NameCount
	ByMonth       []MonthCount
	FirstScrobble *Scrobble
	MostActiveDay DayCount
}

// YearOverview assembles the full summary for one year.
func (s *Store) YearOverview(ctx context.Context, year, topLimit int) (*Overview, error) {
	total, err := s.TotalByYear(ctx, year)
	if err != nil {
		return nil, err
	}
	uniques, err := s.UniquesByYear(ctx, year)
	if err != nil {
		return nil, err
	}
	artists, err := s.TopArtistsByYear(ctx, year, topLimit)
	if err != nil {
		return nil, err
	}
	tracks, err := s.TopTracksByYear(ctx, year, topLimit)
	if err != nil {
		return nil, err
	}
	albums, err := s.TopAlbumsByYear(ctx, year, topLimit)
	if err != nil {
		return nil, err
	}
	months, err := s.ScrobblesByMonth(ctx, year)
	if err != nil {
		return nil, err
	}
	first, err := s.FirstScrobbleOfYear(ctx, year)
	if err != nil {
		return nil, err
	}
	day, err := s.MostActiveDay(ctx, year)
	if err != nil {
		return nil, err
	}

	return &Overview{
		Year:          year,
		Total:         total,
		Uniques:       uniques,
		TopArtists:    artists,
		TopTracks:     tracks,
		TopAlbums:     albums,
		ByMonth:       months,
		FirstScrobble: first,
		MostActiveDay: day,
	}, nil
}
