// Package store persists scrobbles in SQLite and answers the analytics
// queries served by the HTTP surface.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Scrobble is one persisted play.
type Scrobble struct {
	ID          int64
	TrackName   string
	ArtistName  string
	AlbumName   string // empty when unknown
	ScrobbledAt time.Time
	CreatedAt   time.Time
}

// Key is the natural dedup key: names compared case-insensitively plus the
// exact scrobble instant.
type Key struct {
	TrackName   string
	ArtistName  string
	ScrobbledAt time.Time
}

// Normalized lowercases the names and converts the instant to UTC, the
// form BatchExists results are keyed by.
func (k Key) Normalized() Key {
	return Key{
		TrackName:   strings.ToLower(k.TrackName),
		ArtistName:  strings.ToLower(k.ArtistName),
		ScrobbledAt: k.ScrobbledAt.UTC(),
	}
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (and if needed creates) the database at the given DSN.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection keeps writes serialized and works for both file
	// and in-memory databases.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -64000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS scrobbles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			track_name TEXT NOT NULL,
			artist_name TEXT NOT NULL,
			album_name TEXT,
			scrobbled_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE INDEX IF NOT EXISTS idx_track_name ON scrobbles(lower(track_name));
		CREATE INDEX IF NOT EXISTS idx_artist_name ON scrobbles(lower(artist_name));
		CREATE INDEX IF NOT EXISTS idx_scrobbled_at ON scrobbles(scrobbled_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertMany writes all scrobbles in a single transaction, preserving the
// given order.
func (s *Store) InsertMany(ctx context.Context, scrobbles []Scrobble) error {
	if len(scrobbles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scrobbles (track_name, artist_name, album_name, scrobbled_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, sc := range scrobbles {
		var album interface{}
		if sc.AlbumName != "" {
			album = sc.AlbumName
		}
		if _, err := stmt.ExecContext(ctx, sc.TrackName, sc.ArtistName, album, sc.ScrobbledAt.UTC().Unix()); err != nil {
			return fmt.Errorf("failed to insert scrobble: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Filter narrows a Find query. Name comparisons are case-insensitive
// equality; zero time values mean unbounded.
type Filter struct {
	TrackName  string
	ArtistName string
	AlbumName  string
	At         time.Time // exact scrobbled_at match
	After      time.Time // scrobbled_at >= After
	Before     time.Time // scrobbled_at <= Before
	Limit      int       // 0 means no limit
}

// Find returns scrobbles matching the filter, most recent first.
func (s *Store) Find(ctx context.Context, f Filter) ([]Scrobble, error) {
	var conds []string
	var args []interface{}

	if f.TrackName != "" {
		conds = append(conds, "lower(track_name) = lower(?)")
		args = append(args, f.TrackName)
	}
	if f.ArtistName != "" {
		conds = append(conds, "lower(artist_name) = lower(?)")
		args = append(args, f.ArtistName)
	}
	if f.AlbumName != "" {
		conds = append(conds, "lower(album_name) = lower(?)")
		args = append(args, f.AlbumName)
	}
	if !f.At.IsZero() {
		conds = append(conds, "scrobbled_at = ?")
		args = append(args, f.At.UTC().Unix())
	}
	if !f.After.IsZero() {
		conds = append(conds, "scrobbled_at >= ?")
		args = append(args, f.After.UTC().Unix())
	}
	if !f.Before.IsZero() {
		conds = append(conds, "scrobbled_at <= ?")
		args = append(args, f.Before.UTC().Unix())
	}

	query := "SELECT id, track_name, artist_name, album_name, scrobbled_at, created_at FROM scrobbles"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY scrobbled_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrobbles: %w", err)
	}
	defer rows.Close()

	return scanScrobbles(rows)
}

func scanScrobbles(rows *sql.Rows) ([]Scrobble, error) {
	var out []Scrobble
	for rows.Next() {
		var sc Scrobble
		var album sql.NullString
		var scrobbledAt, createdAt int64
		if err := rows.Scan(&sc.ID, &sc.TrackName, &sc.ArtistName, &album, &scrobbledAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan scrobble: %w", err)
		}
		sc.AlbumName = album.String
		sc.ScrobbledAt = time.Unix(scrobbledAt, 0).UTC()
		sc.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, sc)
	}
	return out, rows.Err()
}

// batchExistsChunk bounds the number of OR groups per query.
const batchExistsChunk = 100

// BatchExists reports which of the given keys already exist. Used by the
// backfill to dedup a whole page with a handful of round-trips.
func (s *Store) BatchExists(ctx context.Context, keys []Key) (map[Key]bool, error) {
	exists := make(map[Key]bool, len(keys))
	if len(keys) == 0 {
		return exists, nil
	}

	for start := 0; start < len(keys); start += batchExistsChunk {
		end := start + batchExistsChunk
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		conds := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)*3)
		for i, k := range chunk {
			conds[i] = "(lower(track_name) = ? AND lower(artist_name) = ? AND scrobbled_at = ?)"
			n := k.Normalized()
			args = append(args, n.TrackName, n.ArtistName, n.ScrobbledAt.Unix())
		}

		query := "SELECT track_name, artist_name, scrobbled_at FROM scrobbles WHERE " + strings.Join(conds, " OR ")
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query batch existence: %w", err)
		}

		for rows.Next() {
			var track, artist string
			var at int64
			if err := rows.Scan(&track, &artist, &at); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan existence row: %w", err)
			}
			exists[Key{
				TrackName:   strings.ToLower(track),
				ArtistName:  strings.ToLower(artist),
				ScrobbledAt: time.Unix(at, 0).UTC(),
			}] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	return exists, nil
}

// Contains is the single-key convenience over BatchExists semantics.
func (s *Store) Contains(ctx context.Context, k Key) (bool, error) {
	set, err := s.BatchExists(ctx, []Key{k})
	if err != nil {
		return false, err
	}
	return set[k.Normalized()], nil
}
