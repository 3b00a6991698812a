// Package history records playback history in SQLite: per-track play counts
// and last known positions. Recording is best-effort; a failed write never
// interrupts playback.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sonata/internal/media"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS plays (
    locator          TEXT PRIMARY KEY,
    kind             TEXT NOT NULL,
    title            TEXT NOT NULL DEFAULT '',
    channel_title    TEXT NOT NULL DEFAULT '',
    play_count       INTEGER NOT NULL DEFAULT 0,
    position_seconds REAL NOT NULL DEFAULT 0,
    duration_seconds REAL NOT NULL DEFAULT 0,
    last_played_at   TEXT NOT NULL
);
`

// Entry is one history row.
type Entry struct {
	Locator      string
	Kind         string
	Title        string
	ChannelTitle string
	PlayCount    int
	PositionSec  float64
	DurationSec  float64
	LastPlayedAt time.Time
}

// Store is a SQLite-backed history database.
type Store struct {
	db *sql.DB
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordPlay upserts the track's row and bumps its play count.
func (s *Store) RecordPlay(track media.Track) {
	if track.Locator() == "" {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, _ = s.db.Exec(`
INSERT INTO plays (locator, kind, title, channel_title, play_count, last_played_at)
VALUES (?, ?, ?, ?, 1, ?)
ON CONFLICT(locator) DO UPDATE SET
    title = excluded.title,
    channel_title = excluded.channel_title,
    play_count = play_count + 1,
    last_played_at = excluded.last_played_at`,
		track.Locator(), track.Kind.String(), track.Title, track.ChannelTitle, now)
}

// SavePosition stores the last known playback position for a track.
func (s *Store) SavePosition(track media.Track, positionSec, durationSec float64) {
	if track.Locator() == "" || positionSec < 0 {
		return
	}
	_, _ = s.db.Exec(`
UPDATE plays SET position_seconds = ?, duration_seconds = ?
WHERE locator = ?`,
		positionSec, durationSec, track.Locator())
}

// Lookup returns the history entry for a locator, if present.
func (s *Store) Lookup(locator string) (Entry, bool, error) {
	row := s.db.QueryRow(`
SELECT locator, kind, title, channel_title, play_count,
       position_seconds, duration_seconds, last_played_at
FROM plays WHERE locator = ?`, locator)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("looking up history: %w", err)
	}
	return entry, true, nil
}

// Recent returns up to limit entries, most recently played first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
SELECT locator, kind, title, channel_title, play_count,
       position_seconds, duration_seconds, last_played_at
FROM plays ORDER BY last_played_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var playedAt string
	err := row.Scan(&e.Locator, &e.Kind, &e.Title, &e.ChannelTitle,
		&e.PlayCount, &e.PositionSec, &e.DurationSec, &playedAt)
	if err != nil {
		return Entry{}, err
	}
	if t, perr := time.Parse(time.RFC3339, playedAt); perr == nil {
		e.LastPlayedAt = t
	}
	return e, nil
}
