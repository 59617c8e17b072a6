package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmaudit/claimscope/pkg/catalog"
	_ "modernc.org/sqlite"
)

// SchemaVersion is the version written with every checkpoint. Checkpoints
// carrying another version are refused on load.
const SchemaVersion = 1

var (
	ErrNoCheckpoint  = errors.New("no checkpoint for run")
	ErrSchemaVersion = errors.New("checkpoint schema version mismatch")
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS checkpoints (
  run_key          TEXT PRIMARY KEY,
  schema_version   INTEGER NOT NULL,
  run_id           TEXT NOT NULL,
  next_song_index  INTEGER NOT NULL CHECK (next_song_index >= 0),
  last_platform    TEXT,
  completed_songs  INTEGER NOT NULL DEFAULT 0,
  updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS song_results (
  id               INTEGER PRIMARY KEY,
  run_key          TEXT NOT NULL,
  song_index       INTEGER NOT NULL,
  song             TEXT NOT NULL,
  versions         INTEGER NOT NULL,
  matched          INTEGER NOT NULL,
  unmatched        INTEGER NOT NULL,
  dropped          INTEGER NOT NULL,
  payload          TEXT NOT NULL,
  created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(run_key, song_index)
);
CREATE INDEX IF NOT EXISTS idx_results_run ON song_results(run_key, song_index);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// LoadCheckpoint returns the checkpoint of runKey, ErrNoCheckpoint when the
// run never completed a song, or ErrSchemaVersion when it was written by an
// incompatible version.
func (d *DB) LoadCheckpoint(ctx context.Context, runKey string) (Checkpoint, error) {
	var (
		cp       Checkpoint
		platform sql.NullString
		updated  string
	)
	err := d.sql.QueryRowContext(ctx, `SELECT run_key, schema_version, run_id, next_song_index, last_platform, completed_songs, updated_at FROM checkpoints WHERE run_key = ?`, runKey).
		Scan(&cp.RunKey, &cp.SchemaVersion, &cp.RunID, &cp.NextSongIndex, &platform, &cp.CompletedSongs, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, ErrNoCheckpoint
	}
	if err != nil {
		return Checkpoint{}, err
	}
	if cp.SchemaVersion != SchemaVersion {
		return Checkpoint{}, fmt.Errorf("%w: run %s has version %d, want %d", ErrSchemaVersion, runKey, cp.SchemaVersion, SchemaVersion)
	}
	cp.LastPlatform = platform.String
	cp.UpdatedAt = parseTimestamp(updated)
	return cp, nil
}

// CommitSong stores the artifact of one song and advances the checkpoint
// past it, atomically. The checkpoint never moves backwards.
func (d *DB) CommitSong(ctx context.Context, cp Checkpoint, rep catalog.SongReport) (err error) {
	if cp.RunKey == "" || cp.RunID == "" {
		return errors.New("invalid checkpoint identifiers")
	}
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encoding song %q: %w", rep.Song, err)
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO song_results(run_key, song_index, song, versions, matched, unmatched, dropped, payload)
VALUES(?,?,?,?,?,?,?,?)
ON CONFLICT(run_key, song_index) DO UPDATE SET song = excluded.song, versions = excluded.versions, matched = excluded.matched,
  unmatched = excluded.unmatched, dropped = excluded.dropped, payload = excluded.payload, created_at = CURRENT_TIMESTAMP`,
		cp.RunKey, rep.Index, rep.Song, len(rep.Summaries), len(rep.Matched), len(rep.Unmatched), len(rep.Dropped), string(payload))
	if err != nil {
		return err
	}

	next := rep.Index + 1
	_, err = tx.ExecContext(ctx, `INSERT INTO checkpoints(run_key, schema_version, run_id, next_song_index, last_platform, completed_songs, updated_at)
VALUES(?,?,?,?,?,(SELECT COUNT(*) FROM song_results WHERE run_key = ?),CURRENT_TIMESTAMP)
ON CONFLICT(run_key) DO UPDATE SET schema_version = excluded.schema_version, run_id = excluded.run_id,
  next_song_index = MAX(checkpoints.next_song_index, excluded.next_song_index),
  last_platform = excluded.last_platform, completed_songs = excluded.completed_songs, updated_at = CURRENT_TIMESTAMP`,
		cp.RunKey, SchemaVersion, cp.RunID, next, nullIfEmpty(cp.LastPlatform), cp.RunKey)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ResetRun forgets the checkpoint and every stored song of runKey.
func (d *DB) ResetRun(ctx context.Context, runKey string) (err error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM song_results WHERE run_key = ?`, runKey); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_key = ?`, runKey); err != nil {
		return err
	}
	return tx.Commit()
}

// ListSongResults returns the stored artifacts of runKey in song order.
func (d *DB) ListSongResults(ctx context.Context, runKey string) ([]catalog.SongReport, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT song_index, payload FROM song_results WHERE run_key = ? ORDER BY song_index`, runKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.SongReport
	for rows.Next() {
		var (
			idx     int
			payload string
		)
		if err := rows.Scan(&idx, &payload); err != nil {
			return nil, err
		}
		var rep catalog.SongReport
		if err := json.Unmarshal([]byte(payload), &rep); err != nil {
			return nil, fmt.Errorf("decoding song %d of run %s: %w", idx, runKey, err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRuns returns the keys of every run with a checkpoint.
func (d *DB) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT run_key FROM checkpoints ORDER BY run_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RequireRun returns an error wrapping ErrNoCheckpoint that names the
// stored runs when runKey has no checkpoint.
func (d *DB) RequireRun(ctx context.Context, runKey string) error {
	keys, err := d.ListRuns(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == runKey {
			return nil
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w %s: the database holds no runs", ErrNoCheckpoint, runKey)
	}
	return fmt.Errorf("%w %s: stored runs are %s", ErrNoCheckpoint, runKey, strings.Join(keys, ", "))
}

func (d *DB) GetStats(ctx context.Context) ([]RunStats, error) {
	query := `
		SELECT
			c.run_key,
			c.next_song_index,
			COUNT(r.id),
			COALESCE(SUM(r.matched), 0),
			COALESCE(SUM(r.unmatched), 0),
			COALESCE(SUM(r.dropped), 0),
			c.updated_at
		FROM
			checkpoints c
			LEFT JOIN song_results r ON r.run_key = c.run_key
		GROUP BY
			c.run_key
		ORDER BY
			c.run_key;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []RunStats
	for rows.Next() {
		var (
			s       RunStats
			updated string
		)
		if err := rows.Scan(&s.RunKey, &s.NextSongIndex, &s.Songs, &s.Matched, &s.Unmatched, &s.Dropped, &updated); err != nil {
			return nil, err
		}
		s.UpdatedAt = parseTimestamp(updated)
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// parseTimestamp accepts SQLite CURRENT_TIMESTAMP and RFC3339 values.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
