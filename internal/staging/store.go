// Package staging provides the on-device durable store for the scouting
// sync engine.
//
// The store holds at most one pending unsynced pit record and one pending
// unsynced match record, plus the last reconciled dataset snapshot and the
// last-sync timestamp. It runs on embedded SQLite with WAL mode so staged
// edits survive process restarts and concurrent readers never block the
// sync engine's writes.
//
// Staging is single-slot per kind with latest-wins semantics: staging a new
// record of a kind overwrites any prior unsynced record of that kind. A
// staged record is cleared only after a confirmed remote write.
package staging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/scoutforge/scoutsync/internal/schema"
)

// Durable key names. These identify the four single-slot entries the
// store manages.
const (
	keyPitData      = "pitData"
	keyMatchData    = "matchData"
	keyFetchedData  = "fetchedData"
	keyLastSyncTime = "lastSyncTime"
)

// Store wraps the embedded SQLite connection holding staged records and
// the offline snapshot.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a staging store at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If it doesn't exist, it is created along with the schema.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	store, err := staging.Open(filepath.Join(dataDir, "staging.db"))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping staging database: %w", err)
	}

	conn.SetMaxOpenConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the store after checkpointing the WAL.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close staging database: %w", err)
	}
	s.conn = nil
	return nil
}

// Path returns the on-disk location of the store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS slots (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.conn.Exec(query); err != nil {
		return fmt.Errorf("failed to initialize staging schema: %w", err)
	}
	return nil
}

// putSlot overwrites the value under key. Durable before returning.
func (s *Store) putSlot(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	query := `
	INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	_, err = s.conn.ExecContext(ctx, query, key, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// getSlot reads the value under key into v. Returns (false, nil) when the
// slot is absent.
func (s *Store) getSlot(ctx context.Context, key string, v interface{}) (bool, error) {
	var data string
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM slots WHERE key = ?", key).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return true, nil
}

// clearSlot removes the slot under key. Idempotent.
func (s *Store) clearSlot(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM slots WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to clear %s: %w", key, err)
	}
	return nil
}

// StagePit stages a pit record for upload, overwriting any previously
// staged pit record.
func (s *Store) StagePit(ctx context.Context, team *schema.TeamRecord) error {
	if err := team.Validate(); err != nil {
		return fmt.Errorf("cannot stage invalid pit record: %w", err)
	}
	return s.putSlot(ctx, keyPitData, team)
}

// StagedPit returns the staged pit record, or nil if none is staged.
// The read is non-destructive.
func (s *Store) StagedPit(ctx context.Context) (*schema.TeamRecord, error) {
	var team schema.TeamRecord
	ok, err := s.getSlot(ctx, keyPitData, &team)
	if err != nil || !ok {
		return nil, err
	}
	return &team, nil
}

// ClearPit purges the staged pit record. Idempotent.
func (s *Store) ClearPit(ctx context.Context) error {
	return s.clearSlot(ctx, keyPitData)
}

// StageMatch stages a match record for upload, overwriting any previously
// staged match record.
func (s *Store) StageMatch(ctx context.Context, match *schema.MatchRecord) error {
	if err := match.Validate(); err != nil {
		return fmt.Errorf("cannot stage invalid match record: %w", err)
	}
	return s.putSlot(ctx, keyMatchData, match)
}

// StagedMatch returns the staged match record, or nil if none is staged.
func (s *Store) StagedMatch(ctx context.Context) (*schema.MatchRecord, error) {
	var match schema.MatchRecord
	ok, err := s.getSlot(ctx, keyMatchData, &match)
	if err != nil || !ok {
		return nil, err
	}
	return &match, nil
}

// ClearMatch purges the staged match record. Idempotent.
func (s *Store) ClearMatch(ctx context.Context) error {
	return s.clearSlot(ctx, keyMatchData)
}

// SaveSnapshot stores the reconciled dataset and its sync timestamp for
// offline display. Both slots are written in one transaction so a
// snapshot's age is always inferable from the recorded timestamp.
func (s *Store) SaveSnapshot(ctx context.Context, ds *schema.Dataset) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, query, keyFetchedData, string(data), now); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	stamp, err := json.Marshal(ds.SyncedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to marshal sync time: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, keyLastSyncTime, string(stamp), now); err != nil {
		return fmt.Errorf("failed to write sync time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Snapshot returns the last saved reconciled dataset, or nil if no sync
// has completed yet.
func (s *Store) Snapshot(ctx context.Context) (*schema.Dataset, error) {
	var ds schema.Dataset
	ok, err := s.getSlot(ctx, keyFetchedData, &ds)
	if err != nil || !ok {
		return nil, err
	}
	return &ds, nil
}

// LastSyncTime returns the timestamp of the last successful sync, or the
// zero time if no sync has completed yet.
func (s *Store) LastSyncTime(ctx context.Context) (time.Time, error) {
	var stamp string
	ok, err := s.getSlot(ctx, keyLastSyncTime, &stamp)
	if err != nil || !ok {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last sync time: %w", err)
	}
	return t, nil
}
