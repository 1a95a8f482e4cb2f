package opstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS deletion_snapshots (
	key        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deletion_snapshots_expires_at
	ON deletion_snapshots (expires_at);
`

// SQLite is a Store backed by its own SQLite database file. It never shares
// a connection pool with the entity store: snapshots are written while an
// entity transaction is open, and a shared single-connection pool would
// deadlock on itself.
//
// Expiry is stored as unix nanoseconds and filtered at read time; expired
// rows are removed when read or via PurgeExpired.
type SQLite struct {
	db *sql.DB

	now func() time.Time // test seam
}

// NewSQLite opens (creating if needed) the snapshot database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opstore: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("opstore: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("opstore: create schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl).UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deletion_snapshots (key, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at
	`, key, payload, expiresAt)
	if err != nil {
		return fmt.Errorf("opstore: put %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, expires_at FROM deletion_snapshots WHERE key = ?
	`, key).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opstore: get %s: %w", key, err)
	}

	if s.now().UnixNano() >= expiresAt {
		// Lazy cleanup; the entry is already unreadable either way
		s.db.ExecContext(ctx, "DELETE FROM deletion_snapshots WHERE key = ?", key)
		return nil, ErrNotFound
	}
	return payload, nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM deletion_snapshots WHERE key = ?", key); err != nil {
		return fmt.Errorf("opstore: delete %s: %w", key, err)
	}
	return nil
}

// PurgeExpired removes every expired entry and reports how many went away.
func (s *SQLite) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM deletion_snapshots WHERE expires_at <= ?", s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("opstore: purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("opstore: purge expired: rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
