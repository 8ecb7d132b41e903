package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"companion/internal/modules/session/domain"
	sessionout "companion/internal/modules/session/port/out"
	apperrors "companion/internal/platform/errors"
	"companion/internal/platform/tx"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens the shared companion database. State store and history
// projector use one handle so a commit can span both.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// SQLiteStateStore keeps the blob as one row of a key/value table.
type SQLiteStateStore struct {
	db  *sql.DB
	key string
}

func NewSQLiteStateStore(db *sql.DB) (sessionout.StateStore, error) {
	store := &SQLiteStateStore{db: db, key: domain.StorageKey}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStateStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS local_storage (
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create local_storage table: %w", err)
	}
	return nil
}

func (s *SQLiteStateStore) Load(ctx context.Context) ([]byte, error) {
	var value []byte
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNoPersistedState
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return value, nil
}

func (s *SQLiteStateStore) Save(ctx context.Context, blob []byte) error {
	const stmt = `
INSERT INTO local_storage (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  value=excluded.value,
  updated_at=excluded.updated_at;
`
	if _, err := tx.Executor(ctx, s.db).ExecContext(ctx, stmt, s.key, blob, time.Now().UTC().Format("2006-01-02T15:04:05Z07:00")); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *SQLiteStateStore) Clear(ctx context.Context) error {
	if _, err := tx.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}
