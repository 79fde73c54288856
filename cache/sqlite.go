package cache

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wippyai/wasi-host/errors"
)

// SQLite is a persistent module cache backed by a sqlite file.
type SQLite struct {
	db *sql.DB
}

var _ ModuleCache = (*SQLite)(nil)

// OpenSQLite opens (and creates if needed) the cache database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.InvalidInput(errors.PhaseCache, "sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(errors.PhaseCache, errors.KindInvalidInput, err, "create cache directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCache, errors.KindNotInitialized, err, "open sqlite")
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA journal_mode = WAL;",
	} {
		if _, err := db.ExecContext(pctx, pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(errors.PhaseCache, errors.KindNotInitialized, err, pragma)
		}
	}

	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	const stmt = `CREATE TABLE IF NOT EXISTS modules (
  key        TEXT PRIMARY KEY,
  data       BLOB NOT NULL,
  size       INTEGER NOT NULL,
  created_at TEXT NOT NULL
);`
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(errors.PhaseCache, errors.KindNotInitialized, err, "bootstrap sqlite")
	}
	return nil
}

// Lookup implements ModuleCache.
func (s *SQLite) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM modules WHERE key = ?`, key).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup module %s: %w", key, err)
	}
	return data, true, nil
}

// Save implements ModuleCache.
func (s *SQLite) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO modules (key, data, size, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET data = excluded.data, size = excluded.size, created_at = excluded.created_at`,
		key, data, len(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save module %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
