package settings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	busyTimeoutMS = 5000
	queryTimeout  = 5 * time.Second
)

const schema = `CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

const upsert = `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SQLiteStore keeps settings in a single SQLite table. Values are loaded on
// open and pending changes are written by Save in one transaction.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.RWMutex
	values map[string]string
	dirty  map[string]struct{}
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating settings directory: %w", err)
	}
	if err := createPrivate(path); err != nil {
		return nil, err
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d", path, busyTimeoutMS)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening settings database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating settings table: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		values: make(map[string]string),
		dirty:  make(map[string]struct{}),
	}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// createPrivate makes sure the database file exists with owner-only
// permissions before SQLite opens it. SQLite creates its journal and WAL
// files with the database file's mode.
func createPrivate(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, filePermissions)
	if err != nil {
		return fmt.Errorf("creating settings database: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("creating settings database: %w", err)
	}
	if err := os.Chmod(path, filePermissions); err != nil {
		return fmt.Errorf("restricting settings database: %w", err)
	}
	return nil
}

func (s *SQLiteStore) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("scanning setting: %w", err)
		}
		s.values[k] = v
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *SQLiteStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.dirty[key] = struct{}{}
}

func (s *SQLiteStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.dirty) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting settings transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().Unix()
	for k := range s.dirty {
		if _, err := tx.ExecContext(ctx, upsert, k, s.values[k], now); err != nil {
			return fmt.Errorf("saving setting %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing settings: %w", err)
	}

	clear(s.dirty)
	return nil
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing settings database: %w", err)
	}
	return nil
}
