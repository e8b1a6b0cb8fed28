// Package store persists prompts, categories, favorites, credentials, wizard
// sessions and the provider call log in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned when required fields are missing.
	ErrInvalid = errors.New("invalid")
)

// Store wraps the SQLite database shared by the per-concern stores.
type Store struct {
	db *sql.DB
}

// Open opens (and creates/migrates) the database at path. ":memory:" opens a
// private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty database path")
	}

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys=ON;")
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout=5000;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the handle for stores in other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var migrations = []string{
	// v1: prompts, categories, favorites, credentials, wizard state
	`
CREATE TABLE IF NOT EXISTS categories (
  name        TEXT PRIMARY KEY,
  label       TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  position    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS prompts (
  id          TEXT PRIMARY KEY,
  user_id     TEXT NOT NULL,
  title       TEXT NOT NULL,
  text        TEXT NOT NULL,
  category    TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  is_public   INTEGER NOT NULL DEFAULT 0,
  created_at  INTEGER NOT NULL,
  updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prompts_user ON prompts(user_id);
CREATE INDEX IF NOT EXISTS idx_prompts_category ON prompts(category);
CREATE TABLE IF NOT EXISTS prompt_tags (
  prompt_id TEXT NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
  tag       TEXT NOT NULL,
  PRIMARY KEY (prompt_id, tag)
);
CREATE TABLE IF NOT EXISTS favorites (
  user_id    TEXT NOT NULL,
  prompt_id  TEXT NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
  created_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, prompt_id)
);
CREATE TABLE IF NOT EXISTS credentials (
  seq        INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id    TEXT NOT NULL,
  provider   TEXT NOT NULL,
  secret     TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE (user_id, provider)
);
CREATE TABLE IF NOT EXISTS wizard_state (
  session_id TEXT NOT NULL,
  key        TEXT NOT NULL,
  value      TEXT NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (session_id, key)
);
INSERT OR IGNORE INTO categories (name, label, description, position) VALUES
  ('creative_writing', 'Creative Writing', 'Stories, poems and other fiction', 1),
  ('business', 'Business', 'Emails, plans, pitches and reports', 2),
  ('coding', 'Coding', 'Programming tasks and code review', 3),
  ('marketing', 'Marketing', 'Copy, campaigns and positioning', 4),
  ('education', 'Education', 'Lessons, explanations and quizzes', 5),
  ('research', 'Research', 'Summaries, analysis and literature review', 6),
  ('personal', 'Personal Productivity', 'Planning, habits and everyday tasks', 7),
  ('social_media', 'Social Media', 'Posts, threads and captions', 8);
`,
	// v2: provider call log
	`
CREATE TABLE IF NOT EXISTS llm_calls (
  id             TEXT PRIMARY KEY,
  timestamp      INTEGER NOT NULL,
  latency_ms     INTEGER NOT NULL,
  user_id        TEXT NOT NULL DEFAULT '',
  operation      TEXT NOT NULL,
  step           INTEGER,
  provider       TEXT NOT NULL,
  model          TEXT NOT NULL DEFAULT '',
  success        INTEGER NOT NULL,
  error_kind     TEXT NOT NULL DEFAULT '',
  error          TEXT NOT NULL DEFAULT '',
  response_chars INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_llm_calls_timestamp ON llm_calls(timestamp);
`,
}

// migrate applies user_version based migrations.
func (s *Store) migrate(ctx context.Context) error {
	var ver int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for ver < len(migrations) {
		next := ver + 1
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, migrations[ver])
		if err == nil {
			_, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d;", next))
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v%d: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		ver = next
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var ver int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver)
	return ver, err
}

func unixMilli(t time.Time) int64 {
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
