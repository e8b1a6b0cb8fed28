package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionStore persists wizard state as key/value pairs per session.
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionStore creates a session store from a base store.
func NewSessionStore(store *Store) *SessionStore {
	if store == nil {
		return nil
	}
	return &SessionStore{db: store.DB(), now: time.Now}
}

// Get returns the stored value and whether it exists.
func (ss *SessionStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	var value string
	err := ss.db.QueryRowContext(ctx,
		`SELECT value FROM wizard_state WHERE session_id = ? AND key = ?`, sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session key %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes a value.
func (ss *SessionStore) Set(ctx context.Context, sessionID, key, value string) error {
	_, err := ss.db.ExecContext(ctx,
		`INSERT INTO wizard_state (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionID, key, value, unixMilli(ss.now()))
	if err != nil {
		return fmt.Errorf("set session key %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (ss *SessionStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	for _, key := range keys {
		if _, err := ss.db.ExecContext(ctx,
			`DELETE FROM wizard_state WHERE session_id = ? AND key = ?`, sessionID, key); err != nil {
			return fmt.Errorf("delete session key %s: %w", key, err)
		}
	}
	return nil
}
