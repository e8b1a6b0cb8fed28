package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackzampolin/promptiverse/internal/credentials"
)

// CredentialStore keeps per-user provider keys. It implements credentials.Store.
type CredentialStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ credentials.Store = (*CredentialStore)(nil)

// NewCredentialStore creates a credential store from a base store.
func NewCredentialStore(store *Store) *CredentialStore {
	if store == nil {
		return nil
	}
	return &CredentialStore{db: store.DB(), now: time.Now}
}

// Put stores or replaces a user's key for provider. Replacing keeps the
// original position in the user's ordering.
func (cs *CredentialStore) Put(ctx context.Context, userID, provider, secret string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	secret = strings.TrimSpace(secret)
	if userID == "" || provider == "" || secret == "" {
		return fmt.Errorf("%w credential: user, provider and secret are required", ErrInvalid)
	}
	_, err := cs.db.ExecContext(ctx,
		`INSERT INTO credentials (user_id, provider, secret, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, provider) DO UPDATE SET secret = excluded.secret`,
		userID, provider, secret, unixMilli(cs.now()))
	if err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}

// Delete removes a user's key for provider.
func (cs *CredentialStore) Delete(ctx context.Context, userID, provider string) error {
	res, err := cs.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE user_id = ? AND provider = ?`,
		userID, strings.ToLower(strings.TrimSpace(provider)))
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByProvider returns the user's key for provider, or nil.
func (cs *CredentialStore) GetByProvider(ctx context.Context, userID, provider string) (*credentials.Credential, error) {
	var secret string
	err := cs.db.QueryRowContext(ctx,
		`SELECT secret FROM credentials WHERE user_id = ? AND provider = ?`,
		userID, provider).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &credentials.Credential{Provider: provider, Secret: secret}, nil
}

// List returns the user's keys in insertion order.
func (cs *CredentialStore) List(ctx context.Context, userID string) ([]credentials.Credential, error) {
	rows, err := cs.db.QueryContext(ctx,
		`SELECT provider, secret FROM credentials WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []credentials.Credential
	for rows.Next() {
		var c credentials.Credential
		if err := rows.Scan(&c.Provider, &c.Secret); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
