// Package credentials looks up provider API keys for a user.
package credentials

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Credential is one provider API key.
type Credential struct {
	Provider string `json:"provider"`
	Secret   string `json:"-"`
}

// Hint returns a masked form of the secret safe to show.
func (c Credential) Hint() string {
	s := strings.TrimSpace(c.Secret)
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:3] + "..." + s[len(s)-4:]
}

// Store is the credential lookup the orchestrator depends on.
type Store interface {
	// GetByProvider returns the credential for provider, or nil if none exists.
	GetByProvider(ctx context.Context, userID, provider string) (*Credential, error)
	// List returns the user's credentials in the order they were added.
	List(ctx context.Context, userID string) ([]Credential, error)
}

// ConfigStore serves server-wide keys from config. Every user sees the same keys.
type ConfigStore struct {
	mu    sync.RWMutex
	creds []Credential
}

// NewConfigStore builds a store from resolved keys, ordered by order. Keys
// not named in order follow in sorted order.
func NewConfigStore(keys map[string]string, order []string) *ConfigStore {
	s := &ConfigStore{}
	s.Update(keys, order)
	return s
}

// Update replaces the keys.
func (s *ConfigStore) Update(keys map[string]string, order []string) {
	creds := make([]Credential, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	add := func(name string) {
		secret := strings.TrimSpace(keys[name])
		if secret == "" || seen[name] {
			return
		}
		seen[name] = true
		creds = append(creds, Credential{Provider: name, Secret: secret})
	}
	for _, name := range order {
		add(name)
	}
	for _, name := range sortedKeys(keys) {
		add(name)
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
}

// GetByProvider returns the configured key for provider.
func (s *ConfigStore) GetByProvider(_ context.Context, _ string, provider string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.creds {
		if c.Provider == provider {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

// List returns every configured key in order.
func (s *ConfigStore) List(context.Context, string) ([]Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Credential, len(s.creds))
	copy(out, s.creds)
	return out, nil
}

// Chain consults stores in order; the first store holding a provider wins.
type Chain []Store

// GetByProvider returns the first match across the chain.
func (c Chain) GetByProvider(ctx context.Context, userID, provider string) (*Credential, error) {
	for _, s := range c {
		cred, err := s.GetByProvider(ctx, userID, provider)
		if err != nil {
			return nil, err
		}
		if cred != nil {
			return cred, nil
		}
	}
	return nil, nil
}

// List merges the chain, keeping the first credential per provider.
func (c Chain) List(ctx context.Context, userID string) ([]Credential, error) {
	var out []Credential
	seen := make(map[string]bool)
	for _, s := range c {
		creds, err := s.List(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, cred := range creds {
			if seen[cred.Provider] {
				continue
			}
			seen[cred.Provider] = true
			out = append(out, cred)
		}
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
