// Package wizard drives the four-step prompt builder: category, tone and
// audience, details, then preview. Sessions survive restarts through a
// StateStore.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultIdleTimeout is how long an untouched session stays in memory.
const DefaultIdleTimeout = 30 * time.Minute

// Config configures a Manager.
type Config struct {
	Generator   Generator
	Saver       PromptSaver
	States      StateStore // Defaults to an in-memory store
	Debounce    time.Duration
	IdleTimeout time.Duration // Defaults to DefaultIdleTimeout
	Logger      *slog.Logger
}

// Manager hands out sessions, loading persisted state on first use.
// Sessions idle longer than the timeout are dropped from memory on the next
// lookup; their persisted state is restored if the id comes back.
type Manager struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	lastUsed map[string]time.Time
	closed   bool
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	if cfg.States == nil {
		cfg.States = NewMemoryStateStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Manager{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
		lastUsed: make(map[string]time.Time),
	}
}

// Session returns the session for id, restoring it from the store if needed.
func (m *Manager) Session(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("session id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("wizard manager closed")
	}
	now := m.now()
	m.evictIdle(now, id)
	if s, ok := m.sessions[id]; ok {
		m.lastUsed[id] = now
		return s, nil
	}

	state, err := loadState(ctx, m.cfg.States, id, m.cfg.Logger)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:        id,
		gen:       m.cfg.Generator,
		saver:     m.cfg.Saver,
		states:    m.cfg.States,
		logger:    m.cfg.Logger.With("component", "wizard"),
		debouncer: NewDebouncer(m.cfg.Debounce),
		state:     state,
	}
	m.sessions[id] = s
	m.lastUsed[id] = now
	return s, nil
}

// Len returns the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// evictIdle drops sessions not looked up within the idle timeout, except
// keep. Callers hold m.mu.
func (m *Manager) evictIdle(now time.Time, keep string) {
	for id, s := range m.sessions {
		if id == keep || now.Sub(m.lastUsed[id]) < m.cfg.IdleTimeout {
			continue
		}
		s.debouncer.Stop()
		delete(m.sessions, id)
		delete(m.lastUsed, id)
		m.cfg.Logger.Debug("wizard session evicted", "session", id)
	}
}

// Close stops background suggestion lookups for every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, s := range m.sessions {
		s.debouncer.Stop()
	}
}
