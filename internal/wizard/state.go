package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/jackzampolin/promptiverse/internal/types"
)

// Persisted keys, one record per session.
const (
	KeyFormData        = "form_data"
	KeyCurrentStep     = "current_step"
	KeyGeneratedPrompt = "generated_prompt"
)

// State is the whole wizard session.
type State struct {
	Step            int    `json:"step"`
	Form            Form   `json:"form"`
	GeneratedPrompt string `json:"generated_prompt"`
}

// InitialState is a fresh wizard at the category step.
func InitialState() State {
	return State{Step: types.StepCategory, Form: Form{Components: map[string]string{}}}
}

func (s State) clone() State {
	s.Form = s.Form.clone()
	return s
}

// StateStore is a durable key/value record per session.
// *store.SessionStore implements it.
type StateStore interface {
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID string, keys ...string) error
}

// loadState reads a session. Missing or unreadable keys fall back to the
// initial value for that key.
func loadState(ctx context.Context, st StateStore, sessionID string, logger *slog.Logger) (State, error) {
	state := InitialState()

	raw, ok, err := st.Get(ctx, sessionID, KeyFormData)
	if err != nil {
		return state, err
	}
	if ok {
		var f Form
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			logger.Warn("ignoring unreadable wizard form", "session", sessionID, "error", err)
		} else {
			if f.Components == nil {
				f.Components = map[string]string{}
			}
			state.Form = f
		}
	}

	raw, ok, err = st.Get(ctx, sessionID, KeyCurrentStep)
	if err != nil {
		return state, err
	}
	if ok {
		step, err := strconv.Atoi(raw)
		if err != nil || step < types.StepCategory || step > types.StepPreview {
			logger.Warn("ignoring invalid wizard step", "session", sessionID, "value", raw)
		} else {
			state.Step = step
		}
	}

	raw, ok, err = st.Get(ctx, sessionID, KeyGeneratedPrompt)
	if err != nil {
		return state, err
	}
	if ok {
		state.GeneratedPrompt = raw
	}
	return state, nil
}

func saveState(ctx context.Context, st StateStore, sessionID string, state State) error {
	form, err := json.Marshal(state.Form)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	if err := st.Set(ctx, sessionID, KeyFormData, string(form)); err != nil {
		return err
	}
	if err := st.Set(ctx, sessionID, KeyCurrentStep, strconv.Itoa(state.Step)); err != nil {
		return err
	}
	return st.Set(ctx, sessionID, KeyGeneratedPrompt, state.GeneratedPrompt)
}

func clearState(ctx context.Context, st StateStore, sessionID string) error {
	return st.Delete(ctx, sessionID, KeyFormData, KeyCurrentStep, KeyGeneratedPrompt)
}

// MemoryStateStore keeps session records in process memory.
type MemoryStateStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

// NewMemoryStateStore creates an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{data: make(map[string]map[string]string)}
}

// Get returns a stored value.
func (m *MemoryStateStore) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[sessionID][key]
	return v, ok, nil
}

// Set writes a value.
func (m *MemoryStateStore) Set(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[sessionID] == nil {
		m.data[sessionID] = make(map[string]string)
	}
	m.data[sessionID][key] = value
	return nil
}

// Delete removes keys.
func (m *MemoryStateStore) Delete(_ context.Context, sessionID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data[sessionID], k)
	}
	if len(m.data[sessionID]) == 0 {
		delete(m.data, sessionID)
	}
	return nil
}
