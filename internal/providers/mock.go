package providers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/promptiverse/internal/types"
)

const MockAdapterName = "mock"

// MockAdapter is an Adapter and PromptGenerator for testing.
type MockAdapter struct {
	// Configurable behavior
	ProviderName string
	Latency      time.Duration
	Err          error // Returned by every call when set
	Suggestions  []types.Suggestion
	Prompt       string

	// State
	suggestCalls atomic.Int64
	promptCalls  atomic.Int64

	mu       sync.Mutex
	requests []types.PromptRequest
}

// NewMockAdapter creates a mock adapter that returns five suggestions.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{
		ProviderName: name,
		Suggestions: []types.Suggestion{
			{Type: types.SuggestionTone, Value: "warm", Text: "Warm"},
			{Type: types.SuggestionTone, Value: "direct", Text: "Direct"},
			{Type: types.SuggestionTone, Value: "playful", Text: "Playful"},
			{Type: types.SuggestionTone, Value: "calm", Text: "Calm"},
			{Type: types.SuggestionTone, Value: "bold", Text: "Bold"},
		},
		Prompt: "mock prompt",
	}
}

// Name returns the adapter identifier.
func (m *MockAdapter) Name() string {
	if m.ProviderName == "" {
		return MockAdapterName
	}
	return m.ProviderName
}

// GenerateSuggestions returns the configured suggestions or error.
func (m *MockAdapter) GenerateSuggestions(ctx context.Context, req types.PromptRequest) ([]types.Suggestion, error) {
	m.suggestCalls.Add(1)
	m.record(req)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]types.Suggestion, len(m.Suggestions))
	copy(out, m.Suggestions)
	return out, nil
}

// GeneratePrompt returns the configured prompt or error. A custom prompt is echoed
// back with the configured prompt as prefix so tests can see it arrived.
func (m *MockAdapter) GeneratePrompt(ctx context.Context, req types.PromptRequest) (string, error) {
	m.promptCalls.Add(1)
	m.record(req)
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if req.IsCustom() {
		return m.Prompt + ": " + req.CustomPrompt, nil
	}
	return m.Prompt, nil
}

func (m *MockAdapter) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Latency):
		return nil
	case <-ctx.Done():
		return transportError(ctx, m.Name(), ctx.Err())
	}
}

func (m *MockAdapter) record(req types.PromptRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// SuggestCalls returns the number of GenerateSuggestions calls.
func (m *MockAdapter) SuggestCalls() int64 {
	return m.suggestCalls.Load()
}

// PromptCalls returns the number of GeneratePrompt calls.
func (m *MockAdapter) PromptCalls() int64 {
	return m.promptCalls.Load()
}

// Requests returns every request seen, in order.
func (m *MockAdapter) Requests() []types.PromptRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.PromptRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// SuggestOnly wraps an adapter and hides its PromptGenerator capability.
type SuggestOnly struct {
	Adapter
}

// MockConstructor returns a Constructor that always hands out m.
func MockConstructor(m Adapter) Constructor {
	return func(string, Options) (Adapter, error) { return m, nil }
}

var (
	_ Adapter         = (*MockAdapter)(nil)
	_ PromptGenerator = (*MockAdapter)(nil)
)
