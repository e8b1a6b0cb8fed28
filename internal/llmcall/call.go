// Package llmcall records every provider call the orchestrator makes so
// fallback behavior can be inspected after the fact.
package llmcall

import (
	"time"

	"github.com/google/uuid"
)

// Operation names the kind of request sent to a provider.
type Operation string

const (
	OpSuggestions Operation = "suggestions"
	OpPrompt      Operation = "prompt"
	OpTest        Operation = "test"
)

// Call represents a recorded provider call.
type Call struct {
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	UserID    string    `json:"user_id,omitempty"`
	Operation Operation `json:"operation"`
	Step      *int      `json:"step,omitempty"`

	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`

	// Number of suggestions returned, or characters of prompt text.
	ResponseSize int `json:"response_size"`

	Success   bool   `json:"success"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RecordOptions describes one finished call.
type RecordOptions struct {
	UserID       string
	Operation    Operation
	Step         *int
	Provider     string
	Model        string
	Started      time.Time
	ResponseSize int
	ErrorKind    string
	Err          error
}

// NewCall builds a Call from opts, stamping ID and latency.
func NewCall(opts RecordOptions) *Call {
	now := time.Now()
	started := opts.Started
	if started.IsZero() {
		started = now
	}
	c := &Call{
		ID:           uuid.New().String(),
		Timestamp:    started,
		LatencyMs:    int(now.Sub(started).Milliseconds()),
		UserID:       opts.UserID,
		Operation:    opts.Operation,
		Provider:     opts.Provider,
		Model:        opts.Model,
		ResponseSize: opts.ResponseSize,
		Success:      opts.Err == nil,
	}
	if opts.Step != nil {
		step := *opts.Step
		c.Step = &step
	}
	if opts.Err != nil {
		c.ErrorKind = opts.ErrorKind
		c.Error = opts.Err.Error()
	}
	return c
}
