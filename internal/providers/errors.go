package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies adapter failures so the orchestrator can pick a policy
// without inspecting provider payloads.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindTransient ErrorKind = "transient"
	KindMalformed ErrorKind = "malformed"
)

// Error is returned by every adapter operation.
type Error struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same Kind, so errors.Is(err, ErrRateLimit) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is.
var (
	ErrAuth      = &Error{Kind: KindAuth}
	ErrRateLimit = &Error{Kind: KindRateLimit}
	ErrTransient = &Error{Kind: KindTransient}
	ErrMalformed = &Error{Kind: KindMalformed}
)

// KindOf returns the kind of err. Errors that did not come from an adapter
// are classified from their message so foreign failures still get a policy.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "API key"), strings.Contains(strings.ToLower(msg), "authentication"):
		return KindAuth
	case strings.Contains(msg, "429"), strings.Contains(msg, "Too Many Requests"):
		return KindRateLimit
	}
	return KindTransient
}

// errorForStatus maps a non-2xx HTTP status to a typed error.
func errorForStatus(provider string, status int, body string) *Error {
	body = truncate(strings.TrimSpace(body), 300)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindAuth, Provider: provider, StatusCode: status, Message: "invalid API key", Cause: bodyErr(body)}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimit, Provider: provider, StatusCode: status, Message: "429 Too Many Requests", Cause: bodyErr(body)}
	case status >= 500:
		return &Error{Kind: KindTransient, Provider: provider, StatusCode: status, Message: fmt.Sprintf("server error (status %d)", status), Cause: bodyErr(body)}
	}
	return &Error{Kind: KindTransient, Provider: provider, StatusCode: status, Message: fmt.Sprintf("request rejected (status %d)", status), Cause: bodyErr(body)}
}

// transportError wraps a failure that happened before a status was read.
// A deadline hit on ctx reads as a timeout.
func transportError(ctx context.Context, provider string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTransient, Provider: provider, Message: "request timed out", Cause: err}
	}
	return &Error{Kind: KindTransient, Provider: provider, Message: "request failed", Cause: err}
}

func malformed(provider, msg string, cause error) *Error {
	return &Error{Kind: KindMalformed, Provider: provider, Message: msg, Cause: cause}
}

func bodyErr(body string) error {
	if body == "" {
		return nil
	}
	return errors.New(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
