// Package notify carries user-facing notices (warnings and errors about
// provider failures) out of the orchestrator.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a single message meant for the user.
type Notice struct {
	Level    Level  `json:"level"`
	Provider string `json:"provider,omitempty"`
	Message  string `json:"message"`
}

// Notifier receives notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// LogNotifier writes notices to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs n at a level matching its severity.
func (l LogNotifier) Notify(ctx context.Context, n Notice) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch n.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	logger.Log(ctx, level, n.Message, "provider", n.Provider, "notice", true)
}

// Collector keeps notices in memory, typically for one request.
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify records n.
func (c *Collector) Notify(_ context.Context, n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

// Notices returns what has been collected so far.
func (c *Collector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

type collectorKey struct{}

// WithCollector attaches c to ctx so a ContextNotifier delivers to it.
func WithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, collectorKey{}, c)
}

// CollectorFrom returns the collector attached to ctx, or nil.
func CollectorFrom(ctx context.Context) *Collector {
	c, _ := ctx.Value(collectorKey{}).(*Collector)
	return c
}

// ContextNotifier forwards to Next and to any Collector found in the context.
type ContextNotifier struct {
	Next Notifier
}

// Notify delivers n.
func (c ContextNotifier) Notify(ctx context.Context, n Notice) {
	if c.Next != nil {
		c.Next.Notify(ctx, n)
	}
	if col := CollectorFrom(ctx); col != nil {
		col.Notify(ctx, n)
	}
}
