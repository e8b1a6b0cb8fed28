package providers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackzampolin/promptiverse/internal/prompts"
	"github.com/jackzampolin/promptiverse/internal/prompts/generate"
	"github.com/jackzampolin/promptiverse/internal/prompts/suggestions"
	"github.com/jackzampolin/promptiverse/internal/types"
)

// DefaultTimeout bounds every adapter operation.
const DefaultTimeout = 10 * time.Second

// Adapter is the interface every AI backend implements.
type Adapter interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// GenerateSuggestions returns suggestions for the request's step.
	GenerateSuggestions(ctx context.Context, req types.PromptRequest) ([]types.Suggestion, error)
}

// PromptGenerator is implemented by adapters that can write a full prompt.
// Callers type-assert for it; not every adapter has to support it.
type PromptGenerator interface {
	GeneratePrompt(ctx context.Context, req types.PromptRequest) (string, error)
}

// Options configures adapter construction. Zero values pick defaults.
type Options struct {
	Model      string
	BaseURL    string       // Optional (tests)
	RateLimit  float64      // Requests per second, 0 = unlimited
	Limiter    *RateLimiter // Shared pacing; overrides RateLimit when set
	Timeout    time.Duration
	HTTPClient *http.Client // Optional (tests)
	Resolver   *prompts.Resolver
	Logger     *slog.Logger
}

// completer issues one chat completion and returns the raw text.
// Implementations return *Error for every failure.
type completer interface {
	complete(ctx context.Context, system, user string, jsonOutput bool) (string, error)
}

// chatAdapter holds what the three backends share: deadline, pacing,
// prompt construction and response parsing.
type chatAdapter struct {
	name     string
	model    string
	timeout  time.Duration
	limiter  *RateLimiter
	resolver *prompts.Resolver
	logger   *slog.Logger
	backend  completer
}

func newChatAdapter(name, model string, opts Options, backend completer) *chatAdapter {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Resolver == nil {
		opts.Resolver = defaultResolver()
	}
	if opts.Limiter == nil {
		opts.Limiter = NewRateLimiter(opts.RateLimit)
	}
	return &chatAdapter{
		name:     name,
		model:    model,
		timeout:  opts.Timeout,
		limiter:  opts.Limiter,
		resolver: opts.Resolver,
		logger:   opts.Logger.With("provider", name),
		backend:  backend,
	}
}

// Name returns the provider identifier.
func (a *chatAdapter) Name() string {
	return a.name
}

// Model returns the model the adapter sends requests to.
func (a *chatAdapter) Model() string {
	return a.model
}

// Limiter exposes the adapter's pacing state.
func (a *chatAdapter) Limiter() *RateLimiter {
	return a.limiter
}

// GenerateSuggestions asks the backend for suggestions and parses the JSON reply.
func (a *chatAdapter) GenerateSuggestions(ctx context.Context, req types.PromptRequest) ([]types.Suggestion, error) {
	if !req.HasStep() {
		return nil, malformed(a.name, "request has no step", nil)
	}
	system, user, err := suggestions.Build(a.resolver, req)
	if err != nil {
		return nil, malformed(a.name, "failed to build suggestion prompt", err)
	}

	content, err := a.call(ctx, system, user, true)
	if err != nil {
		return nil, err
	}

	items, err := parseSuggestions(a.name, content, req.StepValue())
	if err != nil {
		a.logger.Debug("unparseable suggestion response", "content", truncate(content, 500), "error", err)
		return nil, err
	}
	return items, nil
}

// GeneratePrompt asks the backend for a complete prompt. A custom prompt in
// the request is sent verbatim.
func (a *chatAdapter) GeneratePrompt(ctx context.Context, req types.PromptRequest) (string, error) {
	system, user, err := generate.Build(a.resolver, req)
	if err != nil {
		return "", malformed(a.name, "failed to build generation prompt", err)
	}

	content, err := a.call(ctx, system, user, false)
	if err != nil {
		return "", err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", malformed(a.name, "no content returned", nil)
	}
	return content, nil
}

func (a *chatAdapter) call(ctx context.Context, system, user string, jsonOutput bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.limiter.Wait(ctx); err != nil {
		return "", transportError(ctx, a.name, err)
	}

	start := time.Now()
	content, err := a.backend.complete(ctx, system, user, jsonOutput)
	if err != nil {
		a.logger.Debug("completion failed", "model", a.model, "elapsed", time.Since(start), "error", err)
		return "", err
	}
	a.logger.Debug("completion finished", "model", a.model, "elapsed", time.Since(start), "length", len(content))
	return content, nil
}

var (
	_ Adapter         = (*chatAdapter)(nil)
	_ PromptGenerator = (*chatAdapter)(nil)
)
