// Package orchestrator picks among the configured AI providers for every
// suggestion and prompt request. It caches responses, classifies provider
// failures and falls back to static suggestions when nothing works.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/promptiverse/internal/cache"
	"github.com/jackzampolin/promptiverse/internal/credentials"
	"github.com/jackzampolin/promptiverse/internal/llmcall"
	"github.com/jackzampolin/promptiverse/internal/notify"
	"github.com/jackzampolin/promptiverse/internal/providers"
	"github.com/jackzampolin/promptiverse/internal/types"
)

// Config configures an Orchestrator.
type Config struct {
	Credentials credentials.Store
	Factory     *providers.Factory

	// Caches default to in-memory caches with cache.DefaultTTL.
	SuggestionCache cache.Cache
	PromptCache     cache.Cache

	// Notifier receives user-facing warnings. Defaults to logging plus any
	// notify.Collector attached to the request context.
	Notifier notify.Notifier

	// Recorder is optional; every provider attempt is recorded when set.
	Recorder *llmcall.Recorder

	Logger *slog.Logger
}

// Orchestrator runs the provider fallback loop.
type Orchestrator struct {
	creds       credentials.Store
	factory     *providers.Factory
	suggestions cache.Cache
	prompts     cache.Cache
	notifier    notify.Notifier
	recorder    *llmcall.Recorder
	logger      *slog.Logger

	generating atomic.Int64
}

// New creates an orchestrator. Expired cache entries are purged once here;
// afterwards expiry is only checked on read.
func New(ctx context.Context, cfg Config) (*Orchestrator, error) {
	if cfg.Credentials == nil {
		return nil, errors.New("orchestrator: credential store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Factory == nil {
		cfg.Factory = providers.NewFactory(providers.FactoryConfig{Logger: cfg.Logger})
	}
	if cfg.SuggestionCache == nil {
		cfg.SuggestionCache = cache.NewMemoryCache(cache.DefaultTTL, nil)
	}
	if cfg.PromptCache == nil {
		cfg.PromptCache = cache.NewMemoryCache(cache.DefaultTTL, nil)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.ContextNotifier{Next: notify.LogNotifier{Logger: cfg.Logger}}
	}

	o := &Orchestrator{
		creds:       cfg.Credentials,
		factory:     cfg.Factory,
		suggestions: cfg.SuggestionCache,
		prompts:     cfg.PromptCache,
		notifier:    cfg.Notifier,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger,
	}

	swept := o.suggestions.Sweep(ctx) + o.prompts.Sweep(ctx)
	if swept > 0 {
		o.logger.Debug("purged expired cache entries", "count", swept)
	}
	return o, nil
}

// IsGenerating reports whether a provider round trip is in flight.
func (o *Orchestrator) IsGenerating() bool {
	return o.generating.Load() > 0
}

// AvailableProviders returns the known providers the current user has a
// credential for, in the order the credential store lists them.
func (o *Orchestrator) AvailableProviders(ctx context.Context) []string {
	creds, err := o.creds.List(ctx, credentials.UserFrom(ctx))
	if err != nil {
		o.logger.Warn("failed to list credentials", "error", err)
		return []string{}
	}
	names := make([]string, 0, len(creds))
	seen := make(map[string]bool, len(creds))
	for _, c := range creds {
		if !providers.IsKnown(c.Provider) || seen[c.Provider] {
			continue
		}
		seen[c.Provider] = true
		names = append(names, c.Provider)
	}
	return names
}

// GenerateSuggestions returns suggestions for the request's step. It never
// fails: every error path ends in the static fallback table.
func (o *Orchestrator) GenerateSuggestions(ctx context.Context, req types.PromptRequest) []types.Suggestion {
	if !req.HasStep() {
		return providers.FallbackSuggestions(types.StepCategory)
	}
	step := *req.Step

	names := o.AvailableProviders(ctx)
	if len(names) == 0 {
		return providers.FallbackSuggestions(step)
	}

	key := SuggestionKey(req)
	if cached, ok := o.cachedSuggestions(ctx, key); ok {
		return cached
	}

	o.generating.Add(1)
	defer o.generating.Add(-1)

	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		adapter := o.adapter(ctx, name)
		if adapter == nil {
			continue
		}

		started := time.Now()
		out, err := adapter.GenerateSuggestions(ctx, req)
		o.record(ctx, llmcall.OpSuggestions, req, name, started, len(out), err)
		if err == nil {
			o.storeSuggestions(ctx, key, out)
			return out
		}

		switch providers.KindOf(err) {
		case providers.KindAuth:
			o.warn(ctx, name, fmt.Sprintf("Invalid API key for %s. Trying the next provider.", name))
		case providers.KindRateLimit:
			o.warn(ctx, name, fmt.Sprintf("%s is rate limited. Showing offline suggestions.", name))
			return providers.FallbackSuggestions(step)
		default:
			o.logger.Info("provider failed, trying next", "provider", name, "kind", providers.KindOf(err), "error", err)
		}
	}
	return providers.FallbackSuggestions(step)
}

// GeneratePrompt returns a finished prompt from the first provider that can
// produce one, or "" with a notice when none can.
func (o *Orchestrator) GeneratePrompt(ctx context.Context, req types.PromptRequest) string {
	names := o.AvailableProviders(ctx)
	if len(names) == 0 {
		o.warn(ctx, "", "No AI providers configured. Add an API key to generate prompts.")
		return ""
	}

	cacheable := !req.IsCustom()
	key := PromptKey(req)
	if cacheable {
		if payload, ok := o.prompts.Get(ctx, key); ok {
			return string(payload)
		}
	}

	o.generating.Add(1)
	defer o.generating.Add(-1)

	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		adapter := o.adapter(ctx, name)
		if adapter == nil {
			continue
		}
		gen, ok := adapter.(providers.PromptGenerator)
		if !ok {
			o.logger.Debug("provider cannot generate prompts", "provider", name)
			continue
		}

		started := time.Now()
		text, err := gen.GeneratePrompt(ctx, req)
		o.record(ctx, llmcall.OpPrompt, req, name, started, len(text), err)
		if err == nil {
			if cacheable {
				o.prompts.Set(ctx, key, []byte(text))
			}
			return text
		}

		switch providers.KindOf(err) {
		case providers.KindAuth:
			o.warn(ctx, name, fmt.Sprintf("Invalid API key for %s. Trying the next provider.", name))
		case providers.KindRateLimit:
			o.warn(ctx, name, fmt.Sprintf("%s is rate limited. Try again in a moment.", name))
			return ""
		default:
			o.logger.Info("provider failed, trying next", "provider", name, "kind", providers.KindOf(err), "error", err)
		}
	}

	o.notifier.Notify(ctx, notify.Notice{Level: notify.LevelError, Message: "Failed to generate prompt with any configured provider."})
	return ""
}

// adapter builds the adapter for name, or nil when the user has no key for it
// or construction fails.
func (o *Orchestrator) adapter(ctx context.Context, name string) providers.Adapter {
	cred, err := o.creds.GetByProvider(ctx, credentials.UserFrom(ctx), name)
	if err != nil {
		o.logger.Warn("credential lookup failed", "provider", name, "error", err)
		return nil
	}
	if cred == nil {
		return nil
	}
	adapter, err := o.factory.Create(name, cred.Secret)
	if err != nil {
		o.logger.Warn("could not create adapter", "provider", name, "error", err)
		return nil
	}
	return adapter
}

func (o *Orchestrator) cachedSuggestions(ctx context.Context, key string) ([]types.Suggestion, bool) {
	payload, ok := o.suggestions.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var out []types.Suggestion
	if err := json.Unmarshal(payload, &out); err != nil {
		o.logger.Warn("discarding unreadable cache entry", "error", err)
		return nil, false
	}
	return out, true
}

func (o *Orchestrator) storeSuggestions(ctx context.Context, key string, s []types.Suggestion) {
	payload, err := json.Marshal(s)
	if err != nil {
		o.logger.Warn("failed to encode suggestions for cache", "error", err)
		return
	}
	o.suggestions.Set(ctx, key, payload)
}

func (o *Orchestrator) warn(ctx context.Context, provider, msg string) {
	o.notifier.Notify(ctx, notify.Notice{Level: notify.LevelWarning, Provider: provider, Message: msg})
}

func (o *Orchestrator) record(ctx context.Context, op llmcall.Operation, req types.PromptRequest, provider string, started time.Time, size int, err error) {
	if o.recorder == nil {
		return
	}
	o.recorder.Record(llmcall.NewCall(llmcall.RecordOptions{
		UserID:       credentials.UserFrom(ctx),
		Operation:    op,
		Step:         req.Step,
		Provider:     provider,
		Started:      started,
		ResponseSize: size,
		ErrorKind:    string(providers.KindOf(err)),
		Err:          err,
	}))
}
