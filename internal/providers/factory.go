package providers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackzampolin/promptiverse/internal/prompts"
	"github.com/jackzampolin/promptiverse/internal/prompts/catalog"
)

var (
	// ErrUnknownProvider is returned for names outside the allow-list.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrAdapterConstruction is returned when an adapter cannot be built.
	ErrAdapterConstruction = errors.New("adapter construction failed")
	// ErrProviderDisabled is returned for providers switched off in config.
	ErrProviderDisabled = errors.New("provider disabled")
)

// KnownProviders is the allow-list of provider names, in default priority order.
var KnownProviders = []string{OpenAIName, GroqName, GeminiName}

// IsKnown reports whether name is on the allow-list.
func IsKnown(name string) bool {
	for _, p := range KnownProviders {
		if p == name {
			return true
		}
	}
	return false
}

// Constructor builds an adapter from a secret.
type Constructor func(secret string, opts Options) (Adapter, error)

var builtins = map[string]Constructor{
	OpenAIName: func(secret string, opts Options) (Adapter, error) { return NewOpenAIAdapter(secret, opts), nil },
	GroqName:   func(secret string, opts Options) (Adapter, error) { return NewGroqAdapter(secret, opts), nil },
	GeminiName: func(secret string, opts Options) (Adapter, error) { return NewGeminiAdapter(secret, opts), nil },
}

// Create builds the adapter for name with default options.
func Create(name, secret string) (Adapter, error) {
	return NewFactory(FactoryConfig{}).Create(name, secret)
}

// ProviderConfig holds per-provider settings from config.
type ProviderConfig struct {
	Model     string
	BaseURL   string
	RateLimit float64 // Requests per second
	Enabled   bool
}

// FactoryConfig configures a Factory.
type FactoryConfig struct {
	// Providers maps provider names to their settings. Missing entries use defaults.
	Providers map[string]ProviderConfig
	Timeout   time.Duration
	Resolver  *prompts.Resolver
	Logger    *slog.Logger
}

// Factory builds adapters by name. Per-provider options can be swapped at
// runtime with Reload; adapters already handed out keep their settings.
// Adapters created for the same provider share one RateLimiter until the
// next Reload, so pacing holds across requests.
type Factory struct {
	mu           sync.RWMutex
	cfg          FactoryConfig
	constructors map[string]Constructor
	limiters     map[string]*RateLimiter
	logger       *slog.Logger
}

// NewFactory creates a factory with the built-in constructors.
func NewFactory(cfg FactoryConfig) *Factory {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = defaultResolver()
	}
	f := &Factory{
		cfg:          cfg,
		constructors: make(map[string]Constructor, len(builtins)),
		limiters:     make(map[string]*RateLimiter),
		logger:       cfg.Logger,
	}
	for name, c := range builtins {
		f.constructors[name] = c
	}
	return f
}

// Register replaces the constructor for a provider name.
func (f *Factory) Register(name string, c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = c
}

// Reload swaps the per-provider settings and drops the shared limiters.
func (f *Factory) Reload(cfg FactoryConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg.Logger == nil {
		cfg.Logger = f.cfg.Logger
	}
	if cfg.Resolver == nil {
		cfg.Resolver = f.cfg.Resolver
	}
	f.cfg = cfg
	f.limiters = make(map[string]*RateLimiter)
	f.logger = cfg.Logger
	f.logger.Info("provider settings reloaded", "providers", len(cfg.Providers))
}

// Create builds the adapter for name. It never returns a partially built
// adapter: on any error the adapter is nil.
func (f *Factory) Create(name, secret string) (Adapter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !IsKnown(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	f.mu.RLock()
	construct, ok := f.constructors[name]
	pc, configured := f.cfg.Providers[name]
	opts := Options{
		Timeout:  f.cfg.Timeout,
		Resolver: f.cfg.Resolver,
		Logger:   f.logger,
	}
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if configured {
		if !pc.Enabled {
			return nil, fmt.Errorf("%w: %s", ErrProviderDisabled, name)
		}
		opts.Model = pc.Model
		opts.BaseURL = pc.BaseURL
		opts.RateLimit = pc.RateLimit
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: %s: empty API key", ErrAdapterConstruction, name)
	}
	opts.Limiter = f.limiter(name, opts.RateLimit)

	adapter, err := construct(secret, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAdapterConstruction, name, err)
	}
	if adapter == nil {
		return nil, fmt.Errorf("%w: %s: constructor returned nil", ErrAdapterConstruction, name)
	}
	return adapter, nil
}

// limiter returns the shared limiter for name, creating it on first use.
func (f *Factory) limiter(name string, rps float64) *RateLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rl, ok := f.limiters[name]; ok {
		return rl
	}
	rl := NewRateLimiter(rps)
	f.limiters[name] = rl
	return rl
}

var (
	resolverOnce sync.Once
	resolver     *prompts.Resolver
)

func defaultResolver() *prompts.Resolver {
	resolverOnce.Do(func() {
		resolver = catalog.New(nil)
	})
	return resolver
}
