package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jackzampolin/promptiverse/internal/api"
	"github.com/jackzampolin/promptiverse/internal/cache"
	"github.com/jackzampolin/promptiverse/internal/config"
	"github.com/jackzampolin/promptiverse/internal/credentials"
	"github.com/jackzampolin/promptiverse/internal/home"
	"github.com/jackzampolin/promptiverse/internal/llmcall"
	"github.com/jackzampolin/promptiverse/internal/orchestrator"
	"github.com/jackzampolin/promptiverse/internal/prompts"
	"github.com/jackzampolin/promptiverse/internal/prompts/catalog"
	"github.com/jackzampolin/promptiverse/internal/providers"
	"github.com/jackzampolin/promptiverse/internal/server/endpoints"
	"github.com/jackzampolin/promptiverse/internal/store"
	"github.com/jackzampolin/promptiverse/internal/svcctx"
	"github.com/jackzampolin/promptiverse/internal/wizard"
)

// Server is the main Promptiverse HTTP server.
// It owns the SQLite database and the response caches, opening them on
// start and closing them on shutdown.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	factory    *providers.Factory
	resolver   *prompts.Resolver
	configMgr  *config.Manager
	cfg        Config
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// serverKeys serves config-level API keys; refreshed on config change
	serverKeys *credentials.ConfigStore

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	closers  []io.Closer
	recorder *llmcall.Recorder
	wizard   *wizard.Manager

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// DatabasePath is the SQLite file. ":memory:" keeps everything in memory.
	// Defaults to the home directory's database.
	DatabasePath string
	// Home is the promptiverse home directory
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Factory overrides the provider factory; tests register mock adapters on it
	Factory *providers.Factory
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	appCfg := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		appCfg = cfg.ConfigManager.Get()
	}
	if cfg.Host == "" {
		cfg.Host = appCfg.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = appCfg.Server.Port
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DatabasePath == "" {
		if appCfg.Storage.Path != "" {
			cfg.DatabasePath = appCfg.Storage.Path
		} else if cfg.Home != nil {
			cfg.DatabasePath = cfg.Home.DatabasePath()
		} else {
			return nil, errors.New("database path or home directory required")
		}
	}

	// Prompt templates with any config overrides
	resolver := catalog.New(cfg.Logger)
	resolver.SetOverrides(appCfg.PromptOverrides)

	factoryCfg := appCfg.ToFactoryConfig()
	factoryCfg.Resolver = resolver
	factoryCfg.Logger = cfg.Logger
	factory := cfg.Factory
	if factory == nil {
		factory = providers.NewFactory(factoryCfg)
	} else {
		factory.Reload(factoryCfg)
	}

	s := &Server{
		factory:    factory,
		resolver:   resolver,
		configMgr:  cfg.ConfigManager,
		cfg:        cfg,
		logger:     cfg.Logger,
		serverKeys: credentials.NewConfigStore(appCfg.ResolvedAPIKeys(), appCfg.Defaults.ProviderOrder),
	}

	// If config manager provided, watch for config changes
	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(s.reload)
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)
	s.handler = s.withUser(s.withServices(mux))

	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:     s.handler,
		ReadTimeout: 30 * time.Second,
		// Prompt generation may walk every provider before answering.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// reload re-applies provider settings, prompt overrides and server-wide keys.
func (s *Server) reload(c *config.Config) {
	factoryCfg := c.ToFactoryConfig()
	factoryCfg.Resolver = s.resolver
	factoryCfg.Logger = s.logger
	s.factory.Reload(factoryCfg)
	s.resolver.SetOverrides(c.PromptOverrides)
	s.serverKeys.Update(c.ResolvedAPIKeys(), c.Defaults.ProviderOrder)
	s.logger.Info("provider settings reloaded from config")
}

// Init opens the database and builds the services. Start calls it; tests
// call it directly and serve Handler through httptest.
func (s *Server) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.services != nil {
		return nil
	}

	appCfg := config.DefaultConfig()
	if s.configMgr != nil {
		appCfg = s.configMgr.Get()
	}

	s.logger.Info("opening database", "path", s.cfg.DatabasePath)
	db, err := store.Open(ctx, s.cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.closers = append(s.closers, db)

	suggestionCache, promptCache, err := s.newCaches(ctx, appCfg)
	if err != nil {
		s.closeAll()
		return err
	}

	calls := llmcall.NewStore(db.DB())
	s.recorder = llmcall.NewRecorder(llmcall.RecorderConfig{
		Writer: calls,
		Logger: s.logger,
	})
	s.recorder.Start(ctx)

	userKeys := store.NewCredentialStore(db)
	orch, err := orchestrator.New(ctx, orchestrator.Config{
		// A user's own keys take precedence over server-wide ones.
		Credentials:     credentials.Chain{userKeys, s.serverKeys},
		Factory:         s.factory,
		SuggestionCache: suggestionCache,
		PromptCache:     promptCache,
		Recorder:        s.recorder,
		Logger:          s.logger,
	})
	if err != nil {
		s.recorder.Stop()
		s.closeAll()
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	promptStore := store.NewPromptStore(db)
	s.wizard = wizard.NewManager(wizard.Config{
		Generator:   orch,
		Saver:       promptStore,
		States:      store.NewSessionStore(db),
		Debounce:    appCfg.Defaults.Debounce,
		IdleTimeout: appCfg.Defaults.SessionIdle,
		Logger:      s.logger,
	})

	s.services = &svcctx.Services{
		Orchestrator:    orch,
		Wizard:          s.wizard,
		Factory:         s.factory,
		PromptResolver:  s.resolver,
		Store:           db,
		PromptStore:     promptStore,
		CategoryStore:   store.NewCategoryStore(db),
		CredentialStore: userKeys,
		LLMCallStore:    calls,
		ConfigManager:   s.configMgr,
		Logger:          s.logger,
		Home:            s.cfg.Home,
	}
	return nil
}

// newCaches builds the suggestion and prompt caches for the configured backend.
func (s *Server) newCaches(ctx context.Context, c *config.Config) (cache.Cache, cache.Cache, error) {
	ttl := c.Defaults.CacheTTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	switch strings.ToLower(c.Cache.Backend) {
	case "", "memory":
		return cache.NewMemoryCache(ttl, nil), cache.NewMemoryCache(ttl, nil), nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:    config.ResolveEnvVars(c.Cache.RedisURL),
			Prefix: c.Cache.Prefix,
			TTL:    ttl,
			Logger: s.logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis cache: %w", err)
		}
		s.closers = append(s.closers, rc)
		s.logger.Info("using redis response cache", "prefix", c.Cache.Prefix)
		return rc.WithPrefix("suggestions:"), rc.WithPrefix("prompts:"), nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q (want memory or redis)", c.Cache.Backend)
	}
}

// Start starts the server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Init(ctx); err != nil {
		s.setNotRunning()
		return err
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops the HTTP server, then flushes and closes everything Init opened.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.Close()
	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// Close releases everything Init opened. Pending call records are flushed
// before the database closes.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wizard != nil {
		s.wizard.Close()
	}
	if s.recorder != nil {
		s.recorder.Stop()
	}
	s.closeAll()
	s.services = nil
}

func (s *Server) closeAll() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Error("close error", "error", err)
		}
	}
	s.closers = nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Factory returns the provider factory.
func (s *Server) Factory() *providers.Factory {
	return s.factory
}

// Services returns the initialized services, or nil before Init.
func (s *Server) Services() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if services := s.Services(); services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withUser takes the caller's identity from the X-User-ID header.
func (s *Server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := credentials.WithUser(r.Context(), r.Header.Get(api.UserHeader))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the database isn't open yet.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svcctx.ServicesFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
