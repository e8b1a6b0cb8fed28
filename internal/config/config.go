package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/promptiverse/internal/providers"
)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	defaults := DefaultConfig()
	for name, p := range defaults.Providers {
		v.SetDefault("providers."+name+".model", p.Model)
		v.SetDefault("providers."+name+".rate_limit", p.RateLimit)
		v.SetDefault("providers."+name+".enabled", p.Enabled)
	}
	for name, key := range defaults.APIKeys {
		v.SetDefault("api_keys."+name, key)
	}
	v.SetDefault("defaults.provider_order", defaults.Defaults.ProviderOrder)
	v.SetDefault("defaults.cache_ttl", defaults.Defaults.CacheTTL)
	v.SetDefault("defaults.request_timeout", defaults.Defaults.RequestTimeout)
	v.SetDefault("defaults.debounce", defaults.Defaults.Debounce)
	v.SetDefault("defaults.session_idle", defaults.Defaults.SessionIdle)
	v.SetDefault("cache.backend", defaults.Cache.Backend)
	v.SetDefault("cache.prefix", defaults.Cache.Prefix)
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)

	// Environment variables with PROMPTIVERSE_ prefix, e.g. PROMPTIVERSE_SERVER_PORT
	v.SetEnvPrefix("PROMPTIVERSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.promptiverse")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file in use, or "" when running on defaults.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ResolveAPIKey returns the API key for a provider with ${ENV_VAR} expanded.
func (c *Config) ResolveAPIKey(name string) string {
	return strings.TrimSpace(ResolveEnvVars(c.APIKeys[name]))
}

// ResolvedAPIKeys returns every API key with references expanded. Keys that
// resolve to nothing are left out.
func (c *Config) ResolvedAPIKeys() map[string]string {
	out := make(map[string]string, len(c.APIKeys))
	for name := range c.APIKeys {
		if key := c.ResolveAPIKey(name); key != "" {
			out[strings.ToLower(name)] = key
		}
	}
	return out
}

// ToFactoryConfig converts provider settings for providers.Factory.
func (c *Config) ToFactoryConfig() providers.FactoryConfig {
	cfg := providers.FactoryConfig{
		Providers: make(map[string]providers.ProviderConfig, len(c.Providers)),
		Timeout:   c.Defaults.RequestTimeout,
	}
	for name, p := range c.Providers {
		cfg.Providers[strings.ToLower(name)] = providers.ProviderConfig{
			Model:     p.Model,
			BaseURL:   p.BaseURL,
			RateLimit: p.RateLimit,
			Enabled:   p.Enabled,
		}
	}
	return cfg
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Promptiverse configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENAI_API_KEY=xxx GROQ_API_KEY=xxx GEMINI_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
