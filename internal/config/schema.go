package config

import (
	"time"

	"github.com/jackzampolin/promptiverse/internal/cache"
	"github.com/jackzampolin/promptiverse/internal/providers"
	"github.com/jackzampolin/promptiverse/internal/wizard"
)

// Config holds promptiverse configuration.
// Stored at: ~/.promptiverse/config.yaml
type Config struct {
	Providers       map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	APIKeys         map[string]string      `mapstructure:"api_keys" yaml:"api_keys"`
	Defaults        DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
	Cache           CacheCfg               `mapstructure:"cache" yaml:"cache"`
	Server          ServerCfg              `mapstructure:"server" yaml:"server"`
	Storage         StorageCfg             `mapstructure:"storage" yaml:"storage"`
	PromptOverrides map[string]string      `mapstructure:"prompt_overrides" yaml:"prompt_overrides,omitempty"`
}

// ProviderCfg configures an AI provider.
type ProviderCfg struct {
	Model     string  `mapstructure:"model" yaml:"model"`           // Overrides the provider's default model
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`     // For proxies and compatible endpoints
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second, 0 for unlimited
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg holds orchestration defaults.
type DefaultsCfg struct {
	ProviderOrder  []string      `mapstructure:"provider_order" yaml:"provider_order"`   // Order server-wide keys are tried
	CacheTTL       time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`             // Suggestion and prompt cache lifetime
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // Per provider call
	Debounce       time.Duration `mapstructure:"debounce" yaml:"debounce"`               // Wizard suggestion refresh delay
	SessionIdle    time.Duration `mapstructure:"session_idle" yaml:"session_idle"`       // Wizard sessions idle this long leave memory
}

// CacheCfg selects the response cache backend.
type CacheCfg struct {
	Backend  string `mapstructure:"backend" yaml:"backend"` // "memory" or "redis"
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// StorageCfg locates the SQLite database. Empty uses the home directory.
type StorageCfg struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderCfg{
			providers.OpenAIName: {Model: "gpt-4o-mini", RateLimit: 5, Enabled: true},
			providers.GroqName:   {Model: "llama-3.3-70b-versatile", RateLimit: 5, Enabled: true},
			providers.GeminiName: {Model: "gemini-1.5-flash", RateLimit: 5, Enabled: true},
		},
		APIKeys: map[string]string{
			providers.OpenAIName: "${OPENAI_API_KEY}",
			providers.GroqName:   "${GROQ_API_KEY}",
			providers.GeminiName: "${GEMINI_API_KEY}",
		},
		Defaults: DefaultsCfg{
			ProviderOrder:  []string{providers.OpenAIName, providers.GroqName, providers.GeminiName},
			CacheTTL:       cache.DefaultTTL,
			RequestTimeout: providers.DefaultTimeout,
			Debounce:       wizard.DefaultDebounce,
			SessionIdle:    wizard.DefaultIdleTimeout,
		},
		Cache: CacheCfg{
			Backend: "memory",
			Prefix:  "promptiverse:",
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
	}
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
