package providers

import (
	"os"
)

// TestConfig holds provider API keys loaded from environment variables.
// Live tests use it to decide what they can exercise.
type TestConfig struct {
	OpenAIAPIKey string
	GroqAPIKey   string
	GeminiAPIKey string
}

// LoadTestConfig loads provider API keys from environment variables.
func LoadTestConfig() TestConfig {
	return TestConfig{
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
	}
}

// Keys returns the configured keys by provider name.
func (c TestConfig) Keys() map[string]string {
	keys := make(map[string]string)
	if c.OpenAIAPIKey != "" {
		keys[OpenAIName] = c.OpenAIAPIKey
	}
	if c.GroqAPIKey != "" {
		keys[GroqName] = c.GroqAPIKey
	}
	if c.GeminiAPIKey != "" {
		keys[GeminiName] = c.GeminiAPIKey
	}
	return keys
}

// HasAny returns true if any provider key is configured.
func (c TestConfig) HasAny() bool {
	return len(c.Keys()) > 0
}
