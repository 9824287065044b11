// Package config loads bookmuse configuration with layered precedence:
// built-in defaults, then an optional YAML config file, then environment
// variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	LLM     LLMConfig     `koanf:"llm"`
	Catalog CatalogConfig `koanf:"catalog"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	CORSOrigins []string      `koanf:"cors_origins"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	// Provider is one of gemini, openai, anthropic.
	Provider        string `koanf:"provider"`
	GeminiAPIKey    string `koanf:"gemini_api_key"`
	OpenAIAPIKey    string `koanf:"openai_api_key"`
	AnthropicAPIKey string `koanf:"anthropic_api_key"`
	// Model overrides the provider's default model. For Gemini an empty
	// value means the model is probed and selected at runtime.
	Model string `koanf:"model"`
}

// CatalogConfig configures the Google Books client. An empty APIKey disables
// catalog sourcing and switches the pipeline to knowledge-only mode.
type CatalogConfig struct {
	APIKey    string        `koanf:"api_key"`
	Timeout   time.Duration `koanf:"timeout"`
	BaseURL   string        `koanf:"base_url"`
	RateLimit float64       `koanf:"rate_limit"` // requests per second
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

// CatalogEnabled reports whether external candidate sourcing is configured.
func (c *Config) CatalogEnabled() bool {
	return c.Catalog.APIKey != ""
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be one of gemini, openai, anthropic (got %q)", c.LLM.Provider)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535 (got %d)", c.Server.Port)
	}
	if c.Catalog.RateLimit <= 0 {
		return fmt.Errorf("catalog.rate_limit must be positive (got %g)", c.Catalog.RateLimit)
	}
	return nil
}
