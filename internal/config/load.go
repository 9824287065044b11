package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/bookmuse/config.yaml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envMapping maps environment variables onto koanf config paths. Variables
// not listed here are ignored.
var envMapping = map[string]string{
	"SERVER_HOST":          "server.host",
	"SERVER_PORT":          "server.port",
	"SERVER_TIMEOUT":       "server.timeout",
	"CORS_ORIGINS":         "server.cors_origins",
	"LLM_PROVIDER":         "llm.provider",
	"LLM_MODEL":            "llm.model",
	"GEMINI_API_KEY":       "llm.gemini_api_key",
	"OPENAI_API_KEY":       "llm.openai_api_key",
	"ANTHROPIC_API_KEY":    "llm.anthropic_api_key",
	"GOOGLE_BOOKS_API_KEY": "catalog.api_key",
	"LOG_LEVEL":            "logging.level",
	"LOG_DEVELOPMENT":      "logging.development",
}

// Default returns the built-in defaults, applied before file and env layers.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			Timeout:     60 * time.Second,
			CORSOrigins: []string{"http://localhost:5173"},
		},
		LLM: LLMConfig{
			Provider: "openai",
		},
		Catalog: CatalogConfig{
			Timeout:   10 * time.Second,
			BaseURL:   "https://www.googleapis.com/books/v1/volumes",
			RateLimit: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("", ".", func(key string) string {
		return envMapping[key]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// CORS_ORIGINS arrives as a comma-separated string; koanf unmarshals
	// slices only from lists.
	if origins := k.Get("server.cors_origins"); origins != nil {
		if s, ok := origins.(string); ok {
			parts := strings.Split(s, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			if err := k.Set("server.cors_origins", parts); err != nil {
				return nil, fmt.Errorf("failed to set cors origins: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
