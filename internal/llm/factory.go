package llm

import (
	"fmt"

	"go.uber.org/zap"

	"bookmuse/internal/config"
)

// NewFromConfig builds the completion client for the configured provider.
func NewFromConfig(cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	switch Provider(cfg.Provider) {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("llm provider is gemini but GEMINI_API_KEY is not set")
		}
		gcfg := DefaultGeminiConfig(cfg.GeminiAPIKey)
		gcfg.Model = cfg.Model
		return NewGeminiClient(gcfg, logger), nil

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("llm provider is openai but OPENAI_API_KEY is not set")
		}
		ocfg := DefaultOpenAIConfig(cfg.OpenAIAPIKey)
		if cfg.Model != "" {
			ocfg.Model = cfg.Model
		}
		return NewOpenAIClient(ocfg, logger), nil

	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("llm provider is anthropic but ANTHROPIC_API_KEY is not set")
		}
		acfg := DefaultAnthropicConfig(cfg.AnthropicAPIKey)
		if cfg.Model != "" {
			acfg.Model = cfg.Model
		}
		return NewAnthropicClient(acfg, logger), nil

	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
