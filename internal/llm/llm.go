// Package llm implements the completion clients for the supported providers.
// Each client speaks the provider's REST API directly over net/http and
// satisfies types.Completer. The Gemini client additionally maintains a
// probe-and-cache model selection so that quota exhaustion on one model
// degrades to the next preferred model instead of failing the request.
package llm

import (
	"bookmuse/internal/types"
)

// Client is the interface the pipeline depends on.
// Alias to types.Completer so collaborators can be faked without importing
// this package.
type Client = types.Completer

// Provider identifies a completion provider.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)
