package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"bookmuse/internal/types"
)

// geminiModelPreference lists models in priority order, best quality first,
// no previews. Selection probes each with a tiny generateContent call and
// picks the first that has quota on this API key.
var geminiModelPreference = []string{
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-flash-latest",
	"gemini-flash-lite-latest",
}

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string // optional: skips probing when set
	Timeout         time.Duration
	MaxOutputTokens int
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Timeout:         2 * time.Minute,
		MaxOutputTokens: 8192,
	}
}

// GeminiClient implements Client for the Google Gemini API.
//
// The selected model name is cached process-wide in an atomic value. The
// cache is read-then-conditionally-written with no mutual exclusion:
// concurrent requests may race to re-probe and the last write wins. Probing
// is idempotent, so staleness costs one extra retry cycle at most.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	modelOverride   string
	maxOutputTokens int
	httpClient      *http.Client
	logger          *zap.Logger

	selectedModel atomic.Value // string
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(cfg GeminiConfig, logger *zap.Logger) *GeminiClient {
	c := &GeminiClient{
		apiKey:          cfg.APIKey,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		modelOverride:   strings.TrimSpace(cfg.Model),
		maxOutputTokens: cfg.MaxOutputTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
	if c.maxOutputTokens <= 0 {
		c.maxOutputTokens = 8192
	}
	c.selectedModel.Store("")
	return c
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

type geminiModelList struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

// Complete sends a system+user prompt pair and returns the raw completion
// text. On a quota error with the cached model the cache is invalidated,
// every candidate model is re-probed, and the call is retried exactly once.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	if c.apiKey == "" {
		return "", fmt.Errorf("gemini: API key not configured")
	}

	if c.modelOverride != "" {
		return c.generateContent(ctx, c.modelOverride, systemPrompt, userPrompt)
	}

	model, err := c.resolveModel(ctx, false)
	if err != nil {
		return "", err
	}

	var out string
	err = retry.Do(
		func() error {
			var callErr error
			out, callErr = c.generateContent(ctx, model, systemPrompt, userPrompt)
			return callErr
		},
		retry.Attempts(2),
		retry.LastErrorOnly(true),
		retry.RetryIf(types.IsQuotaExhausted),
		retry.OnRetry(func(_ uint, err error) {
			c.logger.Warn("gemini quota exhausted on cached model, re-probing",
				zap.String("model", model), zap.Error(err))
			if next, probeErr := c.resolveModel(ctx, true); probeErr == nil {
				model = next
			}
		}),
	)
	return out, err
}

// resolveModel returns the cached selected model, probing for one when the
// cache is empty or forceReprobe is set.
func (c *GeminiClient) resolveModel(ctx context.Context, forceReprobe bool) (string, error) {
	if cached, _ := c.selectedModel.Load().(string); cached != "" && !forceReprobe {
		return cached, nil
	}
	if forceReprobe {
		c.selectedModel.Store("")
	}

	available, err := c.listModels(ctx)
	if err != nil {
		c.logger.Warn("could not list gemini models, probing preference list directly", zap.Error(err))
		available = make(map[string]bool, len(geminiModelPreference))
		for _, name := range geminiModelPreference {
			available[name] = true
		}
	} else {
		c.logger.Info("probing gemini models for quota", zap.Int("available", len(available)))
	}

	for _, candidate := range geminiModelPreference {
		if !available[candidate] {
			continue
		}
		if c.probeModel(ctx, candidate) {
			c.selectedModel.Store(candidate)
			c.logger.Info("gemini model selected", zap.String("model", candidate))
			return candidate, nil
		}
	}

	// Last resort: try every available model until one works.
	c.logger.Warn("no preferred gemini model had quota, trying all available models")
	names := make([]string, 0, len(available))
	for name := range available {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, candidate := range names {
		if c.probeModel(ctx, candidate) {
			c.selectedModel.Store(candidate)
			c.logger.Warn("gemini falling back to model", zap.String("model", candidate))
			return candidate, nil
		}
	}

	return "", &types.UpstreamError{
		Op:  "gemini model selection",
		Err: fmt.Errorf("no model has available quota; check the API key or billing"),
	}
}

// listModels returns the models on this API key that support generateContent.
func (c *GeminiClient) listModels(ctx context.Context) (map[string]bool, error) {
	url := fmt.Sprintf("%s/models?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models failed with status %d: %s", resp.StatusCode, string(body))
	}

	var list geminiModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}

	available := make(map[string]bool, len(list.Models))
	for _, m := range list.Models {
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				available[strings.TrimPrefix(m.Name, "models/")] = true
				break
			}
		}
	}
	return available, nil
}

// probeModel reports whether the model can handle a tiny generateContent
// call right now.
func (c *GeminiClient) probeModel(ctx context.Context, name string) bool {
	_, err := c.generateContent(ctx, name, "", "ping")
	if err == nil {
		return true
	}
	msg := err.Error()
	switch {
	case types.IsQuotaExhausted(err):
		c.logger.Debug("gemini probe: quota exhausted, skipping", zap.String("model", name))
	case strings.Contains(strings.ToLower(msg), "not found") || strings.Contains(msg, "404"):
		c.logger.Debug("gemini probe: model not found, skipping", zap.String("model", name))
	default:
		c.logger.Debug("gemini probe: error, skipping", zap.String("model", name), zap.Error(err))
	}
	return false
}

// generateContent performs one generateContent call against a specific model.
func (c *GeminiClient) generateContent(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     0.7,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
	if systemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if geminiResp.Error != nil {
		return "", fmt.Errorf("gemini API error %s: %s", geminiResp.Error.Status, geminiResp.Error.Message)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	var result strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		result.WriteString(part.Text)
	}
	text := strings.TrimSpace(result.String())

	c.logger.Debug("gemini completion",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_len", len(text)))
	return text, nil
}
