package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bookmuse/internal/types"
)

// ClientConfig holds configuration for the catalog client.
type ClientConfig struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:    apiKey,
		BaseURL:   "https://www.googleapis.com/books/v1/volumes",
		Timeout:   10 * time.Second,
		RateLimit: 5,
	}
}

// Client searches the Google Books volumes API. It satisfies types.Searcher.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a catalog client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 5
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(limit), 1),
		logger:  logger,
	}
}

type volumeList struct {
	Items []volumeItem `json:"items"`
}

type volumeItem struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title         string   `json:"title"`
		Authors       []string `json:"authors"`
		Description   string   `json:"description"`
		Categories    []string `json:"categories"`
		AverageRating float64  `json:"averageRating"`
		PublishedDate string   `json:"publishedDate"`
		ImageLinks    struct {
			Thumbnail      string `json:"thumbnail"`
			SmallThumbnail string `json:"smallThumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

// Search fetches up to maxResults books for one query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]types.CandidateBook, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("printType", "books")
	params.Set("langRestrict", "en")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
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
		return nil, fmt.Errorf("catalog request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var list volumeList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.logger.Debug("catalog search",
		zap.String("query", query),
		zap.Int("results", len(list.Items)))
	return normalizeItems(list.Items), nil
}

// normalizeItems flattens raw volume records into CandidateBooks.
func normalizeItems(items []volumeItem) []types.CandidateBook {
	results := make([]types.CandidateBook, 0, len(items))
	for _, item := range items {
		info := item.VolumeInfo

		// Prefer https cover URLs to avoid mixed-content warnings.
		cover := info.ImageLinks.Thumbnail
		if cover == "" {
			cover = info.ImageLinks.SmallThumbnail
		}
		cover = strings.Replace(cover, "http://", "https://", 1)

		results = append(results, types.CandidateBook{
			ID:            item.ID,
			Title:         info.Title,
			Author:        strings.Join(info.Authors, ", "),
			Description:   info.Description,
			CoverURL:      cover,
			Categories:    info.Categories,
			AverageRating: info.AverageRating,
			PublishedDate: info.PublishedDate,
		})
	}
	return results
}
