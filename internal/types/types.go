// Package types provides shared type definitions used across bookmuse packages.
// This package exists to break import cycles between the HTTP layer, the
// recommendation pipeline, and the external clients. Types in this package
// should be foundational data structures with no complex dependencies.
package types

import (
	"context"
	"strings"
)

// RatedBook is one entry in the reader's history. Supplied by the caller and
// immutable for the duration of a request.
type RatedBook struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Rating  int    `json:"rating"` // 1-5 stars
	Review  string `json:"review,omitempty"`
	Shelves string `json:"bookshelves,omitempty"`
	ISBN    string `json:"isbn,omitempty"`
}

// TasteProfile is the structured summary of a reader's preferences derived
// from their rating history. Produced once per request; consumed read-only by
// the sourcing and ranking stages. A field the model omitted stays at its
// zero value rather than failing the request.
type TasteProfile struct {
	Summary          string   `json:"summary"`
	Genres           []string `json:"genres"`
	Themes           []string `json:"themes"`
	WritingStyles    []string `json:"writing_styles"`
	LovedAuthors     []string `json:"loved_authors"`
	DislikedElements []string `json:"disliked_elements"`
	SearchQueries    []string `json:"search_queries"`
}

// CandidateBook is a book sourced from the external catalog, eligible for
// ranking. ID is the catalog identifier and the deduplication key within a
// sourcing run; first-seen wins on collisions.
type CandidateBook struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Description   string   `json:"description"`
	CoverURL      string   `json:"cover_url,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	AverageRating float64  `json:"average_rating,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
}

// Recommendation is one ranked suggestion returned to the caller. ID is the
// catalog identifier, or a synthetic identifier deterministically derived from
// the normalized (title, author) pair when no catalog was used.
type Recommendation struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	Description     string  `json:"description"`
	CoverURL        string  `json:"cover_url,omitempty"`
	Genre           string  `json:"genre"`
	Reason          string  `json:"reason"`
	PredictedRating float64 `json:"predicted_rating"` // 1.0-5.0
	NewAuthor       bool    `json:"is_new_author"`
}

// Completer is one request/response round-trip to a language-model
// text-generation service. Implementations may fail (surfaced as an upstream
// error by the pipeline) or return malformed content (handled by the
// resilient extractor).
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Searcher is the external book catalog. A failing call is treated by the
// sourcing loop as zero results for that query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]CandidateBook, error)
}

// NormalizeTitle lowercases and trims a title for exclusion matching.
// Exclusion is title-based only; authors are not part of the key.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// NormalizeAuthor lowercases and trims an author name for known-author checks.
func NormalizeAuthor(author string) string {
	return strings.ToLower(strings.TrimSpace(author))
}
