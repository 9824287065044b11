package recommend

import (
	"context"

	"go.uber.org/zap"

	"bookmuse/internal/catalog"
	"bookmuse/internal/types"
)

const (
	// defaultCount is the number of recommendations when the caller does
	// not specify one.
	defaultCount = 5
	// candidateTarget is how many catalog candidates sourcing aims for
	// before ranking trims the list down.
	candidateTarget = 50
	// maxSubjectQueries caps profile-derived subject queries.
	maxSubjectQueries = 5
	// maxAuthorQueries caps author-targeted queries built from the
	// profile's loved authors.
	maxAuthorQueries = 2
)

// Request carries one recommendation request through the pipeline. The
// boundary layer guarantees at least 3 rated books before the pipeline runs.
type Request struct {
	Books      []types.RatedBook
	Mood       string
	ExcludeIDs []string
	Count      int
}

// Response is the pipeline's output regardless of which path produced it.
type Response struct {
	Recommendations []types.Recommendation `json:"recommendations"`
	ProfileSummary  string                 `json:"preference_summary"`
}

// Engine orchestrates the recommendation pipeline. A nil searcher disables
// catalog sourcing and routes every request through the knowledge-only path.
// Engines are safe for concurrent use; each request owns its own profile and
// result list.
type Engine struct {
	llm      types.Completer
	searcher types.Searcher
	logger   *zap.Logger
}

// NewEngine creates a pipeline engine. searcher may be nil.
func NewEngine(llm types.Completer, searcher types.Searcher, logger *zap.Logger) *Engine {
	return &Engine{llm: llm, searcher: searcher, logger: logger}
}

// Recommend runs the pipeline: profile extraction always; then catalog
// sourcing and ranking when a catalog is configured and yields usable
// candidates; otherwise the knowledge-only fallback. Sourcing coming up
// empty is a recoverable degradation, not an error.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	if req.Count <= 0 {
		req.Count = defaultCount
	}

	e.logger.Info("extracting preference profile", zap.Int("books", len(req.Books)))
	profile, err := e.profile(ctx, req.Books, req.Mood)
	if err != nil {
		return nil, err
	}

	knownAuthors := make(map[string]bool, len(req.Books))
	for _, b := range req.Books {
		knownAuthors[types.NormalizeAuthor(b.Author)] = true
	}

	var recommendations []types.Recommendation
	switch {
	case e.searcher == nil:
		e.logger.Info("no catalog configured, using knowledge-only mode")
		recommendations, err = e.recommendFromKnowledge(ctx, profile, req.Books, req.ExcludeIDs, req.Count)

	default:
		candidates := e.sourceCandidates(ctx, profile, req.Books, req.ExcludeIDs)
		if len(candidates) == 0 {
			e.logger.Warn("catalog yielded no usable candidates, falling back to knowledge-only mode")
			recommendations, err = e.recommendFromKnowledge(ctx, profile, req.Books, req.ExcludeIDs, req.Count)
		} else {
			e.logger.Info("ranking candidates", zap.Int("candidates", len(candidates)))
			recommendations, err = e.rank(ctx, profile, candidates, knownAuthors, req.Count)
		}
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("recommendation pipeline finished", zap.Int("recommendations", len(recommendations)))
	return &Response{
		Recommendations: recommendations,
		ProfileSummary:  profile.Summary,
	}, nil
}

// sourceCandidates builds profile-derived queries, runs the sourcing loop,
// and filters out caller-excluded identifiers.
func (e *Engine) sourceCandidates(ctx context.Context, profile types.TasteProfile, books []types.RatedBook, excludeIDs []string) []types.CandidateBook {
	queries := buildQueries(profile)
	excludeTitles := make(map[string]bool, len(books))
	for _, b := range books {
		excludeTitles[types.NormalizeTitle(b.Title)] = true
	}

	terms := make([]string, 0, len(queries))
	for _, q := range queries {
		terms = append(terms, q.Term())
	}
	e.logger.Info("fetching candidates", zap.Strings("queries", terms))

	candidates := catalog.FetchCandidates(ctx, e.searcher, queries, excludeTitles, candidateTarget, e.logger)

	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	filtered := candidates[:0]
	for _, c := range candidates {
		if !excluded[c.ID] {
			filtered = append(filtered, c)
		}
	}

	e.logger.Info("catalog candidates after filtering", zap.Int("candidates", len(filtered)))
	return filtered
}

// buildQueries turns a taste profile into ordered catalog queries: subject
// queries first, then up to two author-targeted queries from the profile's
// loved authors.
func buildQueries(profile types.TasteProfile) []catalog.Query {
	var queries []catalog.Query
	for i, term := range profile.SearchQueries {
		if i >= maxSubjectQueries {
			break
		}
		if term == "" {
			continue
		}
		queries = append(queries, catalog.Subject(term))
	}
	for i, author := range profile.LovedAuthors {
		if i >= maxAuthorQueries {
			break
		}
		if author == "" {
			continue
		}
		queries = append(queries, catalog.Author(author))
	}
	return queries
}
