package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"bookmuse/internal/recommend"
	"bookmuse/internal/types"
)

// searchResultLimit caps the interactive book-search endpoint.
const searchResultLimit = 8

// Recommender is the pipeline surface the handlers depend on.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
}

// Handlers serves the bookmuse API endpoints.
type Handlers struct {
	engine   Recommender
	searcher types.Searcher
	logger   *zap.Logger
}

// NewHandlers creates the API handlers. searcher backs the interactive
// book-search endpoint and may differ from the engine's sourcing client.
func NewHandlers(engine Recommender, searcher types.Searcher, logger *zap.Logger) *Handlers {
	return &Handlers{engine: engine, searcher: searcher, logger: logger}
}

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Recommend handles POST /api/recommend. The rated-books precondition is
// enforced here, before any collaborator is invoked.
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	rated := req.ratedBooks()
	h.logger.Info("recommendation request",
		zap.Int("rated_books", len(rated)),
		zap.String("genre_mood", req.GenreMood),
		zap.Int("exclude_ids", len(req.ExcludeBookIDs)))

	if len(rated) < minRatedBooks {
		respondError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed,
			"Need at least 3 rated books to generate recommendations. Add more ratings in My Library & Ratings.")
		return
	}

	resp, err := h.engine.Recommend(r.Context(), recommend.Request{
		Books:      rated,
		Mood:       req.GenreMood,
		ExcludeIDs: req.ExcludeBookIDs,
		Count:      req.Count,
	})
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}

	h.logger.Info("recommendation success", zap.Int("books", len(resp.Recommendations)))
	respondJSON(w, http.StatusOK, resp)
}

// SearchBooks handles GET /api/books/search. It queries the catalog by
// title/author and returns up to 8 results.
func (h *Handlers) SearchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if len(q) < 2 {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, "query must be at least 2 characters")
		return
	}

	h.logger.Info("book search", zap.String("query", q))
	results, err := h.searcher.Search(r.Context(), q, searchResultLimit)
	if err != nil {
		h.logger.Error("book search failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, ErrCodeUpstreamFailed, "Book search failed. Try again.")
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// respondPipelineError maps pipeline failures to status codes. Malformed
// model output is the service's fault (500); a failing dependency is a bad
// gateway (502).
func (h *Handlers) respondPipelineError(w http.ResponseWriter, err error) {
	switch {
	case types.IsMalformedResponse(err):
		h.logger.Error("model response parse error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, ErrCodeMalformedAI,
			"AI response error: "+err.Error()+". Please try again.")
	case types.IsUpstream(err):
		h.logger.Error("upstream dependency failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, ErrCodeUpstreamFailed, err.Error())
	default:
		h.logger.Error("recommendation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "recommendation failed")
	}
}
