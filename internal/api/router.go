package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"bookmuse/internal/types"
)

// NewRouter assembles the API routes with middleware.
func NewRouter(engine Recommender, searcher types.Searcher, corsOrigins []string, logger *zap.Logger) http.Handler {
	h := NewHandlers(engine, searcher, logger)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(corsMiddleware(corsOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/recommend", h.Recommend)
		r.Get("/books/search", h.SearchBooks)
	})

	return r
}
