package api

import (
	"bookmuse/internal/types"
)

// minRatedBooks is the precondition for profiling: fewer rated books makes
// the taste signal too thin to be worth a completion call.
const minRatedBooks = 3

// RecommendRequest is the POST /api/recommend payload.
type RecommendRequest struct {
	ReadBooks      []types.RatedBook `json:"read_books"`
	GenreMood      string            `json:"genre_mood"`
	ExcludeBookIDs []string          `json:"exclude_book_ids"`
	Count          int               `json:"count"`
}

// ratedBooks returns the entries carrying an actual rating.
func (r *RecommendRequest) ratedBooks() []types.RatedBook {
	rated := make([]types.RatedBook, 0, len(r.ReadBooks))
	for _, b := range r.ReadBooks {
		if b.Rating >= 1 {
			rated = append(rated, b)
		}
	}
	return rated
}
