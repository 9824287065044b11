package catalog

import (
	"context"

	"go.uber.org/zap"

	"bookmuse/internal/types"
)

// resultsPerQuery caps how many books one catalog query may contribute.
const resultsPerQuery = 20

// FetchCandidates runs the queries in order and accumulates deduplicated
// candidates. It never fails: a failing individual query is logged and
// skipped. A candidate is admitted when its catalog ID has not been seen and
// its normalized title is not in excludeTitles. Querying stops once target
// candidates are admitted; query order, then catalog order, is preserved and
// first-seen wins on duplicate IDs.
func FetchCandidates(ctx context.Context, searcher types.Searcher, queries []Query, excludeTitles map[string]bool, target int, logger *zap.Logger) []types.CandidateBook {
	seen := make(map[string]bool)
	candidates := make([]types.CandidateBook, 0, target)

	for _, query := range queries {
		if len(candidates) >= target {
			break
		}

		results, err := searcher.Search(ctx, query.Term(), resultsPerQuery)
		if err != nil {
			logger.Warn("catalog query failed, skipping",
				zap.String("query", query.Term()), zap.Error(err))
			continue
		}

		for _, book := range results {
			if book.ID == "" || seen[book.ID] {
				continue
			}
			if excludeTitles[types.NormalizeTitle(book.Title)] {
				continue
			}
			seen[book.ID] = true
			candidates = append(candidates, book)
		}
	}

	if len(candidates) > target {
		candidates = candidates[:target]
	}
	return candidates
}
