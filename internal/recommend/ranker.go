package recommend

import (
	"context"

	"go.uber.org/zap"

	"bookmuse/internal/types"
)

// defaultPredictedRating is substituted when the model omits a prediction.
const defaultPredictedRating = 3.5

// rankedItem is one entry of the ranking completion's output array.
// IsNewAuthor is a pointer so an omitted flag can be recomputed locally.
type rankedItem struct {
	ID              string  `json:"id"`
	Genre           string  `json:"genre"`
	Reason          string  `json:"reason"`
	PredictedRating float64 `json:"predicted_rating"`
	IsNewAuthor     *bool   `json:"is_new_author"`
}

// rank runs the ranking completion over the sourced candidates and
// cross-checks the output. Identifiers the model invented are dropped with a
// warning; iteration stops once count valid recommendations are accumulated.
func (e *Engine) rank(ctx context.Context, profile types.TasteProfile, candidates []types.CandidateBook, knownAuthors map[string]bool, count int) ([]types.Recommendation, error) {
	raw, err := e.llm.Complete(ctx, rankingSystemPrompt, buildRankingPrompt(profile, candidates, count))
	if err != nil {
		return nil, &types.UpstreamError{Op: "ranking completion", Err: err}
	}

	val, err := Decode(raw, "candidate ranking", e.logger)
	if err != nil {
		return nil, err
	}
	items, ok := val.([]interface{})
	if !ok {
		return nil, types.NewMalformedResponseError("candidate ranking", raw)
	}

	candidateByID := make(map[string]types.CandidateBook, len(candidates))
	for _, c := range candidates {
		candidateByID[c.ID] = c
	}

	final := make([]types.Recommendation, 0, count)
	for _, entry := range items {
		var item rankedItem
		if err := rebind(entry, "candidate ranking", &item); err != nil {
			e.logger.Warn("skipping unparsable ranking item", zap.Error(err))
			continue
		}

		c, known := candidateByID[item.ID]
		if !known {
			e.logger.Warn("model returned unknown candidate id, skipping", zap.String("id", item.ID))
			continue
		}

		isNew := !knownAuthors[types.NormalizeAuthor(c.Author)]
		if item.IsNewAuthor != nil {
			isNew = *item.IsNewAuthor
		}
		rating := item.PredictedRating
		if rating == 0 {
			rating = defaultPredictedRating
		}
		genre := item.Genre
		if genre == "" {
			genre = "Fiction"
		}

		final = append(final, types.Recommendation{
			ID:              c.ID,
			Title:           c.Title,
			Author:          c.Author,
			Description:     c.Description,
			CoverURL:        c.CoverURL,
			Genre:           genre,
			Reason:          item.Reason,
			PredictedRating: rating,
			NewAuthor:       isNew,
		})
		if len(final) >= count {
			break
		}
	}

	return final, nil
}
