package recommend

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookmuse/internal/types"
)

// knowledgeItem is one entry of the knowledge-only completion's output array.
type knowledgeItem struct {
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	Genre           string  `json:"genre"`
	Description     string  `json:"description"`
	Reason          string  `json:"reason"`
	PredictedRating float64 `json:"predicted_rating"`
	IsNewAuthor     *bool   `json:"is_new_author"`
}

// SyntheticID derives a stable identifier for a model-only recommendation
// from the normalized (title, author) pair. Identical inputs always produce
// the same identifier, so clients can deduplicate across pagination and
// exclusion rounds.
func SyntheticID(title, author string) string {
	key := types.NormalizeTitle(title) + "::" + types.NormalizeAuthor(author)
	return "llm-" + uuid.NewSHA1(uuid.NameSpaceDNS, []byte(key)).String()
}

// recommendFromKnowledge generates recommendations purely from model
// knowledge, used when no catalog is configured or sourcing yielded nothing
// usable. Fewer than count results is a valid, non-error outcome.
func (e *Engine) recommendFromKnowledge(ctx context.Context, profile types.TasteProfile, books []types.RatedBook, excludeIDs []string, count int) ([]types.Recommendation, error) {
	excludeTitles := make(map[string]bool, len(books))
	knownAuthors := make(map[string]bool, len(books))
	for _, b := range books {
		excludeTitles[types.NormalizeTitle(b.Title)] = true
		knownAuthors[types.NormalizeAuthor(b.Author)] = true
	}

	e.logger.Info("knowledge-only mode: generating recommendations without a catalog")
	raw, err := e.llm.Complete(ctx, knowledgeSystemPrompt, buildKnowledgePrompt(profile, books, count))
	if err != nil {
		return nil, &types.UpstreamError{Op: "knowledge completion", Err: err}
	}

	val, err := Decode(raw, "knowledge ranking", e.logger)
	if err != nil {
		return nil, err
	}
	items, ok := val.([]interface{})
	if !ok {
		return nil, types.NewMalformedResponseError("knowledge ranking", raw)
	}

	seenIDs := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		seenIDs[id] = true
	}

	final := make([]types.Recommendation, 0, count)
	for _, entry := range items {
		var item knowledgeItem
		if err := rebind(entry, "knowledge ranking", &item); err != nil {
			e.logger.Warn("skipping unparsable knowledge item", zap.Error(err))
			continue
		}

		if item.Title == "" || excludeTitles[types.NormalizeTitle(item.Title)] {
			continue
		}

		id := SyntheticID(item.Title, item.Author)
		if seenIDs[id] {
			continue
		}
		seenIDs[id] = true

		isNew := !knownAuthors[types.NormalizeAuthor(item.Author)]
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
			ID:              id,
			Title:           item.Title,
			Author:          item.Author,
			Description:     item.Description,
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
