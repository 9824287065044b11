package recommend

import (
	"context"

	"go.uber.org/zap"

	"bookmuse/internal/types"
)

// profile runs the preference-profiling completion. Fields the model omitted
// degrade to empty values; the call fails only when the completion itself
// fails or the output is unrecoverably malformed.
func (e *Engine) profile(ctx context.Context, books []types.RatedBook, mood string) (types.TasteProfile, error) {
	var profile types.TasteProfile

	raw, err := e.llm.Complete(ctx, profileSystemPrompt, buildProfilePrompt(books, mood))
	if err != nil {
		return profile, &types.UpstreamError{Op: "profile completion", Err: err}
	}

	val, err := Decode(raw, "preference profile", e.logger)
	if err != nil {
		return profile, err
	}
	if err := rebind(val, "preference profile", &profile); err != nil {
		return profile, err
	}

	e.logger.Info("preference profile extracted",
		zap.Strings("genres", profile.Genres),
		zap.Strings("queries", profile.SearchQueries))
	return profile, nil
}
