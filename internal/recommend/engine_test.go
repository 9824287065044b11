package recommend

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookmuse/internal/types"
)

// fakeCompleter routes completions by inspecting the system prompt, the same
// way the live pipeline distinguishes its three calls.
type fakeCompleter struct {
	profileResponse   string
	rankingResponse   string
	knowledgeResponse string

	profileCalls   int
	rankingCalls   int
	knowledgeCalls int

	err error
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	switch {
	case strings.Contains(systemPrompt, "literary analyst"):
		f.profileCalls++
		return f.profileResponse, nil
	case strings.Contains(systemPrompt, "candidate books"):
		f.rankingCalls++
		return f.rankingResponse, nil
	default:
		f.knowledgeCalls++
		return f.knowledgeResponse, nil
	}
}

// fakeSearcher returns a fixed result set for every query.
type fakeSearcher struct {
	results []types.CandidateBook
	err     error
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]types.CandidateBook, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func testBooks() []types.RatedBook {
	return []types.RatedBook{
		{Title: "The Dispossessed", Author: "Ursula K. Le Guin", Rating: 5},
		{Title: "A Memory Called Empire", Author: "Arkady Martine", Rating: 4},
		{Title: "Ready Player One", Author: "Ernest Cline", Rating: 2},
	}
}

const profileJSON = `{
  "summary": "Loves thoughtful, political science fiction.",
  "genres": ["science fiction"],
  "themes": ["empire", "language"],
  "writing_styles": ["dense worldbuilding"],
  "loved_authors": ["Ursula K. Le Guin", "Arkady Martine"],
  "disliked_elements": ["pop-culture pastiche"],
  "search_queries": ["subject:space opera", "subject:political science fiction"]
}`

func testCandidates(n int) []types.CandidateBook {
	out := make([]types.CandidateBook, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.CandidateBook{
			ID:          fmt.Sprintf("vol-%d", i),
			Title:       fmt.Sprintf("Candidate %d", i),
			Author:      fmt.Sprintf("Author %d", i),
			Description: "A book.",
		})
	}
	return out
}

// Scenario A: catalog configured, 10 unique candidates, count 5.
func TestRecommendCatalogPath(t *testing.T) {
	candidates := testCandidates(10)
	var ranked []string
	for i := 0; i < 5; i++ {
		novel := "false"
		if i < 2 {
			novel = "true"
		}
		ranked = append(ranked, fmt.Sprintf(
			`{"id": "vol-%d", "genre": "Space Opera", "reason": "Like The Dispossessed.", "predicted_rating": 4.2, "is_new_author": %s}`, i, novel))
	}

	llm := &fakeCompleter{
		profileResponse: profileJSON,
		rankingResponse: "[" + strings.Join(ranked, ",") + "]",
	}
	searcher := &fakeSearcher{results: candidates}
	engine := NewEngine(llm, searcher, zap.NewNop())

	resp, err := engine.Recommend(context.Background(), Request{Books: testBooks(), Count: 5})
	require.NoError(t, err)
	require.Len(t, resp.Recommendations, 5)
	assert.Equal(t, "Loves thoughtful, political science fiction.", resp.ProfileSummary)

	known := make(map[string]bool)
	for _, c := range candidates {
		known[c.ID] = true
	}
	novel := 0
	for _, rec := range resp.Recommendations {
		assert.True(t, known[rec.ID], "recommendation %q must reference a sourced candidate", rec.ID)
		if rec.NewAuthor {
			novel++
		}
	}
	assert.GreaterOrEqual(t, novel, 2, "novelty quota")
	assert.Equal(t, 1, llm.profileCalls)
	assert.Equal(t, 1, llm.rankingCalls)
	assert.Equal(t, 0, llm.knowledgeCalls)
}

// Scenario B: no catalog configured; knowledge-only path with synthetic IDs.
func TestRecommendKnowledgeOnlyPath(t *testing.T) {
	llm := &fakeCompleter{
		profileResponse: profileJSON,
		knowledgeResponse: `[
		  {"title": "Ancillary Justice", "author": "Ann Leckie", "genre": "Space Opera", "description": "d", "reason": "r", "predicted_rating": 4.5, "is_new_author": true},
		  {"title": "Too Like the Lightning", "author": "Ada Palmer", "genre": "SF", "description": "d", "reason": "r", "predicted_rating": 4.1, "is_new_author": true},
		  {"title": "The Dispossessed", "author": "Ursula K. Le Guin", "genre": "SF", "description": "d", "reason": "r", "predicted_rating": 5.0, "is_new_author": false},
		  {"title": "Foreigner", "author": "C. J. Cherryh", "genre": "SF", "description": "d", "reason": "r", "predicted_rating": 4.0, "is_new_author": true},
		  {"title": "Embassytown", "author": "China Mieville", "genre": "SF", "description": "d", "reason": "r", "predicted_rating": 4.3, "is_new_author": true},
		  {"title": "Babel-17", "author": "Samuel R. Delany", "genre": "SF", "description": "d", "reason": "r", "predicted_rating": 4.0, "is_new_author": true}
		]`,
	}
	engine := NewEngine(llm, nil, zap.NewNop())

	books := testBooks()
	resp, err := engine.Recommend(context.Background(), Request{Books: books, Count: 5})
	require.NoError(t, err)
	require.Len(t, resp.Recommendations, 5)

	readTitles := make(map[string]bool)
	for _, b := range books {
		readTitles[types.NormalizeTitle(b.Title)] = true
	}
	for _, rec := range resp.Recommendations {
		assert.True(t, strings.HasPrefix(rec.ID, "llm-"), "synthetic identifier expected, got %q", rec.ID)
		assert.False(t, readTitles[types.NormalizeTitle(rec.Title)],
			"%q is already in the reader's list", rec.Title)
	}
	assert.Equal(t, 0, llm.rankingCalls)
	assert.Equal(t, 1, llm.knowledgeCalls)
}

// Scenario C: ranking output truncated after 3 complete objects; degraded
// but non-error outcome.
func TestRecommendTruncatedRanking(t *testing.T) {
	llm := &fakeCompleter{
		profileResponse: profileJSON,
		rankingResponse: `[
		  {"id": "vol-0", "genre": "SF", "reason": "r", "predicted_rating": 4.0, "is_new_author": true},
		  {"id": "vol-1", "genre": "SF", "reason": "r", "predicted_rating": 4.0, "is_new_author": true},
		  {"id": "vol-2", "genre": "SF", "reason": "r", "predicted_rating": 4.0, "is_new_author": false},
		  {"id": "vol-3", "genre": "SF", "reas`,
	}
	searcher := &fakeSearcher{results: testCandidates(10)}
	engine := NewEngine(llm, searcher, zap.NewNop())

	resp, err := engine.Recommend(context.Background(), Request{Books: testBooks(), Count: 5})
	require.NoError(t, err)
	assert.Len(t, resp.Recommendations, 3)
}

// Sourcing that comes up empty falls back to the knowledge path instead of
// failing.
func TestRecommendFallbackOnEmptySourcing(t *testing.T) {
	llm := &fakeCompleter{
		profileResponse: profileJSON,
		knowledgeResponse: `[
		  {"title": "Ancillary Justice", "author": "Ann Leckie", "genre": "SF", "description": "d", "reason": "r", "predicted_rating": 4.5}
		]`,
	}
	searcher := &fakeSearcher{err: fmt.Errorf("catalog down")}
	engine := NewEngine(llm, searcher, zap.NewNop())

	resp, err := engine.Recommend(context.Background(), Request{Books: testBooks(), Count: 5})
	require.NoError(t, err)
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, 1, llm.knowledgeCalls)
	assert.Equal(t, 0, llm.rankingCalls)
}

// Caller-excluded identifiers are filtered after sourcing; if that empties
// the set, the knowledge path takes over.
func TestRecommendExclusionEmptiesCandidates(t *testing.T) {
	candidates := testCandidates(3)
	exclude := make([]string, 0, len(candidates))
	for _, c := range candidates {
		exclude = append(exclude, c.ID)
	}

	llm := &fakeCompleter{
		profileResponse: profileJSON,
		knowledgeResponse: `[
		  {"title": "Ancillary Justice", "author": "Ann Leckie", "genre": "SF", "description": "d", "reason": "r", "predicted_rating": 4.5}
		]`,
	}
	searcher := &fakeSearcher{results: candidates}
	engine := NewEngine(llm, searcher, zap.NewNop())

	resp, err := engine.Recommend(context.Background(), Request{
		Books:      testBooks(),
		ExcludeIDs: exclude,
		Count:      5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, llm.knowledgeCalls)
	assert.Len(t, resp.Recommendations, 1)
}

func TestRecommendProfileCompletionFailure(t *testing.T) {
	llm := &fakeCompleter{err: fmt.Errorf("connection refused")}
	engine := NewEngine(llm, nil, zap.NewNop())

	_, err := engine.Recommend(context.Background(), Request{Books: testBooks(), Count: 5})
	require.Error(t, err)
	assert.True(t, types.IsUpstream(err))
}

func TestRecommendProfileUnparsable(t *testing.T) {
	llm := &fakeCompleter{profileResponse: "I would love to help but cannot."}
	engine := NewEngine(llm, nil, zap.NewNop())

	_, err := engine.Recommend(context.Background(), Request{Books: testBooks(), Count: 5})
	require.Error(t, err)
	assert.True(t, types.IsMalformedResponse(err))
}

// A profile missing most fields still drives the pipeline; absent fields
// degrade to empty values.
func TestRecommendSparseProfile(t *testing.T) {
	llm := &fakeCompleter{
		profileResponse:   `{"summary": "Reads a bit of everything."}`,
		knowledgeResponse: `[{"title": "Piranesi", "author": "Susanna Clarke", "genre": "Fantasy", "description": "d", "reason": "r", "predicted_rating": 4.4}]`,
	}
	engine := NewEngine(llm, nil, zap.NewNop())

	resp, err := engine.Recommend(context.Background(), Request{Books: testBooks(), Count: 5})
	require.NoError(t, err)
	assert.Equal(t, "Reads a bit of everything.", resp.ProfileSummary)
	require.Len(t, resp.Recommendations, 1)
}

func TestBuildQueries(t *testing.T) {
	profile := types.TasteProfile{
		SearchQueries: []string{"subject:q1", "q2", "q3", "q4", "q5", "q6", "q7"},
		LovedAuthors:  []string{"A One", "A Two", "A Three"},
	}

	queries := buildQueries(profile)
	require.Len(t, queries, 7) // 5 subject + 2 author

	var terms []string
	for _, q := range queries {
		terms = append(terms, q.Term())
	}
	assert.Equal(t, []string{
		"subject:q1", "q2", "q3", "q4", "q5",
		"inauthor:A One", "inauthor:A Two",
	}, terms)
}
