package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookmuse/internal/recommend"
	"bookmuse/internal/types"
)

type stubEngine struct {
	resp  *recommend.Response
	err   error
	calls int
}

func (s *stubEngine) Recommend(_ context.Context, _ recommend.Request) (*recommend.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type stubSearcher struct {
	results []types.CandidateBook
	err     error
	calls   int
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]types.CandidateBook, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func newTestServer(t *testing.T, engine *stubEngine, searcher *stubSearcher) *httptest.Server {
	t.Helper()
	router := NewRouter(engine, searcher, []string{"*"}, zap.NewNop())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postRecommend(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/recommend", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func recommendBody(rated int) string {
	var books []string
	for i := 0; i < rated; i++ {
		books = append(books, fmt.Sprintf(
			`{"title": "Book %d", "author": "Author %d", "rating": %d}`, i, i, (i%5)+1))
	}
	return fmt.Sprintf(`{"read_books": [%s], "count": 5}`, strings.Join(books, ","))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubEngine{}, &stubSearcher{})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRecommendSuccess(t *testing.T) {
	engine := &stubEngine{resp: &recommend.Response{
		Recommendations: []types.Recommendation{
			{ID: "vol-1", Title: "T", Author: "A", Genre: "SF", PredictedRating: 4.2, NewAuthor: true},
		},
		ProfileSummary: "Likes science fiction.",
	}}
	srv := newTestServer(t, engine, &stubSearcher{})

	resp := postRecommend(t, srv, recommendBody(3))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Recommendations []types.Recommendation `json:"recommendations"`
		ProfileSummary  string                 `json:"preference_summary"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Recommendations, 1)
	assert.Equal(t, "vol-1", body.Recommendations[0].ID)
	assert.Equal(t, "Likes science fiction.", body.ProfileSummary)
	assert.Equal(t, 1, engine.calls)
}

// Fewer than 3 rated books is rejected before the pipeline runs.
func TestRecommendTooFewRatedBooks(t *testing.T) {
	engine := &stubEngine{}
	searcher := &stubSearcher{}
	srv := newTestServer(t, engine, searcher)

	resp := postRecommend(t, srv, recommendBody(2))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, 0, engine.calls, "pipeline must not be invoked")
	assert.Equal(t, 0, searcher.calls)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ErrCodeValidationFailed, body.Error.Code)
	assert.Contains(t, body.Error.Message, "at least 3 rated books")
}

// Unrated entries do not count toward the minimum.
func TestRecommendUnratedBooksDoNotCount(t *testing.T) {
	engine := &stubEngine{}
	srv := newTestServer(t, engine, &stubSearcher{})

	body := `{"read_books": [
	  {"title": "A", "author": "a", "rating": 5},
	  {"title": "B", "author": "b", "rating": 4},
	  {"title": "C", "author": "c", "rating": 0}
	]}`
	resp := postRecommend(t, srv, body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, 0, engine.calls)
}

func TestRecommendInvalidJSON(t *testing.T) {
	engine := &stubEngine{}
	srv := newTestServer(t, engine, &stubSearcher{})

	resp := postRecommend(t, srv, `{"read_books": [`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, engine.calls)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ErrCodeBadRequest, body.Error.Code)
}

func TestRecommendMalformedModelOutput(t *testing.T) {
	engine := &stubEngine{err: types.NewMalformedResponseError("taste profile", "gibberish")}
	srv := newTestServer(t, engine, &stubSearcher{})

	resp := postRecommend(t, srv, recommendBody(3))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ErrCodeMalformedAI, body.Error.Code)
	assert.Contains(t, body.Error.Message, "AI response error")
}

func TestRecommendUpstreamFailure(t *testing.T) {
	engine := &stubEngine{err: &types.UpstreamError{
		Op: "profile completion", Err: fmt.Errorf("connection refused"),
	}}
	srv := newTestServer(t, engine, &stubSearcher{})

	resp := postRecommend(t, srv, recommendBody(3))
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ErrCodeUpstreamFailed, body.Error.Code)
}

func TestSearchBooks(t *testing.T) {
	searcher := &stubSearcher{results: []types.CandidateBook{
		{ID: "vol-1", Title: "Dune", Author: "Frank Herbert"},
	}}
	srv := newTestServer(t, &stubEngine{}, searcher)

	resp, err := http.Get(srv.URL + "/api/books/search?q=dune")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var results []types.CandidateBook
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	require.Len(t, results, 1)
	assert.Equal(t, "Dune", results[0].Title)
}

func TestSearchBooksQueryTooShort(t *testing.T) {
	searcher := &stubSearcher{}
	srv := newTestServer(t, &stubEngine{}, searcher)

	resp, err := http.Get(srv.URL + "/api/books/search?q=d")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, searcher.calls)
}

func TestSearchBooksUpstreamFailure(t *testing.T) {
	searcher := &stubSearcher{err: fmt.Errorf("boom")}
	srv := newTestServer(t, &stubEngine{}, searcher)

	resp, err := http.Get(srv.URL + "/api/books/search?q=dune")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, &stubEngine{}, &stubSearcher{})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "caller-id")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "caller-id", resp2.Header.Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &stubEngine{}, &stubSearcher{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/recommend", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
