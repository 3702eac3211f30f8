package web_search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammad-safakhou/carie/tools/web_search/brave"
	"github.com/mohammad-safakhou/carie/tools/web_search/models"
	"github.com/mohammad-safakhou/carie/tools/web_search/serper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	out   []models.Result
	err   error
	calls int
}

func (s *stubSearcher) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	s.calls++
	return s.out, s.err
}

func TestFallbackUsesSecondOnError(t *testing.T) {
	first := &stubSearcher{err: errors.New("rate limited")}
	second := &stubSearcher{out: []models.Result{{Title: "Fern care"}}}

	out, err := Fallback{first, second}.Discover(context.Background(), "fern care", 3)
	require.NoError(t, err)
	assert.Equal(t, "Fern care", out[0].Title)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestFallbackStopsOnFirstSuccess(t *testing.T) {
	first := &stubSearcher{}
	second := &stubSearcher{out: []models.Result{{Title: "unused"}}}

	out, err := Fallback{first, second}.Discover(context.Background(), "fern", 3)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, second.calls)
}

func TestFallbackJoinsErrors(t *testing.T) {
	a, b := errors.New("a down"), errors.New("b down")
	_, err := Fallback{&stubSearcher{err: a}, &stubSearcher{err: b}}.Discover(context.Background(), "q", 1)
	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)

	_, err = Fallback{}.Discover(context.Background(), "q", 1)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestFromKeys(t *testing.T) {
	s, err := FromKeys(BraveProvider, "b", "s", nil)
	require.NoError(t, err)
	chain := s.(Fallback)
	require.Len(t, chain, 2)
	assert.IsType(t, brave.Search{}, chain[0])
	assert.IsType(t, serper.Search{}, chain[1])

	s, err = FromKeys(SerperProvider, "b", "s", nil)
	require.NoError(t, err)
	assert.IsType(t, serper.Search{}, s.(Fallback)[0])

	s, err = FromKeys(BraveProvider, "", "s", nil)
	require.NoError(t, err)
	assert.Len(t, s.(Fallback), 1)

	_, err = FromKeys(BraveProvider, "", "", nil)
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = NewWebSearcher("duckduckgo", "k", nil)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestBraveDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "fern care", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("count"))
		_ = json.NewEncoder(w).Encode(map[string]any{"web": map[string]any{"results": []map[string]string{
			{"title": "Fern care", "url": "https://a", "description": "mist often"},
			{"title": "Ferns", "url": "https://b", "description": "shade"},
			{"title": "extra", "url": "https://c", "description": "cut"},
		}}})
	}))
	defer srv.Close()

	out, err := brave.Search{ApiKey: "key", BaseURL: srv.URL, Client: srv.Client()}.Discover(context.Background(), "fern care", 2)
	require.NoError(t, err)
	assert.Equal(t, []models.Result{
		{Title: "Fern care", URL: "https://a", Snippet: "mist often"},
		{Title: "Ferns", URL: "https://b", Snippet: "shade"},
	}, out)
}

func TestSerperDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("X-API-KEY"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "monstera light", body["q"])
		_ = json.NewEncoder(w).Encode(map[string]any{"organic": []map[string]string{
			{"title": "Monstera", "link": "https://m", "snippet": "bright indirect"},
		}})
	}))
	defer srv.Close()

	out, err := serper.Search{ApiKey: "key", BaseURL: srv.URL, Client: srv.Client()}.Discover(context.Background(), "monstera light", 5)
	require.NoError(t, err)
	assert.Equal(t, []models.Result{{Title: "Monstera", URL: "https://m", Snippet: "bright indirect"}}, out)
}

func TestDiscoverRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := brave.Search{BaseURL: srv.URL}.Discover(context.Background(), "q", 1)
	assert.Error(t, err)
	_, err = serper.Search{BaseURL: srv.URL}.Discover(context.Background(), "q", 1)
	assert.Error(t, err)
}
