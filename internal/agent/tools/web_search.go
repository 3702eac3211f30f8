package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mohammad-safakhou/carie/internal/helpers"
	"github.com/mohammad-safakhou/carie/tools/web_search"
)

// DefaultSearchResults bounds web_search passages when MaxResults is unset.
const DefaultSearchResults = 5

// WebSearch runs a web query. Every hit becomes one JSON passage with title and
// content, both reduced to plain text.
type WebSearch struct {
	Searcher   web_search.WebSearcher
	MaxResults int
}

func (WebSearch) Name() string      { return "web_search" }
func (WebSearch) InputSpec() string { return "query" }
func (WebSearch) Description() string {
	return "takes a search query and returns one or more potentially relevant results from a web search engine"
}

type searchPassage struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (c WebSearch) Invoke(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	k := c.MaxResults
	if k <= 0 {
		k = DefaultSearchResults
	}
	results, err := c.Searcher.Discover(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		b, err := json.Marshal(searchPassage{Title: helpers.PlainText(r.Title), Content: helpers.PlainText(r.Snippet)})
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}
