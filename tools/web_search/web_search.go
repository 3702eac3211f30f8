package web_search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/carie/tools/web_search/brave"
	"github.com/mohammad-safakhou/carie/tools/web_search/models"
	"github.com/mohammad-safakhou/carie/tools/web_search/serper"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

var (
	ErrUnsupportedProvider = &Error{"unsupported provider"}
	ErrNoProvider          = &Error{"no search provider configured"}
)

func NewWebSearcher(provider Provider, apiKey string, client *http.Client) (WebSearcher, error) {
	switch Provider(strings.ToLower(string(provider))) {
	case SerperProvider:
		return serper.Search{ApiKey: apiKey, Client: client}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey, Client: client}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// Fallback queries each searcher in order and returns the first successful
// answer. An empty result counts as success.
type Fallback []WebSearcher

func (f Fallback) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	if len(f) == 0 {
		return nil, ErrNoProvider
	}
	var errs []error
	for i, s := range f {
		out, err := s.Discover(ctx, q, k)
		if err == nil {
			return out, nil
		}
		errs = append(errs, fmt.Errorf("searcher %d: %w", i, err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

// FromKeys builds the searchers for every configured key, with preferred first.
func FromKeys(preferred Provider, braveKey, serperKey string, client *http.Client) (WebSearcher, error) {
	keys := map[Provider]string{BraveProvider: braveKey, SerperProvider: serperKey}
	order := []Provider{BraveProvider, SerperProvider}
	if preferred == SerperProvider {
		order = []Provider{SerperProvider, BraveProvider}
	}
	var chain Fallback
	for _, p := range order {
		if keys[p] == "" {
			continue
		}
		s, err := NewWebSearcher(p, keys[p], client)
		if err != nil {
			return nil, err
		}
		chain = append(chain, s)
	}
	if len(chain) == 0 {
		return nil, ErrNoProvider
	}
	return chain, nil
}
