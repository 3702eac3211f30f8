// Package predictor fills planner schemas with an OpenAI-compatible chat model.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mohammad-safakhou/carie/internal/agent/react"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Config configures the LM client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// ErrEmptyCompletion indicates a response without choices.
var ErrEmptyCompletion = errors.New("empty completion")

// LM implements react.Predictor. It is safe for concurrent use.
type LM struct {
	client     *openai.Client
	cfg        Config
	demos      []Demo
	logger     *logrus.Entry
	newBackOff func() backoff.BackOff
}

var _ react.Predictor = (*LM)(nil)

// New creates an LM predictor.
func New(cfg Config, demos []Demo, logger *logrus.Entry) *LM {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LM{
		client: openai.NewClientWithConfig(oc),
		cfg:    cfg,
		demos:  demos,
		logger: logger.WithField("component", "predictor"),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// Predict renders the prompt, calls the model and parses its completion. When the
// completion stops before every unbound field is written, the model is asked to
// continue from the first missing field.
func (m *LM) Predict(ctx context.Context, schema *react.Schema, bound *react.Fields) (map[string]string, error) {
	state := bound.Clone()
	out := map[string]string{}
	unbound := schema.Unbound(state)
	for attempt := 0; len(unbound) > 0 && attempt < len(schema.Generated()); attempt++ {
		prompt := RenderPrompt(schema, state, m.demos)
		completion, err := m.complete(ctx, prompt, stopSequence(schema))
		if err != nil {
			return nil, err
		}
		parsed := ParseCompletion(unbound, completion)
		if len(parsed) == 0 {
			break
		}
		for _, f := range unbound {
			if v, ok := parsed[f.Name]; ok {
				out[f.Name] = v
				state.Set(f.Name, v)
			}
		}
		unbound = schema.Unbound(state)
		if len(unbound) > 0 {
			m.logger.WithFields(logrus.Fields{"depth": schema.Depth(), "missing": unbound[0].Name}).Debug("continuing partial completion")
		}
	}
	return out, nil
}

func (m *LM) complete(ctx context.Context, prompt, stop string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       m.cfg.Model,
		Temperature: m.cfg.Temperature,
		MaxTokens:   m.cfg.MaxTokens,
		Stop:        []string{stop},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var content string
	op := func() error {
		resp, err := m.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			m.logger.WithError(err).Warn("chat completion failed, retrying")
			return err
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(ErrEmptyCompletion)
		}
		content = resp.Choices[0].Message.Content
		return nil
	}
	retries := m.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(m.newBackOff(), uint64(retries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return content, nil
}

// retryable reports whether err is worth another attempt: transport failures,
// rate limits and server errors.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError || code == 0
}
