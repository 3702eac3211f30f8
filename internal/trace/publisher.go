package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultStream is the stream traces are appended to.
const DefaultStream = "carie:traces"

// Publisher appends traces to a Redis stream. It implements react.Recorder.
type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *logrus.Entry
}

var _ react.Recorder = (*Publisher)(nil)

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithStream sets the stream name.
func WithStream(stream string) PublisherOption {
	return func(p *Publisher) {
		if stream != "" {
			p.stream = stream
		}
	}
}

// WithMaxLenApprox caps the stream length approximately.
func WithMaxLenApprox(maxLen int64) PublisherOption {
	return func(p *Publisher) { p.maxLen = maxLen }
}

// WithLogger sets the publisher logger.
func WithLogger(logger *logrus.Entry) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher creates a Publisher instance.
func NewPublisher(client *redis.Client, opts ...PublisherOption) *Publisher {
	p := &Publisher{client: client, stream: DefaultStream, logger: logrus.NewEntry(logrus.StandardLogger())}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithField("component", "trace")
	return p
}

// Record publishes the completed run.
func (p *Publisher) Record(ctx context.Context, plan *react.Plan, task react.Task, res react.Result) error {
	id, err := p.Publish(ctx, FromResult(plan, task, res))
	if err != nil {
		return err
	}
	p.logger.WithFields(logrus.Fields{"run_id": res.RunID, "stream_id": id}).Debug("trace published")
	return nil
}

// Publish wraps t in an envelope and appends it to the stream.
func (p *Publisher) Publish(ctx context.Context, t Trace) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal trace: %w", err)
	}
	env := Envelope{
		EventID:        uuid.NewString(),
		EventType:      EventType,
		OccurredAt:     time.Now().UTC(),
		PayloadVersion: PayloadVersion,
		Data:           data,
	}
	raw, err := env.Marshal()
	if err != nil {
		return "", err
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{"envelope": raw, "run_id": t.RunID},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}
