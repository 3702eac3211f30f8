// Package assistant wires configuration into a ready-to-run plant planner.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mohammad-safakhou/carie/config"
	"github.com/mohammad-safakhou/carie/internal/agent/predictor"
	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/mohammad-safakhou/carie/internal/agent/tools"
	"github.com/mohammad-safakhou/carie/internal/capability"
	"github.com/mohammad-safakhou/carie/internal/logging"
	"github.com/mohammad-safakhou/carie/internal/plants"
	"github.com/mohammad-safakhou/carie/internal/telemetry"
	"github.com/mohammad-safakhou/carie/internal/trace"
	"github.com/mohammad-safakhou/carie/tools/web_search"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Input and output field names of the assistant signature.
const (
	TaskField   = "task"
	ResultField = "result"
)

// Signature is the task -> result contract of the plant assistant.
func Signature() react.Signature {
	return react.Signature{
		Inputs: []react.FieldSpec{{Name: TaskField, Description: "a need to be fulfilled"}},
		Output: react.FieldSpec{Name: ResultField, Description: "either a success or failure result of task"},
	}
}

// Assistant holds the long-lived components built from a Config.
type Assistant struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Plants  *plants.Registry
	Plan    *react.Plan
	Planner *react.Planner
	Metrics *telemetry.Metrics // nil when telemetry is disabled
	Traces  *trace.Reader      // nil when trace capture is disabled

	closers []func() error
}

// Option overrides a component Build would otherwise create.
type Option func(*builder)

type builder struct {
	predictor react.Predictor
	source    plants.Source
	redis     *redis.Client
	searcher  web_search.WebSearcher
}

// WithPredictor replaces the LM predictor.
func WithPredictor(p react.Predictor) Option {
	return func(b *builder) { b.predictor = p }
}

// WithPlantSource replaces the configured plant source.
func WithPlantSource(src plants.Source) Option {
	return func(b *builder) { b.source = src }
}

// WithRedis supplies the trace client instead of dialing storage.redis.
func WithRedis(client *redis.Client) Option {
	return func(b *builder) { b.redis = client }
}

// WithSearcher replaces the searcher built from the search keys.
func WithSearcher(s web_search.WebSearcher) Option {
	return func(b *builder) { b.searcher = s }
}

// Build assembles the assistant. Close releases the connections it opened.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts ...Option) (*Assistant, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = logging.New(logging.Config{Level: cfg.General.LogLevel, Format: cfg.General.LogFormat})
	}
	var b builder
	for _, opt := range opts {
		opt(&b)
	}
	a := &Assistant{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	src := b.source
	if src == nil {
		var err error
		if src, err = a.plantSource(ctx); err != nil {
			return nil, err
		}
	}
	a.Plants = plants.NewRegistry(src, cfg.Plants.LoadTimeout, logging.Component(logger, "plants"))

	searcher := b.searcher
	if searcher == nil && cfg.Search.Enabled() {
		s, err := web_search.FromKeys(web_search.Provider(cfg.Search.Provider), cfg.Search.BraveAPIKey, cfg.Search.SerperAPIKey, &http.Client{Timeout: cfg.Search.Timeout})
		if err != nil {
			return nil, fmt.Errorf("web search: %w", err)
		}
		searcher = s
	}

	plan, err := NewPlan(a.Plants, searcher, cfg.Search.MaxResults, cfg.Planner.MaxHops)
	if err != nil {
		return nil, err
	}
	a.Plan = plan

	pred := b.predictor
	if pred == nil {
		var demos []predictor.Demo
		if cfg.LLM.DemosFile != "" {
			if demos, err = predictor.LoadDemos(cfg.LLM.DemosFile); err != nil {
				return nil, err
			}
		}
		pred = predictor.New(predictor.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: float32(cfg.LLM.Temperature),
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
			MaxRetries:  cfg.LLM.MaxRetries,
		}, demos, logging.Component(logger, "predictor"))
	}

	policy, err := react.ParseInvocationErrorPolicy(cfg.Planner.InvocationErrorPolicy)
	if err != nil {
		return nil, err
	}
	plannerOpts := []react.Option{
		react.WithLogger(logging.Component(logger, "planner")),
		react.WithInvocationErrorPolicy(policy),
		react.WithDuplicateActionGuard(cfg.Planner.DuplicateActionGuard),
	}
	if cfg.Telemetry.Enabled {
		a.Metrics = telemetry.New()
		plannerOpts = append(plannerOpts, react.WithMetrics(a.Metrics.Planner()))
	}
	if cfg.Trace.Enabled {
		client, err := a.traceClient(ctx, b.redis)
		if err != nil {
			return nil, err
		}
		pub := trace.NewPublisher(client,
			trace.WithStream(cfg.Trace.Stream),
			trace.WithMaxLenApprox(cfg.Trace.MaxLen),
			trace.WithLogger(logging.Component(logger, "trace")),
		)
		a.Traces = trace.NewReader(client, cfg.Trace.Stream)
		plannerOpts = append(plannerOpts, react.WithRecorder(pub))
	}

	if a.Planner, err = react.New(plan, pred, plannerOpts...); err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

// NewPlan builds the plant plan: the plant capabilities, web_search when
// searcher is set, and Finish.
func NewPlan(reg *plants.Registry, searcher web_search.WebSearcher, maxResults, maxHops int) (*react.Plan, error) {
	caps := append(tools.Set(reg, searcher, maxResults), capability.NewFinish(ResultField))
	capReg, err := capability.NewRegistry(caps...)
	if err != nil {
		return nil, err
	}
	return react.NewPlan(Signature(), capReg, maxHops)
}

func (a *Assistant) plantSource(ctx context.Context) (plants.Source, error) {
	switch a.Config.Plants.Source {
	case "postgres":
		pg, err := plants.OpenPostgres(ctx, a.Config.Storage.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("plants postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		return pg, nil
	default:
		return plants.FileSource{Path: a.Config.Plants.File}, nil
	}
}

func (a *Assistant) traceClient(ctx context.Context, client *redis.Client) (*redis.Client, error) {
	if client != nil {
		return client, nil
	}
	rc := a.Config.Storage.Redis
	client = redis.NewClient(&redis.Options{
		Addr:        rc.Addr(),
		Password:    rc.Password,
		DB:          rc.DB,
		DialTimeout: rc.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed (%s): %w", rc.Addr(), err)
	}
	a.closers = append(a.closers, client.Close)
	return client, nil
}

// Ask runs one task text through the planner, bounded by planner.task_timeout.
func (a *Assistant) Ask(ctx context.Context, task string) (react.Result, error) {
	if d := a.Config.Planner.TaskTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return a.Planner.Run(ctx, react.Task{TaskField: task})
}

// Close releases connections opened by Build.
func (a *Assistant) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
