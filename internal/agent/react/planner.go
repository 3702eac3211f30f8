package react

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/carie/internal/capability"
	"github.com/sirupsen/logrus"
)

// Status is the terminal state of a planner invocation.
type Status string

const (
	StatusFinished  Status = "finished"
	StatusExhausted Status = "exhausted"
)

// Task carries the input field values of one invocation.
type Task map[string]string

// ErrMissingInput indicates a task without a value for a declared input.
var ErrMissingInput = errors.New("missing task input")

// Result is the outcome of one invocation. An exhausted run is not an error: it
// has StatusExhausted and an empty Value.
type Result struct {
	RunID  string
	Status Status
	Value  string
	State  *ReasoningState
}

// Hops returns the number of hops the run reached.
func (r Result) Hops() int { return r.State.HopCount() }

// Metrics aggregates optional telemetry callbacks.
type Metrics struct {
	Predict      func(ctx context.Context, hop int, d time.Duration, err error)
	Dispatch     func(ctx context.Context, capability string, failure Failure, d time.Duration)
	RunCompleted func(ctx context.Context, status Status, hops int, d time.Duration)
}

// Recorder receives every completed run, e.g. to capture traces for few-shot
// bootstrapping. Record errors are logged and never fail the run.
type Recorder interface {
	Record(ctx context.Context, plan *Plan, task Task, res Result) error
}

// Option configures planner behaviour.
type Option func(*Planner)

// WithLogger sets the planner logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets planner metrics callbacks.
func WithMetrics(m Metrics) Option {
	return func(p *Planner) { p.metrics = m }
}

// WithInvocationErrorPolicy sets how capability failures are handled.
func WithInvocationErrorPolicy(policy InvocationErrorPolicy) Option {
	return func(p *Planner) { p.policy = policy }
}

// WithDuplicateActionGuard enables the repeated-action warning.
func WithDuplicateActionGuard(enabled bool) Option {
	return func(p *Planner) { p.duplicateGuard = enabled }
}

// WithRecorder sets the completed-run recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Planner) { p.recorder = r }
}

// Planner drives the Think-Act-Observe loop over a Plan. It holds no per-call
// state and can serve concurrent invocations.
type Planner struct {
	plan           *Plan
	predictor      Predictor
	dispatcher     *Dispatcher
	policy         InvocationErrorPolicy
	duplicateGuard bool
	recorder       Recorder
	metrics        Metrics
	logger         *logrus.Entry
}

// New creates a planner for plan using predictor.
func New(plan *Plan, predictor Predictor, opts ...Option) (*Planner, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: plan is nil", ErrInvalidPlan)
	}
	if predictor == nil {
		return nil, errors.New("predictor is required")
	}
	p := &Planner{
		plan:      plan,
		predictor: predictor,
		logger:    logrus.NewEntry(logrus.StandardLogger()).WithField("component", "planner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.dispatcher = NewDispatcher(plan.Registry(), p.policy, p.logger, p.metrics)
	return p, nil
}

// Plan returns the plan the planner runs.
func (p *Planner) Plan() *Plan { return p.plan }

// DuplicateWarning is the observation recorded when the duplicate-action guard
// catches a repeated action.
func DuplicateWarning(action string) string {
	return fmt.Sprintf("You already ran %s. Choose a different action or finish.", action)
}

// Run executes hops until the predictor selects Finish or the plan's hops are
// exhausted. Cancellation is observed between hops. Predictor failures abort the
// run with a *PredictorError; the partial result is still returned.
func (p *Planner) Run(ctx context.Context, task Task) (Result, error) {
	started := time.Now()
	res := Result{RunID: uuid.NewString(), State: newReasoningState()}
	for _, in := range p.plan.Signature().Inputs {
		v, ok := task[in.Name]
		if !ok {
			return res, fmt.Errorf("%w: %s", ErrMissingInput, in.Name)
		}
		res.State.set(in.Name, v)
	}
	log := p.logger.WithField("run_id", res.RunID)

	for hop := 1; hop <= p.plan.MaxHops(); hop++ {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("before hop %d: %w", hop, err)
		}
		done, err := p.step(ctx, log, res.State, hop)
		if err != nil {
			return res, err
		}
		if done {
			res.Status = StatusFinished
			res.Value, _ = finishArgument(res.State, hop)
			break
		}
	}
	if res.Status == "" {
		res.Status = StatusExhausted
	}

	elapsed := time.Since(started)
	log.WithFields(logrus.Fields{
		"status":   res.Status,
		"hops":     res.Hops(),
		"duration": elapsed,
	}).Info("run completed")
	if p.metrics.RunCompleted != nil {
		p.metrics.RunCompleted(ctx, res.Status, res.Hops(), elapsed)
	}
	if p.recorder != nil {
		if err := p.recorder.Record(ctx, p.plan, task, res); err != nil {
			log.WithError(err).Warn("record trace")
		}
	}
	return res, nil
}

// step runs one hop and reports whether Finish was selected.
func (p *Planner) step(ctx context.Context, log *logrus.Entry, state *ReasoningState, hop int) (bool, error) {
	schema, _ := p.plan.Schema(hop)
	bound := state.bound()

	predictStart := time.Now()
	values, err := p.predictor.Predict(ctx, schema, bound)
	if p.metrics.Predict != nil {
		p.metrics.Predict(ctx, hop, time.Since(predictStart), err)
	}
	if err != nil {
		return false, &PredictorError{Hop: hop, Err: err}
	}
	for _, f := range schema.Unbound(bound) {
		state.set(f.Name, f.Clean(values[f.Name]))
	}

	action, _ := state.Action(hop)
	log = log.WithFields(logrus.Fields{"hop": hop, "action": action})
	name, arg, err := ParseAction(action)
	if err != nil {
		log.Debug("malformed action")
		if p.metrics.Dispatch != nil {
			p.metrics.Dispatch(ctx, "", FailureMalformedAction, 0)
		}
		state.set(ObservationField(hop), FailedActionObservation)
		return false, nil
	}

	if p.duplicateGuard && name != capability.FinishName && state.repeatsAction(action, hop) {
		log.Debug("duplicate action")
		if p.metrics.Dispatch != nil {
			p.metrics.Dispatch(ctx, p.dispatcher.label(name), FailureDuplicateAction, 0)
		}
		state.set(ObservationField(hop), DuplicateWarning(action))
		return false, nil
	}

	out, err := p.dispatcher.Dispatch(ctx, name, arg)
	if out.Terminal {
		log.Debug("finish")
		return true, nil
	}
	state.set(ObservationField(hop), out.Observation)
	if err != nil {
		return false, err
	}
	log.WithField("failure", out.Failure).Debug("observed")
	return false, nil
}

func finishArgument(state *ReasoningState, hop int) (string, bool) {
	action, ok := state.Action(hop)
	if !ok {
		return "", false
	}
	_, arg, err := ParseAction(action)
	return arg, err == nil
}
