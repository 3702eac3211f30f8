// Package batch runs many independent planner tasks on a bounded worker pool.
package batch

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is used when no positive limit is configured.
const DefaultConcurrency = 4

// Planner runs one task.
type Planner interface {
	Run(ctx context.Context, task react.Task) (react.Result, error)
}

// Outcome is the result of one task. Err holds the run's error, if any.
type Outcome struct {
	Index    int
	Task     react.Task
	Result   react.Result
	Err      error
	Duration time.Duration
}

// Metrics aggregates optional telemetry callbacks.
type Metrics struct {
	TaskDone func(context.Context, Outcome)
}

// Option configures runner behaviour.
type Option func(*Runner)

// WithConcurrency bounds the number of tasks in flight.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithTaskTimeout bounds each task; zero disables the bound.
func WithTaskTimeout(d time.Duration) Option {
	return func(r *Runner) { r.taskTimeout = d }
}

// WithMetrics sets runner metrics callbacks.
func WithMetrics(m Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the runner logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner fans tasks out to a shared planner.
type Runner struct {
	planner     Planner
	concurrency int
	taskTimeout time.Duration
	metrics     Metrics
	logger      *logrus.Entry
}

// New creates a Runner.
func New(p Planner, opts ...Option) *Runner {
	r := &Runner{
		planner:     p,
		concurrency: DefaultConcurrency,
		logger:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithField("component", "batch")
	return r
}

// Run executes every task and returns one outcome per task in input order. A
// failing task does not stop the others. Tasks not started before ctx is done
// get ctx's error.
func (r *Runner) Run(ctx context.Context, tasks []react.Task) []Outcome {
	out := make([]Outcome, len(tasks))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, task := range tasks {
		i, task := i, task
		out[i] = Outcome{Index: i, Task: task}
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}
		g.Go(func() error {
			out[i] = r.runOne(ctx, i, task)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Runner) runOne(ctx context.Context, i int, task react.Task) Outcome {
	o := Outcome{Index: i, Task: task}
	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}
	if r.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.taskTimeout)
		defer cancel()
	}
	started := time.Now()
	o.Result, o.Err = r.planner.Run(ctx, task)
	o.Duration = time.Since(started)
	if o.Err != nil {
		r.logger.WithError(o.Err).WithField("index", i).Warn("task failed")
	}
	if r.metrics.TaskDone != nil {
		r.metrics.TaskDone(ctx, o)
	}
	return o
}

// ReadTasks reads one task text per line, skipping blank lines and lines
// starting with "#", and binds each to input.
func ReadTasks(rd io.Reader, input string) ([]react.Task, error) {
	var tasks []react.Task
	sc := bufio.NewScanner(rd)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tasks = append(tasks, react.Task{input: line})
	}
	return tasks, sc.Err()
}
