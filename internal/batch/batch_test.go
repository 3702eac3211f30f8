package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plannerFunc func(ctx context.Context, task react.Task) (react.Result, error)

func (f plannerFunc) Run(ctx context.Context, task react.Task) (react.Result, error) { return f(ctx, task) }

func TestRunKeepsInputOrder(t *testing.T) {
	p := plannerFunc(func(ctx context.Context, task react.Task) (react.Result, error) {
		if task["task"] == "slow" {
			time.Sleep(20 * time.Millisecond)
		}
		return react.Result{Status: react.StatusFinished, Value: strings.ToUpper(task["task"])}, nil
	})
	tasks := []react.Task{{"task": "slow"}, {"task": "a"}, {"task": "b"}}

	out := New(p, WithConcurrency(3)).Run(context.Background(), tasks)
	require.Len(t, out, 3)
	for i, want := range []string{"SLOW", "A", "B"} {
		assert.Equal(t, i, out[i].Index)
		assert.Equal(t, want, out[i].Result.Value)
		assert.NoError(t, out[i].Err)
	}
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	p := plannerFunc(func(ctx context.Context, task react.Task) (react.Result, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return react.Result{}, nil
	})
	tasks := make([]react.Task, 20)
	for i := range tasks {
		tasks[i] = react.Task{"task": "x"}
	}

	New(p, WithConcurrency(2)).Run(context.Background(), tasks)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunIsolatesFailures(t *testing.T) {
	boom := &react.PredictorError{Hop: 1, Err: errors.New("model down")}
	var mu sync.Mutex
	var done []int
	p := plannerFunc(func(ctx context.Context, task react.Task) (react.Result, error) {
		if task["task"] == "bad" {
			return react.Result{}, boom
		}
		return react.Result{Status: react.StatusFinished, Value: "ok"}, nil
	})
	metrics := Metrics{TaskDone: func(ctx context.Context, o Outcome) {
		mu.Lock()
		done = append(done, o.Index)
		mu.Unlock()
	}}

	out := New(p, WithMetrics(metrics)).Run(context.Background(), []react.Task{{"task": "bad"}, {"task": "good"}})
	var perr *react.PredictorError
	assert.True(t, errors.As(out[0].Err, &perr))
	assert.NoError(t, out[1].Err)
	assert.Equal(t, "ok", out[1].Result.Value)
	assert.ElementsMatch(t, []int{0, 1}, done)
}

func TestRunAppliesTaskTimeout(t *testing.T) {
	p := plannerFunc(func(ctx context.Context, task react.Task) (react.Result, error) {
		<-ctx.Done()
		return react.Result{}, ctx.Err()
	})
	out := New(p, WithTaskTimeout(10*time.Millisecond)).Run(context.Background(), []react.Task{{"task": "x"}})
	assert.ErrorIs(t, out[0].Err, context.DeadlineExceeded)
}

func TestRunCancelledContext(t *testing.T) {
	var calls atomic.Int32
	p := plannerFunc(func(ctx context.Context, task react.Task) (react.Result, error) {
		calls.Add(1)
		return react.Result{}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := New(p).Run(ctx, []react.Task{{"task": "a"}, {"task": "b"}})
	for _, o := range out {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
	assert.Zero(t, calls.Load())
}

func TestReadTasks(t *testing.T) {
	tasks, err := ReadTasks(strings.NewReader("# plants\nWhat's the humidity for Fern?\n\n  List my plants  \n"), "task")
	require.NoError(t, err)
	assert.Equal(t, []react.Task{
		{"task": "What's the humidity for Fern?"},
		{"task": "List my plants"},
	}, tasks)
}
