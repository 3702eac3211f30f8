// Package trace captures completed planner runs on a Redis stream so they can be
// inspected, replayed and used as few-shot material.
package trace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/carie/internal/agent/react"
)

const (
	EventType      = "carie.trace"
	PayloadVersion = "v1"
)

var (
	ErrNotFound            = errors.New("trace not found")
	ErrFingerprintMismatch = errors.New("trace was recorded with a different plan")
)

// Trace is one completed run.
type Trace struct {
	RunID       string        `json:"run_id"`
	Fingerprint string        `json:"fingerprint"`
	Status      react.Status  `json:"status"`
	Result      string        `json:"result"`
	Hops        int           `json:"hops"`
	Task        react.Task    `json:"task"`
	Fields      []react.Entry `json:"fields"`
	RecordedAt  time.Time     `json:"recorded_at"`
	StreamID    string        `json:"-"`
}

// FromResult captures a run of plan.
func FromResult(plan *react.Plan, task react.Task, res react.Result) Trace {
	return Trace{
		RunID:       res.RunID,
		Fingerprint: plan.Fingerprint(),
		Status:      res.Status,
		Result:      res.Value,
		Hops:        res.Hops(),
		Task:        task,
		Fields:      res.State.Entries(),
		RecordedAt:  time.Now().UTC(),
	}
}

// State rebuilds the reasoning state of the trace.
func (t Trace) State() *react.ReasoningState {
	return react.StateFromEntries(t.Fields)
}

// Report compares a replayed run with its trace.
type Report struct {
	RunID    string
	Original Trace
	Replayed react.Result
	// Diverged lists field names whose values differ, in trace order.
	Diverged []string
}

// Match reports whether the replay reproduced status, result and every field.
func (r Report) Match() bool {
	return len(r.Diverged) == 0 && r.Original.Status == r.Replayed.Status && r.Original.Result == r.Replayed.Value
}

// Replay re-runs the trace's recorded thoughts and actions through plan. The
// capabilities are invoked again, so observations reflect current data.
func Replay(ctx context.Context, plan *react.Plan, t Trace, opts ...react.Option) (Report, error) {
	if t.Fingerprint != plan.Fingerprint() {
		return Report{}, fmt.Errorf("%w: %s", ErrFingerprintMismatch, t.RunID)
	}
	planner, err := react.New(plan, react.ScriptFromEntries(t.Fields), opts...)
	if err != nil {
		return Report{}, err
	}
	res, err := planner.Run(ctx, t.Task)
	if err != nil {
		return Report{}, fmt.Errorf("replay %s: %w", t.RunID, err)
	}
	rep := Report{RunID: t.RunID, Original: t, Replayed: res}
	replayed := react.FieldsFromEntries(res.State.Entries())
	for _, e := range t.Fields {
		if v, ok := replayed.Get(e.Name); !ok || v != e.Value {
			rep.Diverged = append(rep.Diverged, e.Name)
		}
	}
	if replayed.Len() > len(t.Fields) {
		known := react.FieldsFromEntries(t.Fields)
		for _, name := range replayed.Names() {
			if !known.Has(name) {
				rep.Diverged = append(rep.Diverged, name)
			}
		}
	}
	return rep, nil
}
