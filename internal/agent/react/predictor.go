package react

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Predictor fills the unbound output fields of a schema given the bound fields.
// Implementations own any retry policy; the planner never retries.
type Predictor interface {
	Predict(ctx context.Context, schema *Schema, bound *Fields) (map[string]string, error)
}

// PredictorFunc adapts a function to the Predictor interface.
type PredictorFunc func(ctx context.Context, schema *Schema, bound *Fields) (map[string]string, error)

// Predict calls f.
func (f PredictorFunc) Predict(ctx context.Context, schema *Schema, bound *Fields) (map[string]string, error) {
	return f(ctx, schema, bound)
}

// PredictorError wraps a predictor failure. It aborts the whole invocation.
type PredictorError struct {
	Hop int
	Err error
}

func (e *PredictorError) Error() string {
	return fmt.Sprintf("predictor failed at hop %d: %v", e.Hop, e.Err)
}

func (e *PredictorError) Unwrap() error { return e.Err }

// ErrScriptExhausted is returned by ScriptedPredictor when asked for a hop it has no
// outputs for.
var ErrScriptExhausted = errors.New("scripted predictor has no output for hop")

// ScriptedPredictor replays fixed outputs, one map per hop. It is deterministic and
// safe for concurrent use.
type ScriptedPredictor struct {
	steps []map[string]string
}

// NewScriptedPredictor returns a predictor that answers hop i with steps[i-1].
func NewScriptedPredictor(steps ...map[string]string) *ScriptedPredictor {
	return &ScriptedPredictor{steps: steps}
}

// ScriptFromEntries extracts the Thought and Action values of a recorded trace so it
// can be replayed through the same plan.
func ScriptFromEntries(entries []Entry) *ScriptedPredictor {
	byHop := map[int]map[string]string{}
	for _, e := range entries {
		kind, hop, ok := ParseFieldName(e.Name)
		if !ok || (kind != KindThought && kind != KindAction) {
			continue
		}
		if byHop[hop] == nil {
			byHop[hop] = map[string]string{}
		}
		byHop[hop][e.Name] = e.Value
	}
	hops := make([]int, 0, len(byHop))
	for h := range byHop {
		hops = append(hops, h)
	}
	sort.Ints(hops)
	steps := make([]map[string]string, 0, len(hops))
	for i, h := range hops {
		if h != i+1 {
			break
		}
		steps = append(steps, byHop[h])
	}
	return NewScriptedPredictor(steps...)
}

// Len returns the number of scripted hops.
func (p *ScriptedPredictor) Len() int { return len(p.steps) }

// Predict returns a copy of the outputs scripted for the schema's depth.
func (p *ScriptedPredictor) Predict(ctx context.Context, schema *Schema, _ *Fields) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hop := schema.Depth()
	if hop < 1 || hop > len(p.steps) {
		return nil, fmt.Errorf("%w %d", ErrScriptExhausted, hop)
	}
	out := make(map[string]string, len(p.steps[hop-1]))
	for k, v := range p.steps[hop-1] {
		out[k] = v
	}
	return out, nil
}
