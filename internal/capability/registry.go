package capability

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// FinishName is the reserved name of the terminal pseudo-capability.
const FinishName = "Finish"

// Capability is a named unit the planner can dispatch an action to.
type Capability interface {
	Name() string
	// InputSpec is the human-readable shape of the argument, e.g. "plant_name".
	InputSpec() string
	Description() string
	Invoke(ctx context.Context, argument string) ([]string, error)
}

// ErrDuplicateCapability indicates a registry would contain two capabilities with
// the same name, or not exactly one Finish entry.
var ErrDuplicateCapability = errors.New("duplicate capability")

// ErrInvalidCapability indicates a capability without a usable name.
var ErrInvalidCapability = errors.New("invalid capability")

// Finish is the terminal capability. Its argument becomes the task result and it is
// never invoked by the dispatcher.
type Finish struct {
	output string
}

// NewFinish returns the Finish capability for the given output field name.
func NewFinish(outputField string) Finish {
	return Finish{output: outputField}
}

func (f Finish) Name() string      { return FinishName }
func (f Finish) InputSpec() string { return f.output }
func (f Finish) Description() string {
	return fmt.Sprintf("returns the final `%s` and finishes the task", f.output)
}

// Invoke echoes the argument back; the planner terminates before reaching it.
func (f Finish) Invoke(_ context.Context, argument string) ([]string, error) {
	return []string{argument}, nil
}

// Registry holds capabilities keyed by name, preserving registration order.
type Registry struct {
	byName map[string]Capability
	order  []Capability
	finish Capability
}

// NewRegistry validates and registers the capabilities. Exactly one Finish-named
// capability must be supplied; any other name may appear only once.
func NewRegistry(caps ...Capability) (*Registry, error) {
	reg := &Registry{byName: make(map[string]Capability, len(caps))}
	finishes := 0
	for _, c := range caps {
		if c == nil {
			return nil, fmt.Errorf("%w: nil capability", ErrInvalidCapability)
		}
		name := c.Name()
		if strings.TrimSpace(name) == "" || name != strings.TrimSpace(name) {
			return nil, fmt.Errorf("%w: name %q", ErrInvalidCapability, name)
		}
		if strings.ContainsAny(name, "[]") {
			return nil, fmt.Errorf("%w: name %q contains brackets", ErrInvalidCapability, name)
		}
		if name == FinishName {
			finishes++
			reg.finish = c
			continue
		}
		if _, ok := reg.byName[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCapability, name)
		}
		reg.byName[name] = c
		reg.order = append(reg.order, c)
	}
	if finishes != 1 {
		return nil, fmt.Errorf("%w: expected exactly one %s capability, got %d", ErrDuplicateCapability, FinishName, finishes)
	}
	reg.byName[FinishName] = reg.finish
	return reg, nil
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.byName[name]
	return c, ok
}

// Ordered returns the capabilities in registration order with Finish last.
func (r *Registry) Ordered() []Capability {
	if r == nil {
		return nil
	}
	out := make([]Capability, 0, len(r.order)+1)
	out = append(out, r.order...)
	return append(out, r.finish)
}

// Names returns the capability names in the same order as Ordered.
func (r *Registry) Names() []string {
	caps := r.Ordered()
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.Name()
	}
	return names
}

// Len reports the number of registered capabilities including Finish.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order) + 1
}

// Checksum returns a deterministic hash of the registered names, input specs and
// descriptions in order.
func (r *Registry) Checksum() string {
	h := sha256.New()
	for _, c := range r.Ordered() {
		fmt.Fprintf(h, "%s\x00%s\x00%s\n", c.Name(), c.InputSpec(), c.Description())
	}
	return hex.EncodeToString(h.Sum(nil))
}
