package react

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mohammad-safakhou/carie/internal/capability"
)

// ErrInvalidPlan indicates a plan cannot be built from the given configuration.
var ErrInvalidPlan = errors.New("invalid plan")

// Plan bundles the instructions, the capability registry and one schema per hop
// depth. It is built once and is read-only afterwards.
type Plan struct {
	signature    Signature
	registry     *capability.Registry
	instructions string
	schemas      []*Schema
	fingerprint  string
}

// NewPlan builds the instructions and the maxHops schemas for sig.
func NewPlan(sig Signature, registry *capability.Registry, maxHops int) (*Plan, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: capability registry is required", ErrInvalidPlan)
	}
	if maxHops < 1 {
		return nil, fmt.Errorf("%w: max hops must be at least 1, got %d", ErrInvalidPlan, maxHops)
	}
	finish, ok := registry.Lookup(capability.FinishName)
	if !ok {
		return nil, fmt.Errorf("%w: registry has no %s capability", ErrInvalidPlan, capability.FinishName)
	}
	if finish.InputSpec() != sig.Output.Name {
		return nil, fmt.Errorf("%w: %s returns %q but the output field is %q", ErrInvalidPlan, capability.FinishName, finish.InputSpec(), sig.Output.Name)
	}
	for _, in := range sig.Inputs {
		if _, clash := registry.Lookup(in.Name); clash {
			return nil, fmt.Errorf("%w: input %s shadows a capability", ErrInvalidPlan, in.Name)
		}
	}

	caps := registry.Ordered()
	p := &Plan{
		signature:    sig,
		registry:     registry,
		instructions: BuildInstructions(caps, sig.InputNames(), []string{sig.Output.Name}),
		schemas:      make([]*Schema, maxHops),
	}
	for d := 1; d <= maxHops; d++ {
		p.schemas[d-1] = BuildSchema(d, sig.Inputs, caps, p.instructions)
	}
	p.fingerprint = p.computeFingerprint()
	return p, nil
}

// MaxHops is the number of schemas in the plan.
func (p *Plan) MaxHops() int { return len(p.schemas) }

// Schema returns the schema for depth d (1-based).
func (p *Plan) Schema(d int) (*Schema, bool) {
	if d < 1 || d > len(p.schemas) {
		return nil, false
	}
	return p.schemas[d-1], true
}

// Instructions returns the shared instruction block.
func (p *Plan) Instructions() string { return p.instructions }

// Registry returns the capability registry.
func (p *Plan) Registry() *capability.Registry { return p.registry }

// Signature returns the declared inputs and output.
func (p *Plan) Signature() Signature { return p.signature }

// Fingerprint identifies the prompt layout; two plans with the same fingerprint
// generate identical prompts for identical inputs.
func (p *Plan) Fingerprint() string { return p.fingerprint }

func (p *Plan) computeFingerprint() string {
	h := sha256.New()
	io.WriteString(h, p.instructions)
	io.WriteString(h, "\x00"+p.signature.Output.Name+"\x00")
	io.WriteString(h, p.registry.Checksum())
	for _, s := range p.schemas {
		io.WriteString(h, "\n"+strings.Join(s.Names(), ","))
	}
	return hex.EncodeToString(h.Sum(nil))
}
