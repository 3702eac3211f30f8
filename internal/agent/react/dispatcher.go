package react

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/carie/internal/capability"
	"github.com/sirupsen/logrus"
)

// InvocationErrorPolicy decides what happens when a capability fails internally.
type InvocationErrorPolicy int

const (
	// ContinueOnError records the fixed failure observation and keeps going.
	ContinueOnError InvocationErrorPolicy = iota
	// AbortOnError records the observation and then aborts the invocation.
	AbortOnError
)

func (p InvocationErrorPolicy) String() string {
	if p == AbortOnError {
		return "abort"
	}
	return "continue"
}

// ParseInvocationErrorPolicy maps "continue" / "abort" to a policy.
func ParseInvocationErrorPolicy(s string) (InvocationErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continue":
		return ContinueOnError, nil
	case "abort":
		return AbortOnError, nil
	}
	return ContinueOnError, fmt.Errorf("unknown invocation error policy %q", s)
}

// ErrCapabilityInvocation wraps an internal capability failure when the policy is
// AbortOnError.
var ErrCapabilityInvocation = errors.New("capability invocation failed")

// Failure classifies a recovered dispatch problem.
type Failure string

const (
	FailureNone              Failure = ""
	FailureMalformedAction   Failure = "malformed_action"
	FailureUnknownCapability Failure = "unknown_capability"
	FailureInvocation        Failure = "invocation_error"
	FailureDuplicateAction   Failure = "duplicate_action"
)

// Outcome is the result of dispatching one action.
type Outcome struct {
	// Terminal is set when the action was Finish; Value then holds the result.
	Terminal    bool
	Value       string
	Observation string
	Failure     Failure
}

// UnknownCapabilityName is reported to Metrics.Dispatch in place of a name
// that matches no registered capability.
const UnknownCapabilityName = "unknown"

// Dispatcher routes parsed actions to capabilities.
type Dispatcher struct {
	registry *capability.Registry
	policy   InvocationErrorPolicy
	logger   *logrus.Entry
	metrics  Metrics
}

// NewDispatcher returns a dispatcher over registry.
func NewDispatcher(registry *capability.Registry, policy InvocationErrorPolicy, logger *logrus.Entry, metrics Metrics) *Dispatcher {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dispatcher{registry: registry, policy: policy, logger: logger, metrics: metrics}
}

// Dispatch runs the named capability. Unknown names and failed invocations are
// reported through Outcome.Observation; an error is returned only for failures under
// AbortOnError.
func (d *Dispatcher) Dispatch(ctx context.Context, name, argument string) (Outcome, error) {
	if name == capability.FinishName {
		d.observe(ctx, name, FailureNone, 0)
		return Outcome{Terminal: true, Value: argument}, nil
	}
	c, ok := d.registry.Lookup(name)
	if !ok {
		d.logger.WithField("capability", name).Debug("unknown capability")
		d.observe(ctx, d.label(name), FailureUnknownCapability, 0)
		return Outcome{Observation: FailedActionObservation, Failure: FailureUnknownCapability}, nil
	}

	start := time.Now()
	passages, err := invoke(ctx, c, argument)
	elapsed := time.Since(start)
	if err != nil {
		d.logger.WithFields(logrus.Fields{
			"capability": name,
			"argument":   argument,
		}).WithError(err).Warn("capability invocation failed")
		d.observe(ctx, name, FailureInvocation, elapsed)
		out := Outcome{Observation: FailedActionObservation, Failure: FailureInvocation}
		if d.policy == AbortOnError {
			return out, fmt.Errorf("%w: %s: %v", ErrCapabilityInvocation, name, err)
		}
		return out, nil
	}
	d.observe(ctx, name, FailureNone, elapsed)
	return Outcome{Observation: JoinPassages(passages)}, nil
}

// label is the capability name reported to metrics. Names outside the
// registry collapse to UnknownCapabilityName so series stay bounded.
func (d *Dispatcher) label(name string) string {
	if name == capability.FinishName {
		return name
	}
	if _, ok := d.registry.Lookup(name); ok {
		return name
	}
	return UnknownCapabilityName
}

func (d *Dispatcher) observe(ctx context.Context, name string, failure Failure, elapsed time.Duration) {
	if d.metrics.Dispatch != nil {
		d.metrics.Dispatch(ctx, name, failure, elapsed)
	}
}

func invoke(ctx context.Context, c capability.Capability, argument string) (passages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.Invoke(ctx, argument)
}
