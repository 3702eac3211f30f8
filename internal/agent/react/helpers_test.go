package react

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/mohammad-safakhou/carie/internal/capability"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var assistSignature = Signature{
	Inputs: []FieldSpec{{Name: "task", Description: "a need to be fulfilled"}},
	Output: FieldSpec{Name: "result", Description: "either a success or failure result of task"},
}

type fakeCapability struct {
	name    string
	spec    string
	desc    string
	invoke  func(ctx context.Context, arg string) ([]string, error)
	calls   atomic.Int64
	lastArg atomic.Value
}

func (f *fakeCapability) Name() string        { return f.name }
func (f *fakeCapability) InputSpec() string   { return f.spec }
func (f *fakeCapability) Description() string { return f.desc }
func (f *fakeCapability) Invoke(ctx context.Context, arg string) ([]string, error) {
	f.calls.Add(1)
	f.lastArg.Store(arg)
	if f.invoke == nil {
		return []string{"ok"}, nil
	}
	return f.invoke(ctx, arg)
}

func sensorCapability() *fakeCapability {
	return &fakeCapability{
		name: "read_plant_sensor",
		spec: "plant_name, sensor_name",
		desc: "selects one of our plants by its name and read one of its sensors",
		invoke: func(ctx context.Context, arg string) ([]string, error) {
			if arg == "Fern, air_humidity" {
				return []string{"Fern's air humidity currently is 42. Ideally it should be between 30 and 60"}, nil
			}
			return []string{"We don't have that reading"}, nil
		},
	}
}

func failingCapability() *fakeCapability {
	return &fakeCapability{
		name: "examine_plant",
		spec: "plant_name",
		desc: "describes a plant",
		invoke: func(ctx context.Context, arg string) ([]string, error) {
			return nil, errors.New("storage offline")
		},
	}
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestPlan(t *testing.T, maxHops int, caps ...capability.Capability) *Plan {
	t.Helper()
	reg, err := capability.NewRegistry(append(caps, capability.NewFinish("result"))...)
	require.NoError(t, err)
	plan, err := NewPlan(assistSignature, reg, maxHops)
	require.NoError(t, err)
	return plan
}
