package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/mohammad-safakhou/carie/internal/batch"
	"github.com/mohammad-safakhou/carie/internal/capability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlannerHooksFeedCollectors(t *testing.T) {
	m := New()
	hooks := m.Planner()
	ctx := context.Background()

	hooks.Predict(ctx, 1, 20*time.Millisecond, nil)
	hooks.Predict(ctx, 2, time.Second, errors.New("boom"))
	hooks.Dispatch(ctx, "read_plant_sensor", react.FailureNone, time.Millisecond)
	hooks.Dispatch(ctx, "read_plant_sensor", react.FailureInvocation, time.Millisecond)
	hooks.Dispatch(ctx, "", react.FailureMalformedAction, 0)
	hooks.RunCompleted(ctx, react.StatusFinished, 2, time.Second)
	hooks.RunCompleted(ctx, react.StatusExhausted, 8, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues("read_plant_sensor", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues("read_plant_sensor", "invocation_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues("unparsed", "malformed_action")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("finished")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("exhausted")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.predictDuration))
}

func TestUnknownCapabilitiesShareOneSeries(t *testing.T) {
	m := New()
	reg, err := capability.NewRegistry(capability.NewFinish("result"))
	require.NoError(t, err)
	d := react.NewDispatcher(reg, react.ContinueOnError, nil, m.Planner())
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, err := d.Dispatch(ctx, fmt.Sprintf("made_up_%d", i), "x")
		require.NoError(t, err)
	}
	require.NotPanics(t, func() {
		_, _ = d.Dispatch(ctx, "bad\xff", "x")
	})
	m.Planner().Dispatch(ctx, "bad\xff", react.FailureDuplicateAction, 0)

	assert.Equal(t, 2, testutil.CollectAndCount(m.dispatchTotal))
	assert.Equal(t, 51.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues(react.UnknownCapabilityName, "unknown_capability")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues(react.UnknownCapabilityName, "duplicate_action")))
}

func TestBatchHooks(t *testing.T) {
	m := New()
	hooks := m.Batch()
	ctx := context.Background()

	hooks.TaskDone(ctx, batch.Outcome{Result: react.Result{Status: react.StatusFinished}})
	hooks.TaskDone(ctx, batch.Outcome{Result: react.Result{Status: react.StatusExhausted}})
	hooks.TaskDone(ctx, batch.Outcome{Err: errors.New("predictor down")})
	hooks.TaskDone(ctx, batch.Outcome{Result: react.Result{Status: react.StatusFinished}, Err: context.DeadlineExceeded})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchTasks.WithLabelValues("finished")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchTasks.WithLabelValues("exhausted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.batchTasks.WithLabelValues("error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Planner().RunCompleted(context.Background(), react.StatusFinished, 1, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `carie_runs_total{status="finished"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
