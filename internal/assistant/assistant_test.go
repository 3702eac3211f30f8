package assistant

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mohammad-safakhou/carie/config"
	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/mohammad-safakhou/carie/internal/plants"
	"github.com/mohammad-safakhou/carie/tools/web_search"
	"github.com/mohammad-safakhou/carie/tools/web_search/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct{}

func (stubSearcher) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	return []models.Result{{Title: "Ferns", Snippet: "Ferns like humidity"}}, nil
}

var _ web_search.WebSearcher = stubSearcher{}

func testConfig() *config.Config {
	return &config.Config{
		General: config.GeneralConfig{LogLevel: "info", LogFormat: "text"},
		Planner: config.PlannerConfig{MaxHops: 4, InvocationErrorPolicy: "continue", TaskTimeout: time.Minute},
		Plants:  config.PlantsConfig{Source: "file", File: "../../storage/plants.json"},
		Search:  config.SearchConfig{Provider: "brave", MaxResults: 3},
		Trace:   config.TraceConfig{Stream: "carie:traces", MaxLen: 100},
		Batch:   config.BatchConfig{Concurrency: 2},
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func humidityScript() *react.ScriptedPredictor {
	return react.NewScriptedPredictor(
		map[string]string{"Thought_1": "I should read Fern's air humidity", "Action_1": "read_plant_sensor[Fern, air_humidity]"},
		map[string]string{"Thought_2": "42 is within range", "Action_2": "Finish[Fern's air humidity is fine]"},
	)
}

func TestAskRunsThroughPlantCapabilities(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.Enabled = true
	cfg.Trace.Enabled = true

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a, err := Build(context.Background(), cfg, quietLogger(), WithPredictor(humidityScript()), WithRedis(client))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	res, err := a.Ask(context.Background(), "Is Fern's air humidity ok?")
	require.NoError(t, err)
	assert.Equal(t, react.StatusFinished, res.Status)
	assert.Equal(t, "Fern's air humidity is fine", res.Value)
	obs, ok := res.State.Observation(1)
	require.True(t, ok)
	assert.Equal(t, "Fern's air humidity currently is 42. Ideally it should be between 30 and 60", obs)

	require.NotNil(t, a.Metrics)
	n, err := testutil.GatherAndCount(a.Metrics.Registry(), "carie_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NotNil(t, a.Traces)
	traces, err := a.Traces.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, res.RunID, traces[0].RunID)
	assert.Equal(t, a.Plan.Fingerprint(), traces[0].Fingerprint)
}

func TestBuildWithoutTraceOrTelemetry(t *testing.T) {
	a, err := Build(context.Background(), testConfig(), quietLogger(), WithPredictor(humidityScript()))
	require.NoError(t, err)
	assert.Nil(t, a.Metrics)
	assert.Nil(t, a.Traces)
	assert.Equal(t, 4, a.Plan.MaxHops())
	assert.Equal(t, []string{"examine_plant", "read_plant_sensor", "list_plants", "Finish"}, a.Plan.Registry().Names())
	assert.NoError(t, a.Close())
}

func TestBuildRegistersWebSearch(t *testing.T) {
	a, err := Build(context.Background(), testConfig(), quietLogger(),
		WithPredictor(humidityScript()), WithSearcher(stubSearcher{}),
		WithPlantSource(plants.SourceFunc(func(context.Context) ([]plants.Plant, error) { return nil, nil })))
	require.NoError(t, err)
	assert.Contains(t, a.Plan.Registry().Names(), "web_search")
	assert.Contains(t, a.Plan.Instructions(), "web_search[query]")
}

func TestBuildRejectsBadSettings(t *testing.T) {
	cfg := testConfig()
	cfg.Planner.InvocationErrorPolicy = "retry"
	_, err := Build(context.Background(), cfg, quietLogger(), WithPredictor(humidityScript()))
	assert.Error(t, err)

	cfg = testConfig()
	cfg.LLM.DemosFile = "does-not-exist.yaml"
	_, err = Build(context.Background(), cfg, quietLogger())
	assert.Error(t, err)

	_, err = Build(context.Background(), nil, quietLogger())
	assert.Error(t, err)
}

func TestAskHonoursTaskTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Planner.TaskTimeout = 50 * time.Millisecond
	slow := react.PredictorFunc(func(ctx context.Context, _ *react.Schema, _ *react.Fields) (map[string]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	a, err := Build(context.Background(), cfg, quietLogger(), WithPredictor(slow))
	require.NoError(t, err)

	_, err = a.Ask(context.Background(), "Is Fern ok?")
	var perr *react.PredictorError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
