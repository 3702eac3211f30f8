// Package telemetry exposes planner activity as Prometheus metrics.
package telemetry

import (
	"context"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/mohammad-safakhou/carie/internal/batch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carie"

// Metrics owns the collectors and the registry they are registered with.
type Metrics struct {
	registry *prometheus.Registry

	predictDuration  *prometheus.HistogramVec
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	runsTotal        *prometheus.CounterVec
	runHops          prometheus.Histogram
	runDuration      *prometheus.HistogramVec
	batchTasks       *prometheus.CounterVec
}

// New registers the planner collectors plus the Go and process collectors on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "predict_duration_seconds",
			Help:      "Latency of predictor calls per hop.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"outcome"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Actions dispatched, by capability and failure kind.",
		}, []string{"capability", "failure"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_duration_seconds",
			Help:      "Latency of capability invocations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"capability"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed planner runs by terminal status.",
		}, []string{"status"}),
		runHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_hops",
			Help:      "Hops reached per completed run.",
			Buckets:   prometheus.LinearBuckets(1, 1, 12),
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of completed runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"status"}),
		batchTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_tasks_total",
			Help:      "Batch tasks completed, by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.predictDuration, m.dispatchTotal, m.dispatchDuration,
		m.runsTotal, m.runHops, m.runDuration, m.batchTasks,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Planner returns planner hooks that feed the collectors.
func (m *Metrics) Planner() react.Metrics {
	return react.Metrics{
		Predict: func(_ context.Context, _ int, d time.Duration, err error) {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			m.predictDuration.WithLabelValues(outcome).Observe(d.Seconds())
		},
		Dispatch: func(_ context.Context, capability string, failure react.Failure, d time.Duration) {
			switch {
			case capability == "":
				capability = "unparsed"
			case failure == react.FailureUnknownCapability || !utf8.ValidString(capability):
				capability = react.UnknownCapabilityName
			}
			kind := string(failure)
			if failure == react.FailureNone {
				kind = "none"
			}
			m.dispatchTotal.WithLabelValues(capability, kind).Inc()
			if failure == react.FailureNone || failure == react.FailureInvocation {
				m.dispatchDuration.WithLabelValues(capability).Observe(d.Seconds())
			}
		},
		RunCompleted: func(_ context.Context, status react.Status, hops int, d time.Duration) {
			m.runsTotal.WithLabelValues(string(status)).Inc()
			m.runHops.Observe(float64(hops))
			m.runDuration.WithLabelValues(string(status)).Observe(d.Seconds())
		},
	}
}

// Batch returns batch runner hooks. Outcomes are error, finished or exhausted.
func (m *Metrics) Batch() batch.Metrics {
	return batch.Metrics{
		TaskDone: func(_ context.Context, o batch.Outcome) {
			outcome := string(o.Result.Status)
			if o.Err != nil || outcome == "" {
				outcome = "error"
			}
			m.batchTasks.WithLabelValues(outcome).Inc()
		},
	}
}
