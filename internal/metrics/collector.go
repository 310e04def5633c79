// Package metrics provides internal Prometheus metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records run- and turn-level metrics for the chat engine.
type Collector struct {
	runsTotal    *prometheus.CounterVec
	runRounds    prometheus.Histogram
	runDuration  prometheus.Histogram
	turnsTotal   *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a collector registered on reg. A nil reg falls back
// to the default Prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	return &Collector{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of chat runs by final status",
			},
			[]string{"status"},
		),
		runRounds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_rounds",
				Help:      "Number of rounds recorded per run",
				Buckets:   prometheus.LinearBuckets(1, 2, 10),
			},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of a run",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Total number of turns attempted by agent and outcome",
			},
			[]string{"agent", "outcome"},
		),
		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Duration of a single turn",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

// RecordRun records a finished run.
func (c *Collector) RecordRun(status string, rounds int, duration time.Duration) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(status).Inc()
	c.runRounds.Observe(float64(rounds))
	c.runDuration.Observe(duration.Seconds())
}

// RecordTurn records one attempted turn. Outcome is one of
// "message", "terminate", "failure".
func (c *Collector) RecordTurn(agent, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.turnsTotal.WithLabelValues(agent, outcome).Inc()
	c.turnDuration.WithLabelValues(agent).Observe(duration.Seconds())
}
