// Package metrics exports workflow and analysis metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/htp-rag/internal/core/services"
)

// Ensure Metrics implements the collaborator interfaces.
var (
	_ services.WorkflowObserver = (*Metrics)(nil)
	_ services.AnalysisRecorder = (*Metrics)(nil)
)

// Namespace prefixes every metric name.
const Namespace = "htp"

// Metrics holds the collectors. It observes workflow events and records
// analysis outcomes.
type Metrics struct {
	nodeExecutions   *prometheus.CounterVec
	nodeDuration     *prometheus.HistogramVec
	runs             *prometheus.CounterVec
	runSteps         prometheus.Histogram
	analyses         *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		nodeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "node_executions_total",
				Help:      "Workflow node executions by node and result",
			},
			[]string{"node", "result"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "node_duration_seconds",
				Help:      "Workflow node execution time",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"node"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "workflow_runs_total",
				Help:      "Workflow runs by result",
			},
			[]string{"result"},
		),
		runSteps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "workflow_run_steps",
				Help:      "Node executions per completed workflow run",
				Buckets:   prometheus.LinearBuckets(1, 2, 8),
			},
		),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "analyses_total",
				Help:      "Analysis requests by drawing subject and outcome",
			},
			[]string{"subject", "outcome"},
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "analysis_duration_seconds",
				Help:      "End-to-end analysis time by outcome",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.nodeExecutions, m.nodeDuration, m.runs, m.runSteps, m.analyses, m.analysisDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OnEvent updates the workflow collectors.
func (m *Metrics) OnEvent(e services.WorkflowEvent) {
	switch e.Type {
	case services.EventNodeExit:
		result := "ok"
		if e.Error != nil {
			result = "error"
		}
		m.nodeExecutions.WithLabelValues(e.Node, result).Inc()
		m.nodeDuration.WithLabelValues(e.Node).Observe(e.Elapsed.Seconds())
	case services.EventRunComplete:
		m.runs.WithLabelValues("complete").Inc()
		m.runSteps.Observe(float64(e.Step))
	case services.EventRunError:
		m.runs.WithLabelValues("error").Inc()
	}
}

// RecordAnalysis counts one analysis outcome.
func (m *Metrics) RecordAnalysis(subject, outcome string, elapsed time.Duration) {
	if subject == "" {
		subject = "unknown"
	}
	m.analyses.WithLabelValues(subject, outcome).Inc()
	m.analysisDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
