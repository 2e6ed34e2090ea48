// Package metrics defines the Prometheus collectors shared by the front door
// and the processor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paperdigest"

// Job outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Poll results.
const (
	PollFound   = "found"
	PollPending = "pending"
	PollError   = "error"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	JobsTotal       *prometheus.CounterVec   // outcome
	StageDuration   *prometheus.HistogramVec // stage
	DispatchesTotal *prometheus.CounterVec   // outcome
	PollsTotal      *prometheus.CounterVec   // result
	QueueDepth      prometheus.Gauge
	SummaryChars    prometheus.Histogram
}

// New registers the collectors plus Go runtime and process metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Summarization jobs processed, by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each processing stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Jobs handed to the processor by the front door, by outcome.",
		}, []string{"outcome"}),
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Result polls, by result.",
		}, []string{"result"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Jobs waiting in the in-process queue.",
		}),
		SummaryChars: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_chars",
			Help:      "Length of generated Markdown summaries.",
			Buckets:   prometheus.ExponentialBuckets(500, 2, 8),
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.JobsTotal,
		m.StageDuration,
		m.DispatchesTotal,
		m.PollsTotal,
		m.QueueDepth,
		m.SummaryChars,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
