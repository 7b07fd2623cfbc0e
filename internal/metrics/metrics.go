// Package metrics holds the Prometheus instruments recorded by the pipeline
// and exposed by the HTTP server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "perepys"

// Stage labels.
const (
	StageHumanize = "humanize"
	StageCorrect  = "correct"
)

// Status labels.
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

var (
	stageBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}
	wordBuckets  = []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
)

// Metrics is a set of pipeline instruments bound to a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	processTotal   *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	unitsCorrected prometheus.Counter
	inputWords     prometheus.Histogram
}

// New registers the pipeline instruments on a fresh registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)

	m := &Metrics{
		registry: reg,
		processTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_total",
			Help:      "Processing calls by outcome.",
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   stageBuckets,
		}, []string{"stage"}),
		unitsCorrected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_corrected_total",
			Help:      "Sentence units passed through grammar correction.",
		}),
		inputWords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "input_words",
			Help:      "Word count of non-empty inputs.",
			Buckets:   wordBuckets,
		}),
	}

	reg.MustRegister(m.processTotal, m.stageDuration, m.unitsCorrected, m.inputWords)
	return m
}

// ObserveProcess counts one processing call with the given status.
func (m *Metrics) ObserveProcess(status string) {
	if m == nil {
		return
	}
	m.processTotal.WithLabelValues(status).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveUnits adds n corrected units.
func (m *Metrics) ObserveUnits(n int) {
	if m == nil {
		return
	}
	m.unitsCorrected.Add(float64(n))
}

// ObserveInputWords records the word count of an input.
func (m *Metrics) ObserveInputWords(n int) {
	if m == nil {
		return
	}
	m.inputWords.Observe(float64(n))
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
