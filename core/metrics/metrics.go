// Package metrics exposes Prometheus counters for the conversion pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaurav-prasanna/structmark/core"
)

var (
	documentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "structmark_documents_total",
			Help: "Count of documents normalized, by source format and outcome",
		},
		[]string{"format", "status"},
	)

	spansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "structmark_spans_total",
			Help: "Count of entity spans seen by fusion, by outcome",
		},
		[]string{"outcome"},
	)

	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "structmark_records_total",
			Help: "Count of structural records parsed, by type",
		},
		[]string{"type"},
	)

	labelerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "structmark_labeler_requests_total",
			Help: "Count of labeler calls, by outcome",
		},
		[]string{"status"},
	)

	stageSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "structmark_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)

// Registry holds the pipeline collectors plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(documentsTotal)
	Registry.MustRegister(spansTotal)
	Registry.MustRegister(recordsTotal)
	Registry.MustRegister(labelerRequestsTotal)
	Registry.MustRegister(stageSeconds)
	Registry.MustRegister(collectors.NewGoCollector())
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Document counts one normalization outcome.
func Document(format, status string) {
	documentsTotal.WithLabelValues(format, status).Inc()
}

// Spans counts fusion outcomes.
func Spans(applied, passThrough, dropped int) {
	spansTotal.WithLabelValues("applied").Add(float64(applied))
	spansTotal.WithLabelValues("pass_through").Add(float64(passThrough))
	spansTotal.WithLabelValues("dropped").Add(float64(dropped))
}

// Records counts parsed records by type.
func Records(records []core.Record) {
	for _, r := range records {
		recordsTotal.WithLabelValues(r.TypeName()).Inc()
	}
}

// LabelerRequest counts one labeler call.
func LabelerRequest(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	labelerRequestsTotal.WithLabelValues(status).Inc()
}

// Stage records the time since start for a pipeline stage.
func Stage(stage string, start time.Time) {
	stageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
