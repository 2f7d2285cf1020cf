package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion metrics
	IngestArticles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_ingest_articles_total",
			Help: "Candidate articles seen by the ingestion pipeline",
		},
		[]string{"outcome"}, // outcome: created|duplicate|empty
	)

	IngestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_ingest_errors_total",
			Help: "Ingestion failures absorbed at the symbol boundary",
		},
		[]string{"stage"}, // stage: fetch|persist
	)

	// Sweep metrics
	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_sweep_runs_total",
			Help: "Total number of sweep executions",
		},
		[]string{"sweep", "status"}, // sweep: analysis|retention, status: success|error
	)

	SweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentiment_sweep_duration_seconds",
			Help:    "Sweep execution duration in seconds",
			Buckets: []float64{0.1, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"sweep"},
	)

	SweepLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentiment_sweep_last_run_timestamp",
			Help: "Unix timestamp of the last sweep execution",
		},
		[]string{"sweep"},
	)

	RecordsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_records_purged_total",
			Help: "Sentiment records deleted by the retention sweep",
		},
	)

	// Push metrics
	PushClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentiment_push_clients",
			Help: "Currently connected websocket subscribers",
		},
	)

	Broadcasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_broadcasts_total",
			Help: "Sentiment update broadcasts by sink",
		},
		[]string{"sink", "status"},
	)
)

var registerOnce sync.Once

// Init registers all metrics with Prometheus
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(IngestArticles)
		prometheus.MustRegister(IngestErrors)

		prometheus.MustRegister(SweepRuns)
		prometheus.MustRegister(SweepDuration)
		prometheus.MustRegister(SweepLastRun)
		prometheus.MustRegister(RecordsPurged)

		prometheus.MustRegister(PushClients)
		prometheus.MustRegister(Broadcasts)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSweep records a sweep execution
func RecordSweep(sweep string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	SweepRuns.WithLabelValues(sweep, status).Inc()
	SweepDuration.WithLabelValues(sweep).Observe(duration.Seconds())
	SweepLastRun.WithLabelValues(sweep).SetToCurrentTime()
}

// RecordBroadcast records one delivery attempt to a broadcast sink
func RecordBroadcast(sink string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	Broadcasts.WithLabelValues(sink, status).Inc()
}
