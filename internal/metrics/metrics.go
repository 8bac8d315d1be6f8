package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// File outcome labels.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Metrics groups the process counters on a private registry so binaries and
// tests do not share global state.
type Metrics struct {
	Registry *prometheus.Registry

	FilesProcessed     *prometheus.CounterVec
	Placemarks         *prometheus.CounterVec
	ConversionFailures *prometheus.CounterVec
	FeaturesWritten    prometheus.Counter
	DocumentDurationMs prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kadastr_files_processed_total",
			Help: "Total number of KML documents processed by status",
		}, []string{"status"}),
		Placemarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kadastr_placemarks_total",
			Help: "Total placemarks extracted by declared geometry kind",
		}, []string{"kind"}),
		ConversionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kadastr_conversion_failures_total",
			Help: "Total placemarks whose geometry could not be converted",
		}, []string{"reason"}),
		FeaturesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kadastr_features_written_total",
			Help: "Total GeoJSON features written",
		}),
		DocumentDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kadastr_document_duration_ms",
			Help:    "Document processing duration in milliseconds",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
		}),
	}

	m.Registry.MustRegister(
		m.FilesProcessed,
		m.Placemarks,
		m.ConversionFailures,
		m.FeaturesWritten,
		m.DocumentDurationMs,
	)
	return m
}

// Handler exposes the registry for Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry in text exposition format, suitable for
// the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
