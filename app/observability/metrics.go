package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cap_comb"

// Metrics holds the Prometheus collectors for source polling and publishing.
type Metrics struct {
	Fetches         *prometheus.CounterVec   // labels: source, outcome={success,error}
	FetchDuration   *prometheus.HistogramVec // labels: source
	AlertsFetched   *prometheus.CounterVec   // labels: source
	AlertsFiltered  *prometheus.CounterVec   // labels: source
	AlertsPublished *prometheus.CounterVec   // labels: source
	PublishErrors   *prometheus.CounterVec   // labels: source
	TaskRetries     *prometheus.CounterVec   // labels: type
	QueueDepth      prometheus.Gauge
	SourcesLoaded   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with the default
// Prometheus registry. Call it once per process.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

// FetchOutcome returns the outcome label for a fetch error.
func FetchOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      help("Source polls by outcome."),
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      help("Duration of a complete feed and alerts fetch."),
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
		AlertsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fetched_total",
			Help:      help("Alerts downloaded and canonicalized."),
		}, []string{"source"}),
		AlertsFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_filtered_total",
			Help:      help("Alerts dropped by source filters."),
		}, []string{"source"}),
		AlertsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      help("Alerts handed to the publisher."),
		}, []string{"source"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      help("Failed publish batches."),
		}, []string{"source"}),
		TaskRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_retries_total",
			Help:      help("Task retries scheduled by type."),
		}, []string{"type"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_queue_depth",
			Help:      help("Tasks waiting in the scheduler queue."),
		}),
		SourcesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sources_loaded",
			Help:      help("Source configurations currently loaded."),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Fetches,
		m.FetchDuration,
		m.AlertsFetched,
		m.AlertsFiltered,
		m.AlertsPublished,
		m.PublishErrors,
		m.TaskRetries,
		m.QueueDepth,
		m.SourcesLoaded,
	}
}
