package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/plume-triage/internal/dispersion"
)

const namespace = "plume_triage"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// assessment pipeline and its collaborators.
type Metrics struct {
	RequestsConsumed    prometheus.Counter
	AssessmentsProduced prometheus.Counter
	AssessmentErrors    prometheus.Counter
	PipelineRunning     prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Per-request assessment metrics.
	AssessmentDuration prometheus.Histogram
	AssessmentIssues   prometheus.Counter
	NoCandidate        prometheus.Counter

	// Model output metrics.
	FieldPoints      prometheus.Histogram
	Polygons         prometheus.Histogram
	TriageCandidates prometheus.Histogram

	// Weather lookup metrics.
	WeatherRequests    *prometheus.CounterVec // labels: outcome={success,error,rejected}
	WeatherAPIDuration prometheus.Histogram
	WeatherEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_consumed_total",
			Help:      "Total assessment requests read from the source topic.",
		}),
		AssessmentsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_produced_total",
			Help:      "Total assessments written to the sink topic.",
		}),
		AssessmentErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessment_errors_total",
			Help:      "Total requests that could not be assessed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-assess-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AssessmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_duration_seconds",
			Help:      "Time to triage one request and model its plume.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		AssessmentIssues: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessment_issues_total",
			Help:      "Plume parameter issues reported on produced assessments.",
		}),
		NoCandidate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_without_candidate_total",
			Help:      "Assessments where no pathogen was viable with a positive score.",
		}),
		FieldPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "field_points",
			Help:      "Non-zero concentration samples per generated field.",
			Buckets:   prometheus.ExponentialBuckets(16, 2, 10),
		}),
		Polygons: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "polygons_per_assessment",
			Help:      "Contour polygons extracted per assessment.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		TriageCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "triage_candidates",
			Help:      "Pathogens scored per triage run.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "Weather API requests by outcome.",
		}, []string{"outcome"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "Open-Meteo request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		WeatherEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "weather_enabled",
			Help:      "1 when live weather lookup is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RequestsConsumed,
		m.AssessmentsProduced,
		m.AssessmentErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.AssessmentDuration,
		m.AssessmentIssues,
		m.NoCandidate,
		m.FieldPoints,
		m.Polygons,
		m.TriageCandidates,
		m.WeatherRequests,
		m.WeatherAPIDuration,
		m.WeatherEnabled,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// CacheCollectors exposes the coefficient cache's hit/miss counters and
// current size as scrape-time metrics.
func CacheCollectors(cache *dispersion.CoefficientCache) []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coefficient_cache_hits_total",
			Help:      "Dispersion coefficient cache hits.",
		}, func() float64 {
			hits, _ := cache.Stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coefficient_cache_misses_total",
			Help:      "Dispersion coefficient cache misses.",
		}, func() float64 {
			_, misses := cache.Stats()
			return float64(misses)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coefficient_cache_entries",
			Help:      "Entries currently held in the dispersion coefficient cache.",
		}, func() float64 {
			return float64(cache.Len())
		}),
	}
}

// RegisterCache registers CacheCollectors with the default registry.
func RegisterCache(cache *dispersion.CoefficientCache) {
	prometheus.MustRegister(CacheCollectors(cache)...)
}
