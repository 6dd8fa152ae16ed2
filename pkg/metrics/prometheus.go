package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"CycleScope/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	indicatorLatency *prometheus.HistogramVec
	indicatorErrors  *prometheus.CounterVec
	signal           *prometheus.GaugeVec
	currentValue     *prometheus.GaugeVec
	fetchLatency     *prometheus.HistogramVec
	fetchErrors      *prometheus.CounterVec
	cacheRequests    *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		indicatorLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cyclescope_indicator_duration_seconds",
				Help:    "Indicator computation time including its backtest",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"indicator"},
		),
		indicatorErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cyclescope_indicator_errors_total",
				Help: "Indicator computations that failed or fell back to an empty result",
			},
			[]string{"indicator"},
		),
		signal: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cyclescope_indicator_signal",
				Help: "Latest signal per indicator (1 buy, 0 neutral, -1 sell)",
			},
			[]string{"indicator"},
		),
		currentValue: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cyclescope_indicator_value",
				Help: "Latest current value per indicator",
			},
			[]string{"indicator"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cyclescope_fetch_duration_seconds",
				Help:    "Upstream fetch time including retries",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"source"},
		),
		fetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cyclescope_fetch_errors_total",
				Help: "Upstream fetches that failed after retries",
			},
			[]string{"source"},
		),
		cacheRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cyclescope_cache_requests_total",
				Help: "Cache lookups by tag and result",
			},
			[]string{"tag", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cyclescope_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordIndicator(id string, seconds float64, err error) {
	r.indicatorLatency.WithLabelValues(id).Observe(seconds)
	if err != nil {
		r.indicatorErrors.WithLabelValues(id).Inc()
	}
}

func (r *Recorder) RecordSignal(id string, signal models.Signal, value float64) {
	r.signal.WithLabelValues(id).Set(float64(signal.Vote()))
	r.currentValue.WithLabelValues(id).Set(value)
}

func (r *Recorder) RecordFetch(source string, seconds float64, err error) {
	r.fetchLatency.WithLabelValues(source).Observe(seconds)
	if err != nil {
		r.fetchErrors.WithLabelValues(source).Inc()
	}
}

func (r *Recorder) RecordCache(tag string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheRequests.WithLabelValues(tag, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
