package observability

import (
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for fintrack.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	fraudChecks     *prometheus.CounterVec
	fraudScore      prometheus.Histogram
	analysisReports *prometheus.CounterVec
	datasetPatterns prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fintrack_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		fraudChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_fraud_checks_total",
				Help: "Fraud checks by verdict.",
			},
			[]string{"verdict"},
		),
		fraudScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fintrack_fraud_risk_score",
				Help:    "Distribution of fraud risk scores.",
				Buckets: []float64{0, 20, 40, 55, 70, 85, 90, 100},
			},
		),
		analysisReports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_analysis_reports_total",
				Help: "Fraud analysis reports by source.",
			},
			[]string{"source"},
		),
		datasetPatterns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fintrack_dataset_patterns",
				Help: "Number of patterns in the loaded reference dataset.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordFraudCheck counts a rule engine verdict and its score.
func (m *Metrics) RecordFraudCheck(res domain.FraudCheckResult) {
	verdict := "clean"
	if res.IsFraudulent {
		verdict = "flagged"
	}
	m.fraudChecks.WithLabelValues(verdict).Inc()
	m.fraudScore.Observe(float64(res.RiskScore))
}

// IncrAnalysisReport counts a generated fraud analysis report.
func (m *Metrics) IncrAnalysisReport(source string) {
	m.analysisReports.WithLabelValues(source).Inc()
}

// SetDatasetPatterns records how many patterns the dataset snapshot holds.
func (m *Metrics) SetDatasetPatterns(n int) {
	m.datasetPatterns.Set(float64(n))
}

// GetFraudSnapshot returns a snapshot of fraud-related metrics suitable for
// the GET /v1/metrics/fraud endpoint.
func (m *Metrics) GetFraudSnapshot() *domain.FraudMetrics {
	flagged := getCounterValue(m.fraudChecks, "flagged")
	checks := flagged + getCounterValue(m.fraudChecks, "clean")
	llm := getCounterValue(m.analysisReports, domain.AnalysisSourceLLM)
	fallback := getCounterValue(m.analysisReports, domain.AnalysisSourceRuleBased)
	reports := llm + fallback
	hits := getCounterValue(m.cacheHits, "analysis")
	misses := getCounterValue(m.cacheMisses, "analysis")

	snap := &domain.FraudMetrics{
		FraudChecks:       int64(checks),
		FlaggedChecks:     int64(flagged),
		AnalysisReports:   int64(reports),
		LLMReports:        int64(llm),
		DatasetPatterns:   int64(getGaugeValue(m.datasetPatterns)),
		ExternalLLMErrors: int64(getCounterValue(m.externalErrors, "llm")),
	}
	if checks > 0 {
		snap.FlagRate = flagged / checks
	}
	if reports > 0 {
		snap.FallbackRate = fallback / reports
	}
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil && m.Gauge.Value != nil {
		return *m.Gauge.Value
	}
	return 0
}
