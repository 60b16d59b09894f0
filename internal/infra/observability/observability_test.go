package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	assert.True(t, observability.NewLogger("error").Core().Enabled(zapcore.ErrorLevel))
	assert.False(t, observability.NewLogger("error").Core().Enabled(zapcore.WarnLevel))
	assert.True(t, observability.NewLogger("debug").Core().Enabled(zapcore.DebugLevel))
	assert.True(t, observability.NewLogger("bogus").Core().Enabled(zapcore.InfoLevel))
	assert.False(t, observability.NewLogger("bogus").Core().Enabled(zapcore.DebugLevel))
}

func TestTracingMiddleware_EchoesTraceID(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	h := observability.TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec.Header().Get("X-Trace-Id"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("X-Trace-Id"))
}

func TestMetrics_FraudSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	snap := m.GetFraudSnapshot()
	assert.Zero(t, snap.FraudChecks)
	assert.Zero(t, snap.FlagRate)

	m.RecordFraudCheck(domain.FraudCheckResult{IsFraudulent: true, RiskScore: 90})
	m.RecordFraudCheck(domain.FraudCheckResult{RiskScore: 10})
	m.RecordFraudCheck(domain.FraudCheckResult{RiskScore: 0})
	m.RecordFraudCheck(domain.FraudCheckResult{RiskScore: 20})
	m.IncrAnalysisReport(domain.AnalysisSourceLLM)
	m.IncrAnalysisReport(domain.AnalysisSourceRuleBased)
	m.IncrCacheHit("analysis")
	m.IncrCacheMiss("analysis")
	m.IncrCacheMiss("analysis")
	m.IncrCacheMiss("analysis")
	m.IncrExternalError("llm")
	m.SetDatasetPatterns(7)

	snap = m.GetFraudSnapshot()
	assert.EqualValues(t, 4, snap.FraudChecks)
	assert.EqualValues(t, 1, snap.FlaggedChecks)
	assert.InDelta(t, 0.25, snap.FlagRate, 1e-9)
	assert.EqualValues(t, 2, snap.AnalysisReports)
	assert.EqualValues(t, 1, snap.LLMReports)
	assert.InDelta(t, 0.5, snap.FallbackRate, 1e-9)
	assert.InDelta(t, 0.25, snap.CacheHitRate, 1e-9)
	assert.EqualValues(t, 7, snap.DatasetPatterns)
	assert.EqualValues(t, 1, snap.ExternalLLMErrors)
}
