// Package analysis produces the user-facing fraud report, delegating to a
// generative model when a key is available and falling back to deterministic
// rules otherwise.
package analysis

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("analysis")

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 20 * time.Second

// PatternSource yields the dataset snapshot, or nil when none is loaded.
type PatternSource interface {
	Load() *domain.DatasetPatterns
}

// Orchestrator builds fraud analysis reports.
type Orchestrator struct {
	llm      port.LLMGenerator
	patterns PatternSource
	metrics  *observability.Metrics
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout sets the model call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator. llm and patterns may be nil.
func New(llm port.LLMGenerator, patterns PatternSource, metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		llm:      llm,
		patterns: patterns,
		metrics:  metrics,
		logger:   logger,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze returns a report over txs. It never fails: without a key, or when
// the model call or its parsing fails, the rule-based report is returned.
func (o *Orchestrator) Analyze(ctx context.Context, txs []domain.Transaction, apiKey string) *domain.FraudAnalysisResult {
	ctx, span := tracer.Start(ctx, "Orchestrator.Analyze")
	defer span.End()
	span.SetAttributes(attribute.Int("transactions.count", len(txs)))

	start := o.now()
	dc := SummarizeDebitCredit(txs)

	var ds *domain.DatasetPatterns
	if o.patterns != nil {
		ds = o.patterns.Load()
	}

	if apiKey != "" && o.llm != nil {
		res, err := o.analyzeWithModel(ctx, txs, dc, apiKey, start)
		if err == nil {
			o.metrics.IncrAnalysisReport(domain.AnalysisSourceLLM)
			o.metrics.RecordRequestDuration("analysis_llm", o.now().Sub(start))
			span.SetAttributes(attribute.String("analysis.source", domain.AnalysisSourceLLM))
			return res
		}
		o.metrics.IncrExternalError("llm")
		o.logger.Warn("model analysis failed, using rule-based report",
			zap.Int("transactions", len(txs)),
			zap.Error(err),
		)
	}

	res := RuleBased(txs, dc, ds, start)
	o.metrics.IncrAnalysisReport(domain.AnalysisSourceRuleBased)
	span.SetAttributes(attribute.String("analysis.source", domain.AnalysisSourceRuleBased))
	return res
}

func (o *Orchestrator) analyzeWithModel(ctx context.Context, txs []domain.Transaction, dc domain.DebitCreditAnalysis, apiKey string, now time.Time) (*domain.FraudAnalysisResult, error) {
	prompt, err := BuildPrompt(txs, dc)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	text, err := o.llm.Generate(ctx, apiKey, domain.LLMPrompt{Text: prompt})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &domain.ErrTimeout{Operation: "llm fraud analysis"}
		}
		return nil, err
	}

	rep, err := parseReport(text)
	if err != nil {
		return nil, err
	}
	return toResult(rep, txs, dc, now), nil
}

// toResult fills defaults for every field the model left out.
func toResult(rep *llmReport, txs []domain.Transaction, dc domain.DebitCreditAnalysis, now time.Time) *domain.FraudAnalysisResult {
	patterns := make([]domain.FraudPattern, 0, len(rep.FraudPatterns))
	for _, p := range rep.FraudPatterns {
		fp := domain.FraudPattern{
			Name:      "Unnamed pattern",
			RiskLevel: domain.RiskMedium,
		}
		if p.Name != nil && strings.TrimSpace(*p.Name) != "" {
			fp.Name = strings.TrimSpace(*p.Name)
		}
		if p.Description != nil {
			fp.Description = *p.Description
		}
		if p.RiskLevel != nil {
			if level := strings.ToLower(strings.TrimSpace(*p.RiskLevel)); riskWeights[level] > 0 {
				fp.RiskLevel = level
			}
		}
		if p.AffectedTransactions != nil && *p.AffectedTransactions > 0 {
			fp.AffectedTransactions = int(*p.AffectedTransactions)
		}
		patterns = append(patterns, fp)
	}

	overall := OverallRiskScore(patterns, txs, dc)
	if rep.OverallRiskScore != nil {
		overall = int(math.Max(0, math.Min(100, math.Round(*rep.OverallRiskScore))))
	}

	res := &domain.FraudAnalysisResult{
		Summary:             summarize(txs, dc, patterns),
		FraudPatterns:       patterns,
		DebitCreditAnalysis: dc,
		RiskAssessment:      assess(overall),
		Recommendations:     rep.Recommendations,
		OverallRiskScore:    overall,
		Source:              domain.AnalysisSourceLLM,
		GeneratedAt:         now,
	}
	if rep.Summary != nil && strings.TrimSpace(*rep.Summary) != "" {
		res.Summary = *rep.Summary
	}
	if rep.RiskAssessment != nil && strings.TrimSpace(*rep.RiskAssessment) != "" {
		res.RiskAssessment = *rep.RiskAssessment
	}
	if len(res.Recommendations) == 0 {
		res.Recommendations = append([]string(nil), baseRecommendations...)
	}
	return res
}
