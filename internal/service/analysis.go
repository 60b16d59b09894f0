package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/boddenberg/fintrack-go/internal/analysis"
	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var analysisTracer = otel.Tracer("service/analysis")

const analysisCacheName = "analysis"

// reportBucket bounds how long a cached report can lag behind the trailing
// velocity window.
const reportBucket = 5 * time.Minute

// AnalysisService serves the fraud analysis report, caching it per user,
// transaction set, dataset snapshot and time bucket.
type AnalysisService struct {
	store        port.TransactionStore
	orchestrator *analysis.Orchestrator
	patterns     analysis.PatternSource
	cache        port.Cache[*domain.FraudAnalysisResult]
	defaultKey   string
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewAnalysisService creates a new analysis service. patterns is the
// snapshot the orchestrator reads; patterns and cache may be nil.
func NewAnalysisService(
	store port.TransactionStore,
	orchestrator *analysis.Orchestrator,
	patterns analysis.PatternSource,
	cache port.Cache[*domain.FraudAnalysisResult],
	defaultKey string,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *AnalysisService {
	st := applyOptions(opts)
	return &AnalysisService{
		store:        store,
		orchestrator: orchestrator,
		patterns:     patterns,
		cache:        cache,
		defaultKey:   defaultKey,
		metrics:      metrics,
		logger:       logger,
		now:          st.now,
	}
}

// Report returns the fraud analysis of the user's transactions. apiKey
// overrides the configured model key when non-empty.
func (s *AnalysisService) Report(ctx context.Context, userID, apiKey string) (*domain.FraudAnalysisResult, error) {
	ctx, span := analysisTracer.Start(ctx, "AnalysisService.Report")
	defer span.End()

	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	if apiKey == "" {
		apiKey = s.defaultKey
	}
	mode := domain.AnalysisSourceRuleBased
	if apiKey != "" {
		mode = domain.AnalysisSourceLLM
	}
	key := fmt.Sprintf("%s:%s:%s:%d:%s",
		userID, mode, s.datasetVersion(), s.now().Truncate(reportBucket).Unix(), Fingerprint(txs))

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok && cached != nil {
			s.metrics.IncrCacheHit(analysisCacheName)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
		s.metrics.IncrCacheMiss(analysisCacheName)
	}

	res := s.orchestrator.Analyze(ctx, txs, apiKey)

	// A fallback produced while a key was available is not cached so the
	// next request retries the model.
	if s.cache != nil && res.Source == mode {
		s.cache.Set(key, res)
	}

	s.logger.Debug("fraud analysis generated",
		zap.String("user_id", userID),
		zap.String("source", res.Source),
		zap.Int("overall_risk_score", res.OverallRiskScore),
	)
	return res, nil
}

// datasetVersion identifies the loaded snapshot, "none" before warmup.
func (s *AnalysisService) datasetVersion() string {
	if s.patterns == nil {
		return "none"
	}
	p := s.patterns.Load()
	if p == nil {
		return "none"
	}
	return strconv.FormatInt(p.LastUpdated.UnixNano(), 10)
}

// Fingerprint identifies a transaction set by the fields that affect the
// report. Order does not matter.
func Fingerprint(txs []domain.Transaction) string {
	lines := make([]string, 0, len(txs))
	for _, tx := range txs {
		lines = append(lines, tx.ID+"|"+tx.Amount.String()+"|"+string(tx.Type)+"|"+
			tx.Category+"|"+tx.Merchant+"|"+strconv.FormatBool(tx.IsFraudulent)+"|"+
			strconv.FormatInt(tx.Date.Unix(), 10))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
