package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/boddenberg/fintrack-go/internal/dataset"
	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var datasetTracer = otel.Tracer("service/dataset")

// DatasetService exposes the mined reference dataset.
type DatasetService struct {
	cache   *dataset.Cache
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewDatasetService creates a new dataset service.
func NewDatasetService(cache *dataset.Cache, metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *DatasetService {
	s := applyOptions(opts)
	return &DatasetService{cache: cache, metrics: metrics, logger: logger, now: s.now}
}

// Warmup mines the dataset in dir and publishes it. A missing dataset is not
// an error.
func (s *DatasetService) Warmup(ctx context.Context, dir string) error {
	ctx, span := datasetTracer.Start(ctx, "DatasetService.Warmup")
	defer span.End()

	p, err := dataset.Initialize(ctx, dir, s.now(), s.logger)
	if err != nil {
		return fmt.Errorf("initialize dataset: %w", err)
	}
	if p == nil {
		return nil
	}
	if s.cache.Set(p) {
		s.metrics.SetDatasetPatterns(len(p.Patterns))
	}
	return nil
}

// Patterns returns the loaded snapshot.
func (s *DatasetService) Patterns(ctx context.Context) (*domain.DatasetPatterns, error) {
	_, span := datasetTracer.Start(ctx, "DatasetService.Patterns")
	defer span.End()

	p := s.cache.Load()
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "dataset patterns", ID: "reference"}
	}
	return p, nil
}

// Insights mines an uploaded dataset without touching the shared snapshot.
func (s *DatasetService) Insights(ctx context.Context, r io.Reader) (*domain.DatasetInsights, error) {
	_, span := datasetTracer.Start(ctx, "DatasetService.Insights")
	defer span.End()

	start := time.Now()
	ins, err := dataset.FullDatasetInsights(r)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "dataset", Message: err.Error()}
	}
	s.metrics.RecordRequestDuration("dataset_insights", time.Since(start))
	s.logger.Info("dataset insights computed",
		zap.Int("records", ins.TotalTransactions),
		zap.Int("top_patterns", len(ins.TopPatterns)),
	)
	return ins, nil
}
