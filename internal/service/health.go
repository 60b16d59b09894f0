package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/health"
	"github.com/boddenberg/fintrack-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var healthTracer = otel.Tracer("service/health")

// HealthStore is the subset of the store the health service needs.
type HealthStore interface {
	port.HealthStore
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
}

// HealthService keeps the per-user financial health record up to date.
type HealthService struct {
	store  HealthStore
	logger *zap.Logger
	now    func() time.Time
}

// NewHealthService creates a new health service.
func NewHealthService(store HealthStore, logger *zap.Logger, opts ...Option) *HealthService {
	s := applyOptions(opts)
	return &HealthService{store: store, logger: logger, now: s.now}
}

// Get returns the stored record, computing it on first access.
func (s *HealthService) Get(ctx context.Context, userID string) (*domain.FinancialHealth, error) {
	ctx, span := healthTracer.Start(ctx, "HealthService.Get")
	defer span.End()

	h, err := s.store.GetHealth(ctx, userID)
	if err == nil {
		return h, nil
	}
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		return nil, fmt.Errorf("get health: %w", err)
	}
	return s.Recalculate(ctx, userID)
}

// Recalculate scores the user's full history against their declared income
// and stores the result.
func (s *HealthService) Recalculate(ctx context.Context, userID string) (*domain.FinancialHealth, error) {
	ctx, span := healthTracer.Start(ctx, "HealthService.Recalculate")
	defer span.End()

	var (
		user *domain.User
		txs  []domain.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.store.GetUserByID(gctx, userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		list, err := s.store.ListTransactions(gctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		txs = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.score(ctx, user, txs)
}

// score computes and upserts the record from already loaded data.
func (s *HealthService) score(ctx context.Context, user *domain.User, txs []domain.Transaction) (*domain.FinancialHealth, error) {
	now := s.now()
	h := &domain.FinancialHealth{
		UserID:           user.ID,
		HealthComponents: health.Calculate(txs, user.MonthlyIncome, now),
		LastCalculated:   now,
	}
	if err := s.store.UpsertHealth(ctx, h); err != nil {
		return nil, fmt.Errorf("upsert health: %w", err)
	}

	s.logger.Debug("financial health recalculated",
		zap.String("user_id", user.ID),
		zap.Int("score", h.Score),
		zap.Int("transactions", len(txs)),
	)
	return h, nil
}
