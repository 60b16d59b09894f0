package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/categorize"
	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/fraud"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var txTracer = otel.Tracer("service/transactions")

// manualFlagScore is reported on events raised by a manual re-flag.
const manualFlagScore = 100

// TransactionService ingests, edits and scores transactions.
type TransactionService struct {
	store       port.TransactionStore
	health      *HealthService
	categorizer *categorize.Categorizer
	engine      *fraud.Engine
	publisher   port.EventPublisher
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewTransactionService creates a new transaction service.
func NewTransactionService(
	store port.TransactionStore,
	health *HealthService,
	categorizer *categorize.Categorizer,
	engine *fraud.Engine,
	publisher port.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *TransactionService {
	s := applyOptions(opts)
	return &TransactionService{
		store:       store,
		health:      health,
		categorizer: categorizer,
		engine:      engine,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		now:         s.now,
	}
}

// ============================================================
// Create — POST /v1/transactions
// ============================================================

func (s *TransactionService) Create(ctx context.Context, userID string, req *domain.CreateTransactionRequest) (*domain.TransactionResult, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Create")
	defer span.End()

	history, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	tx, check, err := s.prepare(userID, req, history)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	span.SetAttributes(
		attribute.String("transaction.id", tx.ID),
		attribute.Int("fraud.risk_score", check.RiskScore),
	)

	s.refreshHealth(ctx, userID)
	if tx.IsFraudulent {
		s.publishFlagged(ctx, tx, check.RiskScore)
	}

	return &domain.TransactionResult{Transaction: tx, FraudCheck: &check}, nil
}

// ============================================================
// FraudCheck — POST /v1/fraud/check (dry run)
// ============================================================

func (s *TransactionService) FraudCheck(ctx context.Context, userID string, req *domain.FraudCheckRequest) (*domain.FraudCheckResult, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.FraudCheck")
	defer span.End()

	history, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	_, check, err := s.prepare(userID, req, history)
	if err != nil {
		return nil, err
	}
	return &check, nil
}

// prepare validates req, fills defaults and scores it against history.
func (s *TransactionService) prepare(userID string, req *domain.CreateTransactionRequest, history []domain.Transaction) (*domain.Transaction, domain.FraudCheckResult, error) {
	if req.Amount.IsNegative() {
		return nil, domain.FraudCheckResult{}, &domain.ErrValidation{Field: "amount", Message: "amount must not be negative"}
	}
	merchant := strings.TrimSpace(req.Merchant)
	if merchant == "" {
		return nil, domain.FraudCheckResult{}, &domain.ErrValidation{Field: "merchant", Message: "merchant is required"}
	}
	if !req.Type.Valid() {
		return nil, domain.FraudCheckResult{}, &domain.ErrValidation{Field: "type", Message: "type must be one of: income expense transfer"}
	}

	now := s.now()
	date := now
	if req.Date != nil {
		date = *req.Date
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = s.categorizer.Categorize(merchant, req.Amount)
	}

	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Date:        date,
		Amount:      req.Amount,
		Merchant:    merchant,
		Category:    category,
		Type:        req.Type,
		Description: req.Description,
		Location:    req.Location,
		AccountID:   req.AccountID,
		CreatedAt:   now,
	}

	check := s.score(*tx, history, now)
	tx.IsFraudulent = check.IsFraudulent
	if check.IsFraudulent {
		tx.FraudReason = check.Reason
	}
	return tx, check, nil
}

func (s *TransactionService) score(candidate domain.Transaction, history []domain.Transaction, now time.Time) domain.FraudCheckResult {
	check := s.engine.Check(candidate, history, now)
	s.metrics.RecordFraudCheck(check)
	if check.IsFraudulent {
		s.logger.Info("transaction flagged by fraud rules",
			zap.String("user_id", candidate.UserID),
			zap.String("merchant", candidate.Merchant),
			zap.Int("risk_score", check.RiskScore),
			zap.String("reason", check.Reason),
		)
	}
	return check
}

// ============================================================
// Update — PUT /v1/transactions/{id}
// ============================================================

func (s *TransactionService) Update(ctx context.Context, userID, id string, req *domain.UpdateTransactionRequest) (*domain.TransactionResult, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Update")
	defer span.End()

	history, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	var (
		tx     *domain.Transaction
		others = make([]domain.Transaction, 0, len(history))
	)
	for i := range history {
		if history[i].ID == id {
			cur := history[i]
			tx = &cur
			continue
		}
		others = append(others, history[i])
	}
	if tx == nil {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	wasFraudulent := tx.IsFraudulent

	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, &domain.ErrValidation{Field: "amount", Message: "amount must not be negative"}
		}
		tx.Amount = *req.Amount
	}
	if req.Date != nil {
		tx.Date = *req.Date
	}
	if req.Merchant != nil {
		m := strings.TrimSpace(*req.Merchant)
		if m == "" {
			return nil, &domain.ErrValidation{Field: "merchant", Message: "merchant must not be empty"}
		}
		tx.Merchant = m
	}
	if req.Category != nil {
		tx.Category = strings.TrimSpace(*req.Category)
	}
	if tx.Category == "" {
		tx.Category = s.categorizer.Categorize(tx.Merchant, tx.Amount)
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, &domain.ErrValidation{Field: "type", Message: "type must be one of: income expense transfer"}
		}
		tx.Type = *req.Type
	}
	if req.Description != nil {
		tx.Description = *req.Description
	}

	check := s.score(*tx, others, s.now())
	tx.IsFraudulent = check.IsFraudulent
	tx.FraudReason = ""
	if check.IsFraudulent {
		tx.FraudReason = check.Reason
	}

	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	s.refreshHealth(ctx, userID)
	if tx.IsFraudulent && !wasFraudulent {
		s.publishFlagged(ctx, tx, check.RiskScore)
	}

	return &domain.TransactionResult{Transaction: tx, FraudCheck: &check}, nil
}

// ============================================================
// Flag — POST /v1/transactions/{id}/flag
// ============================================================

func (s *TransactionService) Flag(ctx context.Context, userID, id string, req *domain.FlagRequest) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Flag")
	defer span.End()

	tx, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	wasFraudulent := tx.IsFraudulent

	tx.IsFraudulent = req.IsFraudulent
	tx.FraudReason = ""
	if req.IsFraudulent {
		tx.FraudReason = strings.TrimSpace(req.Reason)
		if tx.FraudReason == "" {
			tx.FraudReason = "Flagged manually"
		}
	}

	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	s.logger.Info("transaction re-flagged",
		zap.String("user_id", userID),
		zap.String("transaction_id", id),
		zap.Bool("is_fraudulent", tx.IsFraudulent),
	)
	if tx.IsFraudulent && !wasFraudulent {
		s.publishFlagged(ctx, tx, manualFlagScore)
	}
	return tx, nil
}

// ============================================================
// Reads
// ============================================================

func (s *TransactionService) List(ctx context.Context, userID string) ([]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.List")
	defer span.End()

	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Get")
	defer span.End()

	tx, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// Categorize exposes the categorizer for POST /v1/categorize.
func (s *TransactionService) Categorize(req *domain.CategorizeRequest) *domain.CategorizeResponse {
	return &domain.CategorizeResponse{Category: s.categorizer.Categorize(req.Merchant, req.Amount)}
}

// ============================================================
// Side effects
// ============================================================

// refreshHealth recomputes the health record. The transaction is already
// stored, so a failure here is logged and not returned.
func (s *TransactionService) refreshHealth(ctx context.Context, userID string) {
	if s.health == nil {
		return
	}
	if _, err := s.health.Recalculate(ctx, userID); err != nil {
		s.logger.Error("health recalculation failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func (s *TransactionService) publishFlagged(ctx context.Context, tx *domain.Transaction, score int) {
	if s.publisher == nil {
		return
	}
	event := domain.FlaggedEvent{
		EventID:       uuid.NewString(),
		Type:          domain.EventTransactionFlagged,
		UserID:        tx.UserID,
		TransactionID: tx.ID,
		Merchant:      tx.Merchant,
		Amount:        tx.Amount,
		RiskScore:     score,
		Reason:        tx.FraudReason,
		OccurredAt:    s.now(),
	}
	if err := s.publisher.PublishFlagged(ctx, event); err != nil {
		s.metrics.IncrExternalError("kafka")
		s.logger.Error("publish flagged event failed",
			zap.String("transaction_id", tx.ID),
			zap.Error(err),
		)
	}
}
