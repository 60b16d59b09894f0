package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var planningTracer = otel.Tracer("service/planning")

// PlanningStore is the subset of the store used by budgets, goals and the
// dashboard.
type PlanningStore interface {
	port.BudgetStore
	port.GoalStore
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
}

// PlanningService manages budgets and savings goals.
type PlanningService struct {
	store  PlanningStore
	health *HealthService
	logger *zap.Logger
	now    func() time.Time
}

// NewPlanningService creates a new planning service.
func NewPlanningService(store PlanningStore, health *HealthService, logger *zap.Logger, opts ...Option) *PlanningService {
	s := applyOptions(opts)
	return &PlanningService{store: store, health: health, logger: logger, now: s.now}
}

// ============================================================
// Budgets
// ============================================================

func validateBudget(req *domain.BudgetRequest) error {
	if strings.TrimSpace(req.Category) == "" {
		return &domain.ErrValidation{Field: "category", Message: "category is required"}
	}
	if !req.Limit.IsPositive() {
		return &domain.ErrValidation{Field: "limit", Message: "limit must be greater than zero"}
	}
	switch req.Period {
	case domain.PeriodWeekly, domain.PeriodMonthly, domain.PeriodYearly:
	default:
		return &domain.ErrValidation{Field: "period", Message: "period must be one of: weekly monthly yearly"}
	}
	return nil
}

func (s *PlanningService) CreateBudget(ctx context.Context, userID string, req *domain.BudgetRequest) (*domain.Budget, error) {
	ctx, span := planningTracer.Start(ctx, "PlanningService.CreateBudget")
	defer span.End()

	if err := validateBudget(req); err != nil {
		return nil, err
	}
	b := &domain.Budget{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  strings.TrimSpace(req.Category),
		Limit:     req.Limit,
		Period:    req.Period,
		Status:    domain.StatusActive,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (s *PlanningService) UpdateBudget(ctx context.Context, userID, id string, req *domain.BudgetRequest) (*domain.Budget, error) {
	ctx, span := planningTracer.Start(ctx, "PlanningService.UpdateBudget")
	defer span.End()

	if err := validateBudget(req); err != nil {
		return nil, err
	}
	b, err := s.activeBudget(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	b.Category = strings.TrimSpace(req.Category)
	b.Limit = req.Limit
	b.Period = req.Period
	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	return b, nil
}

// DeleteBudget marks the budget deleted; the row is kept.
func (s *PlanningService) DeleteBudget(ctx context.Context, userID, id string) error {
	ctx, span := planningTracer.Start(ctx, "PlanningService.DeleteBudget")
	defer span.End()

	b, err := s.activeBudget(ctx, userID, id)
	if err != nil {
		return err
	}
	b.Status = domain.StatusDeleted
	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.logger.Info("budget deleted", zap.String("user_id", userID), zap.String("budget_id", id))
	return nil
}

// ListBudgets returns the active budgets with their current-period progress.
func (s *PlanningService) ListBudgets(ctx context.Context, userID string) ([]domain.BudgetProgress, error) {
	ctx, span := planningTracer.Start(ctx, "PlanningService.ListBudgets")
	defer span.End()

	var (
		budgets []domain.Budget
		txs     []domain.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.store.ListBudgets(gctx, userID)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		budgets = list
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

	now := s.now()
	out := make([]domain.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		if b.Status != domain.StatusActive {
			continue
		}
		out = append(out, Progress(b, txs, now))
	}
	return out, nil
}

func (s *PlanningService) activeBudget(ctx context.Context, userID, id string) (*domain.Budget, error) {
	b, err := s.store.GetBudget(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	if b.Status == domain.StatusDeleted {
		return nil, &domain.ErrNotFound{Resource: "budget", ID: id}
	}
	return b, nil
}

// PeriodStart returns the start of the budget period containing now.
// Weeks start on Monday.
func PeriodStart(p domain.BudgetPeriod, now time.Time) time.Time {
	y, m, d := now.Date()
	switch p {
	case domain.PeriodWeekly:
		offset := (int(now.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
	case domain.PeriodYearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	}
}

// Progress sums the expenses of the budget's category in the current period.
func Progress(b domain.Budget, txs []domain.Transaction, now time.Time) domain.BudgetProgress {
	start := PeriodStart(b.Period, now)
	spent := decimal.Zero
	for _, tx := range txs {
		if tx.Type != domain.TransactionExpense || !strings.EqualFold(tx.Category, b.Category) {
			continue
		}
		if tx.Date.Before(start) || tx.Date.After(now) {
			continue
		}
		spent = spent.Add(tx.Amount)
	}

	remaining := b.Limit.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	var percent float64
	if b.Limit.IsPositive() {
		percent, _ = spent.Div(b.Limit).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	}

	return domain.BudgetProgress{
		Budget:    b,
		Spent:     spent,
		Remaining: remaining,
		Percent:   percent,
		Exceeded:  spent.GreaterThan(b.Limit),
	}
}

// ============================================================
// Goals
// ============================================================

func validateGoal(req *domain.GoalRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if !req.TargetAmount.IsPositive() {
		return &domain.ErrValidation{Field: "targetAmount", Message: "targetAmount must be greater than zero"}
	}
	if req.CurrentAmount.IsNegative() {
		return &domain.ErrValidation{Field: "currentAmount", Message: "currentAmount must not be negative"}
	}
	switch req.Type {
	case domain.GoalEmergencyFund, domain.GoalVacation, domain.GoalInvestment, domain.GoalDebtPayoff:
	default:
		return &domain.ErrValidation{Field: "type", Message: "type must be one of: emergency_fund vacation investment debt_payoff"}
	}
	switch req.Status {
	case "", domain.StatusActive, domain.StatusCompleted, domain.StatusCancelled:
	default:
		return &domain.ErrValidation{Field: "status", Message: "status must be one of: active completed cancelled"}
	}
	return nil
}

func (s *PlanningService) CreateGoal(ctx context.Context, userID string, req *domain.GoalRequest) (*domain.Goal, error) {
	ctx, span := planningTracer.Start(ctx, "PlanningService.CreateGoal")
	defer span.End()

	if err := validateGoal(req); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = domain.StatusActive
	}
	g := &domain.Goal{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          strings.TrimSpace(req.Name),
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      req.Deadline,
		Type:          req.Type,
		Status:        status,
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (s *PlanningService) UpdateGoal(ctx context.Context, userID, id string, req *domain.GoalRequest) (*domain.Goal, error) {
	ctx, span := planningTracer.Start(ctx, "PlanningService.UpdateGoal")
	defer span.End()

	if err := validateGoal(req); err != nil {
		return nil, err
	}
	g, err := s.liveGoal(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	g.Name = strings.TrimSpace(req.Name)
	g.TargetAmount = req.TargetAmount
	g.CurrentAmount = req.CurrentAmount
	g.Deadline = req.Deadline
	g.Type = req.Type
	if req.Status != "" {
		g.Status = req.Status
	}
	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

// DeleteGoal marks the goal deleted; the row is kept.
func (s *PlanningService) DeleteGoal(ctx context.Context, userID, id string) error {
	ctx, span := planningTracer.Start(ctx, "PlanningService.DeleteGoal")
	defer span.End()

	g, err := s.liveGoal(ctx, userID, id)
	if err != nil {
		return err
	}
	g.Status = domain.StatusDeleted
	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	s.logger.Info("goal deleted", zap.String("user_id", userID), zap.String("goal_id", id))
	return nil
}

// ListGoals returns every goal that is not deleted.
func (s *PlanningService) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	ctx, span := planningTracer.Start(ctx, "PlanningService.ListGoals")
	defer span.End()

	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]domain.Goal, 0, len(goals))
	for _, g := range goals {
		if g.Status != domain.StatusDeleted {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *PlanningService) liveGoal(ctx context.Context, userID, id string) (*domain.Goal, error) {
	g, err := s.store.GetGoal(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if g.Status == domain.StatusDeleted {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	return g, nil
}

// ============================================================
// Dashboard — GET /v1/dashboard
// ============================================================

func (s *PlanningService) Dashboard(ctx context.Context, userID string) (*domain.Dashboard, error) {
	ctx, span := planningTracer.Start(ctx, "PlanningService.Dashboard")
	defer span.End()

	dash := &domain.Dashboard{}
	g, gctx := errgroup.WithContext(ctx)

	if s.health != nil {
		g.Go(func() error {
			h, err := s.health.Get(gctx, userID)
			if err != nil {
				return err
			}
			dash.Health = h
			return nil
		})
	}
	g.Go(func() error {
		budgets, err := s.ListBudgets(gctx, userID)
		if err != nil {
			return err
		}
		dash.Budgets = budgets
		return nil
	})
	g.Go(func() error {
		goals, err := s.ListGoals(gctx, userID)
		if err != nil {
			return err
		}
		active := make([]domain.Goal, 0, len(goals))
		for _, goal := range goals {
			if goal.Status == domain.StatusActive {
				active = append(active, goal)
			}
		}
		dash.Goals = active
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}
