package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/shopspring/decimal"
)

// --- budgets ---

func (s *Store) CreateBudget(ctx context.Context, b *domain.Budget) error {
	_, err := s.exec(ctx, `INSERT INTO budgets (id, user_id, category, limit_amount, period, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Category, b.Limit.String(), string(b.Period), b.Status, formatTime(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (s *Store) UpdateBudget(ctx context.Context, b *domain.Budget) error {
	res, err := s.exec(ctx, `UPDATE budgets SET category = ?, limit_amount = ?, period = ?, status = ?
		WHERE id = ? AND user_id = ?`,
		b.Category, b.Limit.String(), string(b.Period), b.Status, b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if !affectedOne(res) {
		return &domain.ErrNotFound{Resource: "budget", ID: b.ID}
	}
	return nil
}

func (s *Store) GetBudget(ctx context.Context, userID, id string) (*domain.Budget, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, category, limit_amount, period, status, created_at
		FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "budget", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// ListBudgets returns every budget of the user, soft-deleted ones included,
// oldest first.
func (s *Store) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, category, limit_amount, period, status, created_at
		FROM budgets WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBudget(sc scanner) (*domain.Budget, error) {
	var (
		b                      domain.Budget
		limit, period, created string
	)
	if err := sc.Scan(&b.ID, &b.UserID, &b.Category, &limit, &period, &b.Status, &created); err != nil {
		return nil, err
	}
	var err error
	if b.Limit, err = decimal.NewFromString(limit); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	b.Period = domain.BudgetPeriod(period)
	return &b, nil
}

// --- goals ---

func (s *Store) CreateGoal(ctx context.Context, g *domain.Goal) error {
	_, err := s.exec(ctx, `INSERT INTO goals (id, user_id, name, target_amount, current_amount, deadline, type, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), nullableTime(g.Deadline),
		string(g.Type), g.Status, formatTime(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func (s *Store) UpdateGoal(ctx context.Context, g *domain.Goal) error {
	res, err := s.exec(ctx, `UPDATE goals SET name = ?, target_amount = ?, current_amount = ?, deadline = ?,
		type = ?, status = ? WHERE id = ? AND user_id = ?`,
		g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), nullableTime(g.Deadline),
		string(g.Type), g.Status, g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	if !affectedOne(res) {
		return &domain.ErrNotFound{Resource: "goal", ID: g.ID}
	}
	return nil
}

func (s *Store) GetGoal(ctx context.Context, userID, id string) (*domain.Goal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, name, target_amount, current_amount, deadline, type, status, created_at
		FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (s *Store) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, name, target_amount, current_amount, deadline, type, status, created_at
		FROM goals WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func scanGoal(sc scanner) (*domain.Goal, error) {
	var (
		g                             domain.Goal
		target, current, typ, created string
		deadline                      sql.NullString
	)
	if err := sc.Scan(&g.ID, &g.UserID, &g.Name, &target, &current, &deadline, &typ, &g.Status, &created); err != nil {
		return nil, err
	}
	var err error
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return nil, err
	}
	if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
		return nil, err
	}
	if g.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if deadline.Valid {
		d, err := parseTime(deadline.String)
		if err != nil {
			return nil, err
		}
		g.Deadline = &d
	}
	g.Type = domain.GoalType(typ)
	return &g, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
