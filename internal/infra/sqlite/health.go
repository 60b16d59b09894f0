package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/boddenberg/fintrack-go/internal/domain"
)

// UpsertHealth replaces the user's health record.
func (s *Store) UpsertHealth(ctx context.Context, h *domain.FinancialHealth) error {
	_, err := s.exec(ctx, `INSERT INTO financial_health
		(user_id, income_stability, expense_ratio, savings_rate, debt_ratio, liquidity, score, last_calculated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			income_stability = excluded.income_stability,
			expense_ratio = excluded.expense_ratio,
			savings_rate = excluded.savings_rate,
			debt_ratio = excluded.debt_ratio,
			liquidity = excluded.liquidity,
			score = excluded.score,
			last_calculated = excluded.last_calculated`,
		h.UserID, h.IncomeStability, h.ExpenseRatio, h.SavingsRate, h.DebtRatio, h.Liquidity, h.Score,
		formatTime(h.LastCalculated))
	if err != nil {
		return fmt.Errorf("upsert health: %w", err)
	}
	return nil
}

func (s *Store) GetHealth(ctx context.Context, userID string) (*domain.FinancialHealth, error) {
	var (
		h    domain.FinancialHealth
		last string
	)
	err := s.db.QueryRowContext(ctx, `SELECT user_id, income_stability, expense_ratio, savings_rate, debt_ratio,
		liquidity, score, last_calculated FROM financial_health WHERE user_id = ?`, userID).
		Scan(&h.UserID, &h.IncomeStability, &h.ExpenseRatio, &h.SavingsRate, &h.DebtRatio, &h.Liquidity, &h.Score, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "financial health", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("get health: %w", err)
	}
	if h.LastCalculated, err = parseTime(last); err != nil {
		return nil, err
	}
	return &h, nil
}
