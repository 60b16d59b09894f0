package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/shopspring/decimal"
)

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := s.exec(ctx, `INSERT INTO users (id, email, email_key, name, password_hash, monthly_income, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, strings.ToLower(u.Email), u.Name, u.PasswordHash, u.MonthlyIncome.String(), formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return &domain.ErrConflict{Message: "email already registered"}
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUser(ctx, "email_key = ?", strings.ToLower(email))
}

func (s *Store) getUser(ctx context.Context, where string, arg string) (*domain.User, error) {
	var (
		u               domain.User
		income, created string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, email, name, password_hash, monthly_income, created_at
		FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &income, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "user", ID: arg}
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u.MonthlyIncome, err = decimal.NewFromString(income); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateIncome(ctx context.Context, userID string, income decimal.Decimal) error {
	res, err := s.exec(ctx, `UPDATE users SET monthly_income = ? WHERE id = ?`, income.String(), userID)
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	if !affectedOne(res) {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return nil
}
