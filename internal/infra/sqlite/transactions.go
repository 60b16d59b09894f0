package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/shopspring/decimal"
)

const transactionColumns = `id, user_id, date, amount, merchant, category, type, description,
	location, account_id, is_fraudulent, fraud_reason, created_at`

func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	_, err := s.exec(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, formatTime(tx.Date), tx.Amount.String(), tx.Merchant, tx.Category,
		string(tx.Type), tx.Description, tx.Location, tx.AccountID, tx.IsFraudulent,
		tx.FraudReason, formatTime(tx.CreatedAt),
	)
	if isUniqueViolation(err) {
		return &domain.ErrConflict{Message: "transaction already exists: " + tx.ID}
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	res, err := s.exec(ctx, `UPDATE transactions SET date = ?, amount = ?, merchant = ?, category = ?,
		type = ?, description = ?, location = ?, account_id = ?, is_fraudulent = ?, fraud_reason = ?
		WHERE id = ? AND user_id = ?`,
		formatTime(tx.Date), tx.Amount.String(), tx.Merchant, tx.Category, string(tx.Type),
		tx.Description, tx.Location, tx.AccountID, tx.IsFraudulent, tx.FraudReason,
		tx.ID, tx.UserID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if !affectedOne(res) {
		return &domain.ErrNotFound{Resource: "transaction", ID: tx.ID}
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns the user's transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY date DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (*domain.Transaction, error) {
	var (
		tx            domain.Transaction
		date, created string
		amount, typ   string
		isFraudulent  bool
	)
	if err := sc.Scan(&tx.ID, &tx.UserID, &date, &amount, &tx.Merchant, &tx.Category, &typ,
		&tx.Description, &tx.Location, &tx.AccountID, &isFraudulent, &tx.FraudReason, &created); err != nil {
		return nil, err
	}

	var err error
	if tx.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if tx.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	tx.Type = domain.TransactionType(typ)
	tx.IsFraudulent = isFraudulent
	return &tx, nil
}
