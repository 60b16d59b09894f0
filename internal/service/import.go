package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxImportRows caps a single CSV upload.
const maxImportRows = 10000

var importAliases = map[string][]string{
	"date":     {"date", "transaction_date", "posted", "posted_date"},
	"merchant": {"merchant", "description", "payee", "name"},
	"amount":   {"amount", "value", "sum"},
	"category": {"category"},
	"type":     {"type", "transaction_type"},
}

var importDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// importColumns maps logical columns to header positions; -1 when absent.
type importColumns map[string]int

func resolveImportHeader(header []string) (importColumns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	cols := importColumns{}
	for name, aliases := range importAliases {
		cols[name] = -1
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				cols[name] = i
				break
			}
		}
	}

	if cols["date"] < 0 {
		return nil, &domain.ErrValidation{Field: "csv", Message: "missing date column"}
	}
	if cols["merchant"] < 0 {
		return nil, &domain.ErrValidation{Field: "csv", Message: "missing merchant or description column"}
	}
	return cols, nil
}

func (c importColumns) get(record []string, name string) string {
	i := c[name]
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ============================================================
// ImportCSV — POST /v1/transactions/import
// ============================================================

// ImportCSV stores every valid row of r. Rejected rows are reported with
// their 1-based line number; the header is line 1.
func (s *TransactionService) ImportCSV(ctx context.Context, userID string, r io.Reader) (*domain.ImportResult, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.ImportCSV")
	defer span.End()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.ErrValidation{Field: "csv", Message: "file is empty"}
	}
	if err != nil {
		return nil, &domain.ErrValidation{Field: "csv", Message: err.Error()}
	}
	cols, err := resolveImportHeader(header)
	if err != nil {
		return nil, err
	}

	history, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	result := &domain.ImportResult{Rejected: []domain.ImportRowError{}}
	rows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, &domain.ErrValidation{Field: "csv", Message: err.Error()}
			}
			result.Rejected = append(result.Rejected, domain.ImportRowError{Row: pe.StartLine, Message: pe.Err.Error()})
			continue
		}
		line, _ := reader.FieldPos(0)
		rows++
		if rows > maxImportRows {
			return nil, &domain.ErrValidation{Field: "csv", Message: fmt.Sprintf("more than %d rows", maxImportRows)}
		}
		if isBlank(record) {
			continue
		}

		tx, err := s.rowToTransaction(userID, cols, record)
		if err != nil {
			result.Rejected = append(result.Rejected, domain.ImportRowError{Row: line, Message: err.Error()})
			continue
		}

		check := s.score(*tx, history, s.now())
		tx.IsFraudulent = check.IsFraudulent
		if check.IsFraudulent {
			tx.FraudReason = check.Reason
		}

		if err := s.store.CreateTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("create transaction at row %d: %w", line, err)
		}
		history = append([]domain.Transaction{*tx}, history...)
		result.Imported++
		if tx.IsFraudulent {
			result.Flagged++
			s.publishFlagged(ctx, tx, check.RiskScore)
		}
	}

	if result.Imported > 0 {
		s.refreshHealth(ctx, userID)
	}

	s.logger.Info("csv import finished",
		zap.String("user_id", userID),
		zap.Int("imported", result.Imported),
		zap.Int("flagged", result.Flagged),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

func (s *TransactionService) rowToTransaction(userID string, cols importColumns, record []string) (*domain.Transaction, error) {
	merchant := cols.get(record, "merchant")
	if merchant == "" {
		return nil, errors.New("merchant is required")
	}

	rawDate := cols.get(record, "date")
	if rawDate == "" {
		return nil, errors.New("date is required")
	}
	date, err := parseImportDate(rawDate)
	if err != nil {
		return nil, err
	}

	rawAmount := cols.get(record, "amount")
	if rawAmount == "" {
		rawAmount = "0"
	}
	amount, err := parseImportAmount(rawAmount)
	if err != nil {
		return nil, err
	}

	txType := domain.TransactionType(strings.ToLower(cols.get(record, "type")))
	switch {
	case txType == "":
		txType = domain.TransactionExpense
	case !txType.Valid():
		return nil, fmt.Errorf("invalid type %q", txType)
	}

	category := cols.get(record, "category")
	if category == "" {
		category = s.categorizer.Categorize(merchant, amount.Abs())
	}

	return &domain.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		Amount:    amount.Abs(),
		Merchant:  merchant,
		Category:  category,
		Type:      txType,
		CreatedAt: s.now(),
	}, nil
}

func parseImportDate(v string) (time.Time, error) {
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}

func parseImportAmount(v string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(v)
	neg := false
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		clean = strings.TrimSuffix(strings.TrimPrefix(clean, "("), ")")
		neg = true
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", v)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
