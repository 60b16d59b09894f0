package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Transactions
// ============================================================

// TransactionType carries the direction of a transaction. Amounts are always
// stored non-negative.
type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionIncome, TransactionExpense, TransactionTransfer:
		return true
	}
	return false
}

// Transaction is a single ledger entry owned by a user.
type Transaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Date         time.Time       `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Merchant     string          `json:"merchant"`
	Category     string          `json:"category"`
	Type         TransactionType `json:"type"`
	Description  string          `json:"description,omitempty"`
	Location     string          `json:"location,omitempty"`
	AccountID    string          `json:"accountId,omitempty"`
	IsFraudulent bool            `json:"isFraudulent"`
	FraudReason  string          `json:"fraudReason,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// CreateTransactionRequest is the body of POST /v1/transactions.
type CreateTransactionRequest struct {
	Date        *time.Time      `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Merchant    string          `json:"merchant" validate:"required,max=200"`
	Category    string          `json:"category" validate:"omitempty,max=100"`
	Type        TransactionType `json:"type" validate:"required,oneof=income expense transfer"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	Location    string          `json:"location" validate:"omitempty,max=200"`
	AccountID   string          `json:"accountId" validate:"omitempty,max=100"`
}

// UpdateTransactionRequest is the body of PUT /v1/transactions/{id}.
// Nil fields are left untouched.
type UpdateTransactionRequest struct {
	Date        *time.Time       `json:"date"`
	Amount      *decimal.Decimal `json:"amount"`
	Merchant    *string          `json:"merchant" validate:"omitempty,min=1,max=200"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Type        *TransactionType `json:"type" validate:"omitempty,oneof=income expense transfer"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
}

// FlagRequest is the body of POST /v1/transactions/{id}/flag.
type FlagRequest struct {
	IsFraudulent bool   `json:"isFraudulent"`
	Reason       string `json:"reason" validate:"omitempty,max=300"`
}

// TransactionResult is returned after a transaction is created or updated.
type TransactionResult struct {
	Transaction *Transaction      `json:"transaction"`
	FraudCheck  *FraudCheckResult `json:"fraudCheck"`
}

// ImportRowError describes a CSV row that was rejected.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarizes a CSV import.
type ImportResult struct {
	Imported int              `json:"imported"`
	Flagged  int              `json:"flagged"`
	Rejected []ImportRowError `json:"rejected"`
}

// ReceiptDraft holds transaction fields read from a receipt photo.
// Extracted is false when the vision model could not be reached or its output
// was unusable; the caller is expected to fill the form manually then.
type ReceiptDraft struct {
	Extracted bool            `json:"extracted"`
	Merchant  string          `json:"merchant,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Date      *time.Time      `json:"date,omitempty"`
	Category  string          `json:"category,omitempty"`
	Items     []ReceiptItem   `json:"items,omitempty"`
	Warning   string          `json:"warning,omitempty"`
}

// ReceiptItem is one line of a receipt.
type ReceiptItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// EventTransactionFlagged is the type of events published for fraudulent
// transactions.
const EventTransactionFlagged = "transaction.flagged"

// FlaggedEvent is published whenever a stored transaction is marked
// fraudulent.
type FlaggedEvent struct {
	EventID       string          `json:"eventId"`
	Type          string          `json:"type"`
	UserID        string          `json:"userId"`
	TransactionID string          `json:"transactionId"`
	Merchant      string          `json:"merchant"`
	Amount        decimal.Decimal `json:"amount"`
	RiskScore     int             `json:"riskScore"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// CategorizeRequest is the body of POST /v1/categorize.
type CategorizeRequest struct {
	Merchant string          `json:"merchant" validate:"required,max=200"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategorizeResponse carries the category picked for a merchant.
type CategorizeResponse struct {
	Category string `json:"category"`
}
