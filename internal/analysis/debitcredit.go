package analysis

import (
	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/shopspring/decimal"
)

// SummarizeDebitCredit aggregates expense (debit) and income (credit)
// transactions. Transfers count on neither side. The largest transaction of
// each side is the first one reaching the maximum amount.
func SummarizeDebitCredit(txs []domain.Transaction) domain.DebitCreditAnalysis {
	dc := domain.DebitCreditAnalysis{
		TotalDebits:      decimal.Zero,
		TotalCredits:     decimal.Zero,
		DebitCategories:  map[string]decimal.Decimal{},
		CreditCategories: map[string]decimal.Decimal{},
	}

	for i := range txs {
		tx := &txs[i]
		switch tx.Type {
		case domain.TransactionExpense:
			dc.TotalDebits = dc.TotalDebits.Add(tx.Amount)
			dc.DebitCount++
			dc.DebitCategories[tx.Category] = dc.DebitCategories[tx.Category].Add(tx.Amount)
			if dc.LargestDebit == nil || tx.Amount.GreaterThan(dc.LargestDebit.Amount) {
				dc.LargestDebit = tx
			}
		case domain.TransactionIncome:
			dc.TotalCredits = dc.TotalCredits.Add(tx.Amount)
			dc.CreditCount++
			dc.CreditCategories[tx.Category] = dc.CreditCategories[tx.Category].Add(tx.Amount)
			if dc.LargestCredit == nil || tx.Amount.GreaterThan(dc.LargestCredit.Amount) {
				dc.LargestCredit = tx
			}
		}
	}

	if dc.LargestDebit != nil {
		largest := *dc.LargestDebit
		dc.LargestDebit = &largest
	}
	if dc.LargestCredit != nil {
		largest := *dc.LargestCredit
		dc.LargestCredit = &largest
	}
	return dc
}
