// Package health computes the composite financial health score of a user
// from a trailing window of transactions and the stated monthly income.
package health

import (
	"math"
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	neutralScore        = 50
	windowMonths        = 3
	stableIncomeCount   = 3
	stableIncomeScore   = 85
	perIncomeScore      = 20
	liquidityTargetMths = 6

	weightIncomeStability = 0.20
	weightExpenseRatio    = 0.25
	weightSavingsRate     = 0.25
	weightDebtRatio       = 0.15
	weightLiquidity       = 0.15
)

var debtKeywords = []string{"loan", "debt", "credit"}

// Neutral is returned when there is nothing to score.
func Neutral() domain.HealthComponents {
	return domain.HealthComponents{
		IncomeStability: neutralScore,
		ExpenseRatio:    neutralScore,
		SavingsRate:     neutralScore,
		DebtRatio:       neutralScore,
		Liquidity:       neutralScore,
		Score:           neutralScore,
	}
}

// Calculate scores txs against monthlyIncome. Only transactions dated after
// now minus three months are considered. The function is pure.
func Calculate(txs []domain.Transaction, monthlyIncome decimal.Decimal, now time.Time) domain.HealthComponents {
	if len(txs) == 0 || !monthlyIncome.IsPositive() {
		return Neutral()
	}

	since := now.AddDate(0, -windowMonths, 0)
	var (
		incomeCount   int
		totalIncome   = decimal.Zero
		totalExpenses = decimal.Zero
		debtPayments  = decimal.Zero
	)
	for _, tx := range txs {
		if !tx.Date.After(since) {
			continue
		}
		switch tx.Type {
		case domain.TransactionIncome:
			incomeCount++
			totalIncome = totalIncome.Add(tx.Amount)
		case domain.TransactionExpense:
			totalExpenses = totalExpenses.Add(tx.Amount)
		}
		if isDebtCategory(tx.Category) {
			debtPayments = debtPayments.Add(tx.Amount)
		}
	}

	income := totalIncome.InexactFloat64()
	expenses := totalExpenses.InexactFloat64()
	windowIncome := monthlyIncome.InexactFloat64() * windowMonths

	incomeStability := float64(stableIncomeScore)
	if incomeCount < stableIncomeCount {
		incomeStability = math.Min(float64(incomeCount*perIncomeScore), 100)
	}

	expenseRatio := math.Max(0, 100-(expenses/windowIncome)*100)

	savingsRate := 0.0
	if income > 0 {
		savingsRate = clamp((income-expenses)/income*100, 0, 100)
	}

	debtRatio := math.Max(0, 100-(debtPayments.InexactFloat64()/windowIncome)*100)

	liquidity := 0.0
	savings := income - expenses
	monthlyExpense := expenses / windowMonths
	if savings > 0 && monthlyExpense > 0 {
		monthsCovered := savings / monthlyExpense
		liquidity = math.Min(100, monthsCovered/liquidityTargetMths*100)
	}

	score := incomeStability*weightIncomeStability +
		expenseRatio*weightExpenseRatio +
		savingsRate*weightSavingsRate +
		debtRatio*weightDebtRatio +
		liquidity*weightLiquidity

	return domain.HealthComponents{
		IncomeStability: round(incomeStability),
		ExpenseRatio:    round(expenseRatio),
		SavingsRate:     round(savingsRate),
		DebtRatio:       round(debtRatio),
		Liquidity:       round(liquidity),
		Score:           round(clamp(score, 0, 100)),
	}
}

func isDebtCategory(category string) bool {
	c := strings.ToLower(category)
	for _, kw := range debtKeywords {
		if strings.Contains(c, kw) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64) int {
	return int(math.Round(v))
}
