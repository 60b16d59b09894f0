// Package storetest holds the behavioral test suite every port.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/port"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

// Run executes the suite against stores created by newStore.
func Run(t *testing.T, newStore func(t *testing.T) port.Store) {
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("Budgets", func(t *testing.T) { testBudgets(t, newStore(t)) })
	t.Run("Goals", func(t *testing.T) { testGoals(t, newStore(t)) })
	t.Run("Health", func(t *testing.T) { testHealth(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}

func testTransactions(t *testing.T, s port.Store) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	older := domain.Transaction{
		ID: "tx-1", UserID: "u1", Date: base, Amount: decimal.RequireFromString("12.34"),
		Merchant: "Cafe", Category: "Food & Dining", Type: domain.TransactionExpense,
		Description: "latte", CreatedAt: base,
	}
	newer := domain.Transaction{
		ID: "tx-2", UserID: "u1", Date: base.Add(time.Hour), Amount: decimal.NewFromInt(2500),
		Merchant: "Employer", Category: "Other", Type: domain.TransactionIncome,
		IsFraudulent: true, FraudReason: "manual", CreatedAt: base,
	}
	other := domain.Transaction{
		ID: "tx-3", UserID: "u2", Date: base, Amount: decimal.NewFromInt(1),
		Merchant: "X", Category: "Other", Type: domain.TransactionExpense, CreatedAt: base,
	}
	require.NoError(t, s.CreateTransaction(ctx, &older))
	require.NoError(t, s.CreateTransaction(ctx, &newer))
	require.NoError(t, s.CreateTransaction(ctx, &other))

	list, err := s.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "tx-2", list[0].ID, "newest first")
	assert.True(t, list[1].Amount.Equal(decimal.RequireFromString("12.34")))
	assert.True(t, list[0].IsFraudulent)
	assert.Equal(t, "manual", list[0].FraudReason)
	assert.True(t, list[1].Date.Equal(base))

	got, err := s.GetTransaction(ctx, "u1", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "latte", got.Description)

	_, err = s.GetTransaction(ctx, "u2", "tx-1")
	assert.True(t, isNotFound(err), "other users cannot read it")

	got.Amount = decimal.NewFromInt(99)
	got.IsFraudulent = true
	got.FraudReason = "potential duplicate transaction"
	require.NoError(t, s.UpdateTransaction(ctx, got))

	got, err = s.GetTransaction(ctx, "u1", "tx-1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(99)))
	assert.True(t, got.IsFraudulent)

	missing := older
	missing.ID = "nope"
	assert.True(t, isNotFound(s.UpdateTransaction(ctx, &missing)))

	empty, err := s.ListTransactions(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testBudgets(t *testing.T, s port.Store) {
	ctx := context.Background()
	b := domain.Budget{
		ID: "b1", UserID: "u1", Category: "Groceries", Limit: decimal.NewFromInt(400),
		Period: domain.PeriodMonthly, Status: domain.StatusActive, CreatedAt: base,
	}
	require.NoError(t, s.CreateBudget(ctx, &b))

	b.Status = domain.StatusDeleted
	require.NoError(t, s.UpdateBudget(ctx, &b))

	got, err := s.GetBudget(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, got.Status)
	assert.True(t, got.Limit.Equal(decimal.NewFromInt(400)))

	list, err := s.ListBudgets(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.GetBudget(ctx, "u2", "b1")
	assert.True(t, isNotFound(err))
}

func testGoals(t *testing.T, s port.Store) {
	ctx := context.Background()
	deadline := base.AddDate(1, 0, 0)
	g := domain.Goal{
		ID: "g1", UserID: "u1", Name: "Rainy day", TargetAmount: decimal.NewFromInt(5000),
		CurrentAmount: decimal.NewFromInt(100), Deadline: &deadline, Type: domain.GoalEmergencyFund,
		Status: domain.StatusActive, CreatedAt: base,
	}
	require.NoError(t, s.CreateGoal(ctx, &g))

	g.CurrentAmount = decimal.NewFromInt(5000)
	g.Status = domain.StatusCompleted
	require.NoError(t, s.UpdateGoal(ctx, &g))

	got, err := s.GetGoal(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.Deadline)
	assert.True(t, got.Deadline.Equal(deadline))

	noDeadline := domain.Goal{
		ID: "g2", UserID: "u1", Name: "Trip", TargetAmount: decimal.NewFromInt(900),
		CurrentAmount: decimal.Zero, Type: domain.GoalVacation, Status: domain.StatusActive,
		CreatedAt: base.Add(time.Minute),
	}
	require.NoError(t, s.CreateGoal(ctx, &noDeadline))

	list, err := s.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "g1", list[0].ID)
	assert.Nil(t, list[1].Deadline)

	_, err = s.GetGoal(ctx, "u1", "missing")
	assert.True(t, isNotFound(err))
}

func testHealth(t *testing.T, s port.Store) {
	ctx := context.Background()

	_, err := s.GetHealth(ctx, "u1")
	assert.True(t, isNotFound(err))

	h := domain.FinancialHealth{
		UserID:           "u1",
		HealthComponents: domain.HealthComponents{IncomeStability: 85, ExpenseRatio: 40, SavingsRate: 40, DebtRatio: 92, Liquidity: 33, Score: 56},
		LastCalculated:   base,
	}
	require.NoError(t, s.UpsertHealth(ctx, &h))

	h.Score = 70
	h.LastCalculated = base.Add(time.Hour)
	require.NoError(t, s.UpsertHealth(ctx, &h))

	got, err := s.GetHealth(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 70, got.Score)
	assert.Equal(t, 92, got.DebtRatio)
	assert.True(t, got.LastCalculated.Equal(base.Add(time.Hour)))
}

func testUsers(t *testing.T, s port.Store) {
	ctx := context.Background()
	u := domain.User{
		ID: "u1", Email: "Ana@Example.com", Name: "Ana", PasswordHash: "hash",
		MonthlyIncome: decimal.NewFromInt(3000), CreatedAt: base,
	}
	require.NoError(t, s.CreateUser(ctx, &u))

	dup := u
	dup.ID = "u2"
	dup.Email = "ana@example.com"
	var conflict *domain.ErrConflict
	assert.ErrorAs(t, s.CreateUser(ctx, &dup), &conflict)

	got, err := s.GetUserByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	require.NoError(t, s.UpdateIncome(ctx, "u1", decimal.RequireFromString("4200.50")))
	got, err = s.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.MonthlyIncome.Equal(decimal.RequireFromString("4200.50")))

	assert.True(t, isNotFound(s.UpdateIncome(ctx, "ghost", decimal.Zero)))
	_, err = s.GetUserByID(ctx, "ghost")
	assert.True(t, isNotFound(err))
}
