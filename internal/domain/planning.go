package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Budgets
// ============================================================

type BudgetPeriod string

const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

const (
	StatusActive    = "active"
	StatusDeleted   = "deleted"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Budget is a spending limit per category. Deletion is soft.
type Budget struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Period    BudgetPeriod    `json:"period"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// BudgetRequest is the body of POST/PUT /v1/budgets.
type BudgetRequest struct {
	Category string          `json:"category" validate:"required,max=100"`
	Limit    decimal.Decimal `json:"limit"`
	Period   BudgetPeriod    `json:"period" validate:"required,oneof=weekly monthly yearly"`
}

// BudgetProgress is a budget together with what was spent in its current period.
type BudgetProgress struct {
	Budget    Budget          `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   float64         `json:"percent"`
	Exceeded  bool            `json:"exceeded"`
}

// ============================================================
// Goals
// ============================================================

type GoalType string

const (
	GoalEmergencyFund GoalType = "emergency_fund"
	GoalVacation      GoalType = "vacation"
	GoalInvestment    GoalType = "investment"
	GoalDebtPayoff    GoalType = "debt_payoff"
)

// Goal is a savings target.
type Goal struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	Type          GoalType        `json:"type"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// GoalRequest is the body of POST/PUT /v1/goals.
type GoalRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Deadline      *time.Time      `json:"deadline"`
	Type          GoalType        `json:"type" validate:"required,oneof=emergency_fund vacation investment debt_payoff"`
	Status        string          `json:"status" validate:"omitempty,oneof=active completed cancelled"`
}

// Dashboard aggregates the read-only views shown on the home screen.
type Dashboard struct {
	Health  *FinancialHealth `json:"health,omitempty"`
	Budgets []BudgetProgress `json:"budgets"`
	Goals   []Goal           `json:"goals"`
}
