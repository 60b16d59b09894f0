package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Users & auth
// ============================================================

// User owns transactions, budgets and goals.
type User struct {
	ID            string          `json:"id"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	PasswordHash  string          `json:"-"`
	MonthlyIncome decimal.Decimal `json:"monthlyIncome"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Email         string          `json:"email" validate:"required,email"`
	Name          string          `json:"name" validate:"required,max=120"`
	Password      string          `json:"password" validate:"required,min=8,max=72"`
	MonthlyIncome decimal.Decimal `json:"monthlyIncome"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the access token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        *User  `json:"user"`
}

// IncomeRequest is the body of PUT /v1/me/income.
type IncomeRequest struct {
	MonthlyIncome decimal.Decimal `json:"monthlyIncome"`
}
