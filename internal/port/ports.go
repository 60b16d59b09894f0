// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/shopspring/decimal"
)

// TransactionStore persists transactions. Lookups are scoped to the owning
// user; a record belonging to someone else is reported as not found.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error
	GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
}

// BudgetStore persists budgets. Deleted budgets keep their row with
// status "deleted".
type BudgetStore interface {
	CreateBudget(ctx context.Context, b *domain.Budget) error
	UpdateBudget(ctx context.Context, b *domain.Budget) error
	GetBudget(ctx context.Context, userID, id string) (*domain.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error)
}

// GoalStore persists goals.
type GoalStore interface {
	CreateGoal(ctx context.Context, g *domain.Goal) error
	UpdateGoal(ctx context.Context, g *domain.Goal) error
	GetGoal(ctx context.Context, userID, id string) (*domain.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]domain.Goal, error)
}

// HealthStore keeps one live health record per user.
type HealthStore interface {
	UpsertHealth(ctx context.Context, h *domain.FinancialHealth) error
	GetHealth(ctx context.Context, userID string) (*domain.FinancialHealth, error)
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateIncome(ctx context.Context, userID string, income decimal.Decimal) error
}

// Store is the full persistence layer.
type Store interface {
	TransactionStore
	BudgetStore
	GoalStore
	HealthStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}

// LLMGenerator sends a prompt to a generative model and returns its raw text
// answer.
type LLMGenerator interface {
	Generate(ctx context.Context, apiKey string, prompt domain.LLMPrompt) (string, error)
}

// EventPublisher emits domain events to a broker.
type EventPublisher interface {
	PublishFlagged(ctx context.Context, event domain.FlaggedEvent) error
	Close() error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
