package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/fintrack-go/internal/categorize"
	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/fraud"
	"github.com/boddenberg/fintrack-go/internal/infra/memstore"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// --- Mocks ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.FlaggedEvent
	err    error
}

func (m *mockPublisher) PublishFlagged(_ context.Context, e domain.FlaggedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type mockLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	calls   int
	prompts []domain.LLMPrompt
}

func (m *mockLLM) Generate(_ context.Context, _ string, p domain.LLMPrompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, p)
	return m.answer, m.err
}

// --- Fixtures ---

type fixture struct {
	store     *memstore.Store
	metrics   *observability.Metrics
	publisher *mockPublisher
	health    *service.HealthService
	txs       *service.TransactionService
	userID    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	user := &domain.User{
		ID:            "user-1",
		Email:         "ana@example.com",
		Name:          "Ana",
		MonthlyIncome: decimal.NewFromInt(5000),
		CreatedAt:     fixedNow,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	metrics := observability.NewMetrics()
	pub := &mockPublisher{}
	health := service.NewHealthService(store, zap.NewNop(), service.WithClock(clock))
	txs := service.NewTransactionService(
		store,
		health,
		categorize.New(),
		fraud.NewEngine(),
		pub,
		metrics,
		zap.NewNop(),
		service.WithClock(clock),
	)
	return &fixture{store: store, metrics: metrics, publisher: pub, health: health, txs: txs, userID: user.ID}
}

func (f *fixture) create(t *testing.T, merchant string, amount int64, typ domain.TransactionType, date time.Time) *domain.TransactionResult {
	t.Helper()
	res, err := f.txs.Create(context.Background(), f.userID, &domain.CreateTransactionRequest{
		Date:     &date,
		Amount:   decimal.NewFromInt(amount),
		Merchant: merchant,
		Type:     typ,
	})
	if err != nil {
		t.Fatalf("create %s: %v", merchant, err)
	}
	return res
}
