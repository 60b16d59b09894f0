// Package memstore is an in-memory implementation of port.Store, used when
// no database is configured and in tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Store keeps every record in maps guarded by a single RWMutex. Returned
// records are copies.
type Store struct {
	mu           sync.RWMutex
	seq          int64
	transactions map[string]txRecord
	budgets      map[string]domain.Budget
	goals        map[string]domain.Goal
	health       map[string]domain.FinancialHealth
	users        map[string]domain.User
}

type txRecord struct {
	tx  domain.Transaction
	seq int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		transactions: map[string]txRecord{},
		budgets:      map[string]domain.Budget{},
		goals:        map[string]domain.Goal{},
		health:       map[string]domain.FinancialHealth{},
		users:        map[string]domain.User{},
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// --- transactions ---

func (s *Store) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[tx.ID]; ok {
		return &domain.ErrConflict{Message: "transaction already exists: " + tx.ID}
	}
	s.seq++
	s.transactions[tx.ID] = txRecord{tx: *tx, seq: s.seq}
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.transactions[tx.ID]
	if !ok || rec.tx.UserID != tx.UserID {
		return &domain.ErrNotFound{Resource: "transaction", ID: tx.ID}
	}
	rec.tx = *tx
	s.transactions[tx.ID] = rec
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.transactions[id]
	if !ok || rec.tx.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	tx := rec.tx
	return &tx, nil
}

// ListTransactions returns the user's transactions, newest first.
func (s *Store) ListTransactions(_ context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	recs := make([]txRecord, 0)
	for _, rec := range s.transactions {
		if rec.tx.UserID == userID {
			recs = append(recs, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].tx.Date.Equal(recs[j].tx.Date) {
			return recs[i].tx.Date.After(recs[j].tx.Date)
		}
		return recs[i].seq > recs[j].seq
	})

	out := make([]domain.Transaction, len(recs))
	for i, rec := range recs {
		out[i] = rec.tx
	}
	return out, nil
}

// --- budgets ---

func (s *Store) CreateBudget(_ context.Context, b *domain.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = *b
	return nil
}

func (s *Store) UpdateBudget(_ context.Context, b *domain.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.budgets[b.ID]
	if !ok || cur.UserID != b.UserID {
		return &domain.ErrNotFound{Resource: "budget", ID: b.ID}
	}
	s.budgets[b.ID] = *b
	return nil
}

func (s *Store) GetBudget(_ context.Context, userID, id string) (*domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.budgets[id]
	if !ok || b.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "budget", ID: id}
	}
	return &b, nil
}

// ListBudgets returns every budget of the user, soft-deleted ones included,
// oldest first.
func (s *Store) ListBudgets(_ context.Context, userID string) ([]domain.Budget, error) {
	s.mu.RLock()
	out := make([]domain.Budget, 0)
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- goals ---

func (s *Store) CreateGoal(_ context.Context, g *domain.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[g.ID] = *g
	return nil
}

func (s *Store) UpdateGoal(_ context.Context, g *domain.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.goals[g.ID]
	if !ok || cur.UserID != g.UserID {
		return &domain.ErrNotFound{Resource: "goal", ID: g.ID}
	}
	s.goals[g.ID] = *g
	return nil
}

func (s *Store) GetGoal(_ context.Context, userID, id string) (*domain.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.goals[id]
	if !ok || g.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	return &g, nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]domain.Goal, error) {
	s.mu.RLock()
	out := make([]domain.Goal, 0)
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- health ---

func (s *Store) UpsertHealth(_ context.Context, h *domain.FinancialHealth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health[h.UserID] = *h
	return nil
}

func (s *Store) GetHealth(_ context.Context, userID string) (*domain.FinancialHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.health[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "financial health", ID: userID}
	}
	return &h, nil
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return &domain.ErrConflict{Message: "email already registered"}
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: id}
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "user", ID: email}
}

func (s *Store) UpdateIncome(_ context.Context, userID string, income decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	u.MonthlyIncome = income
	s.users[userID] = u
	return nil
}
