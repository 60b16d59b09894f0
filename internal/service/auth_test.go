package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/infra/memstore"
	"github.com/boddenberg/fintrack-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const testSecret = "test-secret-that-is-long-enough"

func newAuth(t *testing.T, now func() time.Time) (*service.AuthService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	health := service.NewHealthService(store, zap.NewNop(), service.WithClock(now))
	return service.NewAuthService(store, health, testSecret, 15*time.Minute, zap.NewNop(), service.WithClock(now)), store
}

func register(t *testing.T, svc *service.AuthService) *domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Email:         "  Ana@Example.com ",
		Name:          "Ana",
		Password:      "correct horse",
		MonthlyIncome: decimal.NewFromInt(4000),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuth(t, clock)
	u := register(t, svc)

	if u.Email != "ana@example.com" {
		t.Errorf("expected normalized email, got %q", u.Email)
	}
	if u.PasswordHash == "" || u.PasswordHash == "correct horse" {
		t.Error("expected password to be hashed")
	}

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{Email: "ANA@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.ExpiresIn != 900 {
		t.Errorf("unexpected login response %+v", resp)
	}

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Sub != u.ID {
		t.Errorf("expected sub %q, got %q", u.ID, claims.Sub)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newAuth(t, clock)
	register(t, svc)

	_, err := svc.Register(context.Background(), &domain.RegisterRequest{Email: "ana@example.com", Name: "Other", Password: "something else"})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLogin_WrongPasswordAndUnknownEmail(t *testing.T) {
	svc, _ := newAuth(t, clock)
	register(t, svc)

	for _, req := range []*domain.LoginRequest{
		{Email: "ana@example.com", Password: "wrong password"},
		{Email: "nobody@example.com", Password: "correct horse"},
	} {
		_, err := svc.Login(context.Background(), req)
		var unauth *domain.ErrUnauthorized
		if !errors.As(err, &unauth) {
			t.Fatalf("expected unauthorized for %s, got %v", req.Email, err)
		}
		if unauth.Message != "invalid email or password" {
			t.Errorf("unexpected message %q", unauth.Message)
		}
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	now := fixedNow
	svc, _ := newAuth(t, func() time.Time { return now })
	register(t, svc)

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{Email: "ana@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	now = fixedNow.Add(16 * time.Minute)
	if _, err := svc.ValidateAccessToken(resp.AccessToken); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	svc, _ := newAuth(t, clock)

	_, err := svc.ValidateAccessToken("not-a-jwt")
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestUpdateIncome_RecalculatesHealth(t *testing.T) {
	svc, store := newAuth(t, clock)
	u := register(t, svc)

	updated, err := svc.UpdateIncome(context.Background(), u.ID, decimal.NewFromInt(6500))
	if err != nil {
		t.Fatalf("update income: %v", err)
	}
	if updated.MonthlyIncome.String() != "6500" {
		t.Errorf("expected income 6500, got %s", updated.MonthlyIncome)
	}
	if _, err := store.GetHealth(context.Background(), u.ID); err != nil {
		t.Errorf("expected health record after income change: %v", err)
	}

	_, err = svc.UpdateIncome(context.Background(), u.ID, decimal.NewFromInt(-1))
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Errorf("expected validation error for negative income, got %v", err)
	}
}
