package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const bcryptCost = 12

// AuthService handles registration, login, JWT validation and the user's
// own profile.
type AuthService struct {
	users     port.UserStore
	health    *HealthService
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService creates a new auth service. health may be nil.
func NewAuthService(users port.UserStore, health *HealthService, jwtSecret string, accessTTL time.Duration, logger *zap.Logger, opts ...Option) *AuthService {
	s := applyOptions(opts)
	return &AuthService{
		users:     users,
		health:    health,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		logger:    logger,
		now:       s.now,
	}
}

// ============================================================
// Register — POST /v1/auth/register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if req.MonthlyIncome.IsNegative() {
		return nil, &domain.ErrValidation{Field: "monthlyIncome", Message: "monthlyIncome must not be negative"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:            uuid.NewString(),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Name:          strings.TrimSpace(req.Name),
		PasswordHash:  string(hash),
		MonthlyIncome: req.MonthlyIncome,
		CreatedAt:     s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// ============================================================
// Login — POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	invalid := &domain.ErrUnauthorized{Message: "invalid email or password"}

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, invalid
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: wrong password", zap.String("user_id", user.ID))
		return nil, invalid
	}

	token, err := s.signAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.accessTTL.Seconds()),
		User:        user,
	}, nil
}

// ============================================================
// Profile — GET /v1/me, PUT /v1/me/income
// ============================================================

func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Me")
	defer span.End()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateIncome stores the declared monthly income and rescores health.
func (s *AuthService) UpdateIncome(ctx context.Context, userID string, income decimal.Decimal) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.UpdateIncome")
	defer span.End()

	if income.IsNegative() {
		return nil, &domain.ErrValidation{Field: "monthlyIncome", Message: "monthlyIncome must not be negative"}
	}
	if err := s.users.UpdateIncome(ctx, userID, income); err != nil {
		return nil, fmt.Errorf("update income: %w", err)
	}

	if s.health != nil {
		if _, err := s.health.Recalculate(ctx, userID); err != nil {
			s.logger.Error("health recalculation failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}
	return s.Me(ctx, userID)
}

// ============================================================
// Tokens
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) signAccessToken(userID string) (string, error) {
	now := s.now()
	claims := JWTClaims{
		Sub:  userID,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateAccessToken parses and verifies an access token.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}
