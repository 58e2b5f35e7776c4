package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
	"github.com/coffee-export/export-manager/internal/shared"
)

// MinPasswordLength applies to newly registered accounts.
const MinPasswordLength = 8

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	validate *validator.Validate
	clock    shared.Clock
}

// NewService constructs a new Service.
func NewService(repo Repository, clock shared.Clock) *Service {
	return &Service{repo: repo, validate: httpx.NewValidator(), clock: clock}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, req SignInRequest) (*User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, httpx.FromValidator(err)
	}
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Register creates an active account with a bcrypt hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	verr := &httpx.ValidationError{}
	if err := s.validate.Var(email, "required,email"); err != nil {
		verr.Add("email", "must be a valid email address")
	}
	if len(password) < MinPasswordLength {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	now := s.clock.Now()
	user := User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}
