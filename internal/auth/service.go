package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/repository"
)

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)

// Session is a signed-in user with an access token.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// RegisterInput is a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Service registers and authenticates users.
type Service struct {
	users  repository.UserRepository
	tokens *TokenIssuer
	cost   int
	logger zerolog.Logger
}

// NewService creates an auth service.
func NewService(users repository.UserRepository, tokens *TokenIssuer, bcryptCost int, logger zerolog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		cost:   bcryptCost,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Tokens returns the issuer used to verify access tokens.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates a researcher account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	switch {
	case name == "":
		return nil, domain.NewValidationError("name", "is required")
	case !strings.Contains(email, "@"):
		return nil, domain.NewValidationError("email", "must be a valid email address")
	case len(in.Password) < MinPasswordLength:
		return nil, domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: domain.DefaultRole}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.UserID).Msg("user registered")
	return s.session(user)
}

// Login verifies credentials and stamps the last login time.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.UserID); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", user.UserID).Msg("failed to update last login")
	} else {
		now := time.Now().UTC()
		user.LastLogin = &now
	}
	return s.session(user)
}

// Profile returns the account of userID.
func (s *Service) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) session(user *domain.User) (*Session, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}
