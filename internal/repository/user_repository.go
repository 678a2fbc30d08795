package repository

import (
	"context"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// UserRepository defines account persistence. Accounts live only in the
// relational store.
type UserRepository interface {
	// Create inserts a user and fills UserID and CreatedAt.
	// Returns domain.ErrAlreadyExists if the email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByEmail looks up a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByID looks up a user by id.
	GetByID(ctx context.Context, userID int64) (*domain.User, error)

	// UpdateLastLogin stamps the user's last successful login.
	UpdateLastLogin(ctx context.Context, userID int64) error
}
