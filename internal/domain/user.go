package domain

import (
	"strings"
	"time"
)

// DefaultRole is assigned to newly registered users.
const DefaultRole = "researcher"

// User is an account stored only in the relational store.
type User struct {
	UserID       int64      `json:"user_id" db:"user_id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// NormalizeEmail case-folds an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
