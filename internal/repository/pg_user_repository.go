package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// Compile-time interface verification.
var _ UserRepository = (*PgUserRepository)(nil)

const userColumns = `user_id, name, email, password_hash, role, last_login, created_at`

// PgUserRepository is a PostgreSQL implementation of UserRepository.
type PgUserRepository struct {
	db DBTX
}

// NewPgUserRepository creates a new PostgreSQL user repository.
func NewPgUserRepository(db DBTX) *PgUserRepository {
	return &PgUserRepository{db: db}
}

// Create inserts a user. The email is normalized before it is stored.
func (r *PgUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.NewValidationError("user", "user cannot be nil")
	}
	user.Email = domain.NormalizeEmail(user.Email)
	user.Name = strings.TrimSpace(user.Name)
	if user.Email == "" {
		return domain.NewValidationError("email", "is required")
	}
	if user.PasswordHash == "" {
		return domain.NewValidationError("password", "is required")
	}
	if user.Role == "" {
		user.Role = domain.DefaultRole
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, created_at`,
		user.Name, user.Email, user.PasswordHash, user.Role,
	).Scan(&user.UserID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewAlreadyExistsError("user", user.Email)
		}
		return storeError("create_user", err)
	}
	return nil
}

// GetByEmail looks up a user by normalized email.
func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.NewValidationError("email", "is required")
	}

	var u domain.User
	err := pgxscan.Get(ctx, r.db, &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, domain.NewNotFoundError("user", email)
		}
		return nil, storeError("get_user", err)
	}
	return &u, nil
}

// GetByID looks up a user by id.
func (r *PgUserRepository) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	var u domain.User
	err := pgxscan.Get(ctx, r.db, &u, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, domain.NewNotFoundError("user", strconv.FormatInt(userID, 10))
		}
		return nil, storeError("get_user", err)
	}
	return &u, nil
}

// UpdateLastLogin stamps the user's last successful login.
func (r *PgUserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE user_id = $1`, userID)
	if err != nil {
		return storeError("update_last_login", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("user", strconv.FormatInt(userID, 10))
	}
	return nil
}
