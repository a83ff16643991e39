package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/chatterbox/server/internal/model"
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	Create(ctx context.Context, email, handle, passwordHash string) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	TouchUpdatedAt(ctx context.Context, id uuid.UUID) error
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const uniqueViolation = "23505"

// Create inserts a new user. Duplicate email or handle is reported as
// ErrEmailTaken / ErrHandleTaken based on the violated constraint.
func (r *userRepo) Create(ctx context.Context, email, handle, passwordHash string) (model.User, error) {
	query := `
		INSERT INTO users (email, handle, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, is_active, created_at
	`

	var user model.User
	var idStr string
	err := r.db.QueryRowContext(ctx, query, email, handle, passwordHash).Scan(
		&idStr,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == "users_handle_key" {
				return model.User{}, ErrHandleTaken
			}
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}

	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.User{}, fmt.Errorf("parse user ID: %w", err)
	}
	user.Email = email
	user.Handle = handle
	user.PasswordHash = passwordHash

	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return r.getBy(ctx, "id = $1", id.String())
}

// GetByEmail retrieves a user by email
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *userRepo) getBy(ctx context.Context, where, arg string) (model.User, error) {
	query := `
		SELECT id, email, handle, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE ` + where

	var user model.User
	var idStr string
	var updatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&idStr,
		&user.Email,
		&user.Handle,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("query user: %w", err)
	}

	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.User{}, fmt.Errorf("parse user ID: %w", err)
	}
	if updatedAt.Valid {
		user.UpdatedAt = &updatedAt.Time
	}

	return user, nil
}

// TouchUpdatedAt stamps updated_at = now() (recorded on login).
func (r *userRepo) TouchUpdatedAt(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("touch updated_at: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
