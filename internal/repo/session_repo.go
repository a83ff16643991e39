package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/chatterbox/server/internal/model"
)

// SessionRepo defines the interface for chat session repository operations
type SessionRepo interface {
	CreateActive(ctx context.Context, userID uuid.UUID) (model.ChatSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.ChatSession, error)
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (model.ChatSession, error)
	Close(ctx context.Context, id uuid.UUID) (model.ChatSession, error)
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

// CreateActive opens a new session for the user. At most one open session per
// user: the check-then-insert runs inside a transaction serialized by an
// advisory lock on the user id, and the partial unique index on
// (user_id) WHERE ended_at IS NULL backs it at the storage layer.
// Returns ErrSessionActive if the user already has an open session.
func (r *sessionRepo) CreateActive(ctx context.Context, userID uuid.UUID) (model.ChatSession, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Advisory lock: serialize opens per user to avoid duplicate key on INSERT.
	// Blocks until we hold the lock; released on COMMIT/ROLLBACK.
	_, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(2, hashtext($1))`, userID.String())
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("advisory lock: %w", err)
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat_sessions WHERE user_id = $1 AND ended_at IS NULL
		)
	`, userID).Scan(&exists)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("check open session: %w", err)
	}
	if exists {
		return model.ChatSession{}, ErrSessionActive
	}

	var session model.ChatSession
	var idStr string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO chat_sessions (user_id)
		VALUES ($1)
		RETURNING id, started_at
	`, userID).Scan(&idStr, &session.StartedAt)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.ChatSession{}, fmt.Errorf("commit: %w", err)
	}

	session.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("parse session ID: %w", err)
	}
	session.UserID = userID

	return session, nil
}

// GetByID retrieves a session by ID
func (r *sessionRepo) GetByID(ctx context.Context, id uuid.UUID) (model.ChatSession, error) {
	return r.getBy(ctx, "id = $1", id.String())
}

// GetActiveByUser returns the user's open session, or ErrNotFound if none.
func (r *sessionRepo) GetActiveByUser(ctx context.Context, userID uuid.UUID) (model.ChatSession, error) {
	return r.getBy(ctx, "user_id = $1 AND ended_at IS NULL", userID.String())
}

func (r *sessionRepo) getBy(ctx context.Context, where, arg string) (model.ChatSession, error) {
	query := `
		SELECT id, user_id, started_at, ended_at
		FROM chat_sessions
		WHERE ` + where

	var session model.ChatSession
	var idStr, userIDStr string
	var endedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&idStr,
		&userIDStr,
		&session.StartedAt,
		&endedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ChatSession{}, ErrNotFound
		}
		return model.ChatSession{}, fmt.Errorf("query session: %w", err)
	}

	session.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("parse session ID: %w", err)
	}
	session.UserID, err = uuid.Parse(userIDStr)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("parse user ID: %w", err)
	}
	if endedAt.Valid {
		session.EndedAt = &endedAt.Time
	}

	return session, nil
}

// Close stamps ended_at for an open session. Closing an already-closed
// session is a no-op; the closed session is returned either way.
// Returns ErrNotFound if the session does not exist.
func (r *sessionRepo) Close(ctx context.Context, id uuid.UUID) (model.ChatSession, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE chat_sessions SET ended_at = now() WHERE id = $1 AND ended_at IS NULL
	`, id)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("close session: %w", err)
	}
	return r.GetByID(ctx, id)
}
