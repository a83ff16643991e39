package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/chatterbox/server/internal/model"
)

// MessageRepo defines the interface for message repository operations.
// Messages are append-only; there are no update or delete operations.
type MessageRepo interface {
	Create(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID, sender model.Sender, content string) (model.Message, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Message, error)
	ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Message, error)
}

type messageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo instance
func NewMessageRepo(db *sql.DB) MessageRepo {
	return &messageRepo{db: db}
}

// Create appends a message to the log
func (r *messageRepo) Create(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID, sender model.Sender, content string) (model.Message, error) {
	var sessionArg sql.NullString
	if sessionID != nil {
		sessionArg = sql.NullString{String: sessionID.String(), Valid: true}
	}

	var msg model.Message
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (content, sender, user_id, session_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, content, string(sender), userID, sessionArg).Scan(&idStr, &msg.CreatedAt)
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}

	msg.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.Message{}, fmt.Errorf("parse message ID: %w", err)
	}
	msg.Content = content
	msg.Sender = sender
	msg.UserID = userID
	msg.SessionID = sessionID

	return msg, nil
}

// ListBySession returns all messages of a session, oldest first.
// Creation timestamp is the ordering key, ties broken by id.
func (r *messageRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, sender, created_at, user_id, session_id
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListRecentByUser returns the user's newest messages up to limit, reordered
// oldest first (legacy context window: session-less history).
func (r *messageRepo) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, sender, created_at, user_id, session_id
		FROM messages
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query user messages: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Reverse newest-first into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		var idStr, sender, userIDStr string
		var sessionIDStr sql.NullString
		if err := rows.Scan(
			&idStr,
			&msg.Content,
			&sender,
			&msg.CreatedAt,
			&userIDStr,
			&sessionIDStr,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		var err error
		msg.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse message ID: %w", err)
		}
		msg.UserID, err = uuid.Parse(userIDStr)
		if err != nil {
			return nil, fmt.Errorf("parse user ID: %w", err)
		}
		msg.Sender = model.Sender(sender)
		if sessionIDStr.Valid {
			sid, err := uuid.Parse(sessionIDStr.String)
			if err != nil {
				return nil, fmt.Errorf("parse session ID: %w", err)
			}
			msg.SessionID = &sid
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
