package model

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// User represents a registered account
type User struct {
	ID           uuid.UUID
	Email        string
	Handle       string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// ChatSession represents one conversation thread. EndedAt is nil while the
// session is open; at most one open session exists per user.
type ChatSession struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	StartedAt time.Time
	EndedAt   *time.Time
}

// Message is one turn in a conversation. Messages are append-only; ordering
// within a session is (created_at, id).
type Message struct {
	ID        uuid.UUID
	Content   string
	Sender    Sender
	CreatedAt time.Time
	UserID    uuid.UUID
	SessionID *uuid.UUID
}
