package repo

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when the email unique constraint is violated.
	ErrEmailTaken = errors.New("email already registered")
	// ErrHandleTaken is returned when the handle unique constraint is violated.
	ErrHandleTaken = errors.New("handle already in use")
	// ErrSessionActive is returned when the user already has an open chat session.
	ErrSessionActive = errors.New("user already has an active session")
)
