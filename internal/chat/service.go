package chat

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/chatterbox/server/internal/model"
	"github.com/chatterbox/server/internal/repo"
)

const (
	defaultTemperature = 0.7
	// legacyContextLimit is the number of recent messages used as context on
	// the session-less legacy surface.
	legacyContextLimit = 10
)

// ErrProcessingFailed is the single caller-visible condition for an upstream
// model failure. The user's message is already persisted when it occurs.
var ErrProcessingFailed = errors.New("failed to process message")

// Service orchestrates conversations: it owns the session lifecycle, the
// message log and the exchange with the model endpoint.
type Service struct {
	sessionRepo repo.SessionRepo
	messageRepo repo.MessageRepo
	client      ModelClient
	maxTokens   int

	// One exchange at a time per session (per user on the legacy surface):
	// without this, concurrent sends interleave context windows and break
	// the total message order.
	sendLocks *keyedMutex
}

// NewService creates a new conversation service. maxTokens <= 0 leaves the
// model's response length uncapped.
func NewService(sessionRepo repo.SessionRepo, messageRepo repo.MessageRepo, client ModelClient, maxTokens int) *Service {
	return &Service{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		client:      client,
		maxTokens:   maxTokens,
		sendLocks:   newKeyedMutex(),
	}
}

// OpenSession opens a new chat session for the user.
// Returns repo.ErrSessionActive if the user already has one open.
func (s *Service) OpenSession(ctx context.Context, userID uuid.UUID) (model.ChatSession, error) {
	return s.sessionRepo.CreateActive(ctx, userID)
}

// EndSession closes the session. Closing an already-closed session is a
// no-op returning the closed session. Sessions of other users are reported
// as repo.ErrNotFound.
func (s *Service) EndSession(ctx context.Context, userID, sessionID uuid.UUID) (model.ChatSession, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return model.ChatSession{}, err
	}
	return s.sessionRepo.Close(ctx, sessionID)
}

// History returns the session's messages oldest-first.
func (s *Service) History(ctx context.Context, userID, sessionID uuid.UUID) ([]model.Message, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListBySession(ctx, sessionID)
}

// ActiveSession returns the user's open session with its messages, or
// repo.ErrNotFound when no session is open.
func (s *Service) ActiveSession(ctx context.Context, userID uuid.UUID) (model.ChatSession, []model.Message, error) {
	session, err := s.sessionRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		return model.ChatSession{}, nil, err
	}
	messages, err := s.messageRepo.ListBySession(ctx, session.ID)
	if err != nil {
		return model.ChatSession{}, nil, err
	}
	return session, messages, nil
}

// Send runs one exchange: persist the user message, assemble the context
// window from session history, invoke the model, persist and return the bot
// reply. A failure after the first step leaves the user message durably
// recorded with no reply; it is not rolled back.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, content string, sessionID *uuid.UUID) (model.Message, error) {
	lockKey := userID
	if sessionID != nil {
		if _, err := s.ownedSession(ctx, userID, *sessionID); err != nil {
			return model.Message{}, err
		}
		lockKey = *sessionID
	}

	s.sendLocks.lock(lockKey)
	defer s.sendLocks.unlock(lockKey)

	// Step 1: the user's input is persisted before anything can fail
	userMsg, err := s.messageRepo.Create(ctx, userID, sessionID, model.SenderUser, content)
	if err != nil {
		return model.Message{}, fmt.Errorf("persist user message: %w", err)
	}

	// Step 2: context assembly
	var history []model.Message
	if sessionID != nil {
		history, err = s.messageRepo.ListBySession(ctx, *sessionID)
	} else {
		history, err = s.messageRepo.ListRecentByUser(ctx, userID, legacyContextLimit)
	}
	if err != nil {
		return model.Message{}, fmt.Errorf("load history: %w", err)
	}
	window := buildContext(history, userMsg)

	// Step 3: model invocation; no retry at this layer
	reply, err := s.client.Complete(ctx, window, defaultTemperature, s.maxTokens)
	if err != nil {
		log.Printf("model call failed for user %s: %v", userID, err)
		return model.Message{}, ErrProcessingFailed
	}

	// Step 4: the bot reply joins the log with the same user/session
	botMsg, err := s.messageRepo.Create(ctx, userID, sessionID, model.SenderBot, reply)
	if err != nil {
		return model.Message{}, fmt.Errorf("persist bot message: %w", err)
	}

	return botMsg, nil
}

// SendLegacy is the superseded session-less surface: context is the user's
// last messages regardless of session.
func (s *Service) SendLegacy(ctx context.Context, userID uuid.UUID, content string) (model.Message, error) {
	return s.Send(ctx, userID, content, nil)
}

// UserHistory returns the user's newest messages up to limit in
// chronological order (legacy surface).
func (s *Service) UserHistory(ctx context.Context, userID uuid.UUID, limit int) ([]model.Message, error) {
	return s.messageRepo.ListRecentByUser(ctx, userID, limit)
}

// ownedSession loads the session and hides other users' sessions behind
// repo.ErrNotFound.
func (s *Service) ownedSession(ctx context.Context, userID, sessionID uuid.UUID) (model.ChatSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return model.ChatSession{}, err
	}
	if session.UserID != userID {
		return model.ChatSession{}, repo.ErrNotFound
	}
	return session, nil
}
