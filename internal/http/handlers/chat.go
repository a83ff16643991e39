package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chatterbox/server/internal/chat"
	"github.com/chatterbox/server/internal/middleware"
	"github.com/chatterbox/server/internal/model"
	"github.com/chatterbox/server/internal/repo"
)

// ChatHandler handles the authenticated conversation endpoints
type ChatHandler struct {
	chatService *chat.Service
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// sendMessageRequest is the request body for POST /chat/messages
type sendMessageRequest struct {
	Content   string  `json:"content"`
	SessionID *string `json:"session_id,omitempty"`
}

// messageResponse is the message object in API responses
type messageResponse struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	Sender    string  `json:"sender"`
	CreatedAt string  `json:"created_at"`
	UserID    string  `json:"user_id"`
	SessionID *string `json:"session_id,omitempty"`
}

// sessionResponse is the session object in API responses
type sessionResponse struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	StartedAt string            `json:"started_at"`
	EndedAt   *string           `json:"ended_at,omitempty"`
	Messages  []messageResponse `json:"messages,omitempty"`
}

func toMessageResponse(m model.Message) messageResponse {
	resp := messageResponse{
		ID:        m.ID.String(),
		Content:   m.Content,
		Sender:    string(m.Sender),
		CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
		UserID:    m.UserID.String(),
	}
	if m.SessionID != nil {
		sid := m.SessionID.String()
		resp.SessionID = &sid
	}
	return resp
}

func toSessionResponse(s model.ChatSession, messages []model.Message) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID.String(),
		UserID:    s.UserID.String(),
		StartedAt: s.StartedAt.Format(time.RFC3339Nano),
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.Format(time.RFC3339Nano)
		resp.EndedAt = &ended
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, toMessageResponse(m))
	}
	return resp
}

// HandleOpenSession handles POST /chat/sessions
func (h *ChatHandler) HandleOpenSession(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	session, err := h.chatService.OpenSession(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, repo.ErrSessionActive) {
			respondWithError(w, http.StatusConflict, "an active session already exists")
			return
		}
		log.Printf("open session failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "failed to open session")
		return
	}

	respondWithJSON(w, http.StatusCreated, toSessionResponse(session, nil))
}

// HandleEndSession handles POST /chat/sessions/{id}/end
func (h *ChatHandler) HandleEndSession(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusNotFound, "session not found")
		return
	}

	session, err := h.chatService.EndSession(r.Context(), user.ID, sessionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("end session failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "failed to end session")
		return
	}

	respondWithJSON(w, http.StatusOK, toSessionResponse(session, nil))
}

// HandleSessionMessages handles GET /chat/sessions/{id}/messages
func (h *ChatHandler) HandleSessionMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusNotFound, "session not found")
		return
	}

	messages, err := h.chatService.History(r.Context(), user.ID, sessionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("session history failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	respondWithJSON(w, http.StatusOK, out)
}

// HandleActiveSession handles GET /chat/sessions/active. Responds with the
// open session including its messages, or a JSON null when none is open.
func (h *ChatHandler) HandleActiveSession(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	session, messages, err := h.chatService.ActiveSession(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithJSON(w, http.StatusOK, nil)
			return
		}
		log.Printf("active session failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "failed to load active session")
		return
	}

	respondWithJSON(w, http.StatusOK, toSessionResponse(session, messages))
}

// HandleSendMessage handles POST /chat/messages
func (h *ChatHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondWithError(w, http.StatusBadRequest, "content is required")
		return
	}

	var sessionID *uuid.UUID
	if req.SessionID != nil && *req.SessionID != "" {
		sid, err := uuid.Parse(*req.SessionID)
		if err != nil {
			respondWithError(w, http.StatusNotFound, "session not found")
			return
		}
		sessionID = &sid
	}

	botMsg, err := h.chatService.Send(r.Context(), user.ID, req.Content, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, chat.ErrProcessingFailed):
			// Generic message; upstream detail stays in the server log
			respondWithError(w, http.StatusBadGateway, "failed to process message")
		default:
			log.Printf("send message failed: %v", err)
			respondWithError(w, http.StatusInternalServerError, "failed to process message")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, toMessageResponse(botMsg))
}
