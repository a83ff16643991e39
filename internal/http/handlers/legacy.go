package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chatterbox/server/internal/chat"
)

// LegacyHandler serves the superseded session-less surface. It operates on a
// raw user id with no authentication and no session invariant, and is kept
// separate from the authenticated routes.
type LegacyHandler struct {
	chatService *chat.Service
}

// NewLegacyHandler creates a new legacy handler
func NewLegacyHandler(chatService *chat.Service) *LegacyHandler {
	return &LegacyHandler{chatService: chatService}
}

// legacySendRequest is the request body for POST /chat/send
type legacySendRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// HandleSend handles POST /chat/send
func (h *LegacyHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req legacySendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondWithError(w, http.StatusBadRequest, "content is required")
		return
	}

	botMsg, err := h.chatService.SendLegacy(r.Context(), userID, req.Content)
	if err != nil {
		if errors.Is(err, chat.ErrProcessingFailed) {
			respondWithError(w, http.StatusBadGateway, "failed to process message")
			return
		}
		log.Printf("legacy send failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	respondWithJSON(w, http.StatusOK, toMessageResponse(botMsg))
}

// HandleHistory handles GET /chat/history/{user_id}
func (h *LegacyHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	messages, err := h.chatService.UserHistory(r.Context(), userID, limit)
	if err != nil {
		log.Printf("legacy history failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	respondWithJSON(w, http.StatusOK, out)
}
