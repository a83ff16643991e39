package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/chatterbox/server/internal/auth"
	"github.com/chatterbox/server/internal/middleware"
	"github.com/chatterbox/server/internal/model"
	"github.com/chatterbox/server/internal/repo"
)

const minPasswordLen = 8

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *auth.AuthService
	cookieSecure bool
	accessTTL    time.Duration
	refreshTTL   time.Duration
	loginLimiter *middleware.RateLimiter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService, cookieSecure bool, accessTTL, refreshTTL time.Duration) *AuthHandler {
	// IP rate limiter for credential guessing: 20 login attempts per 10 min
	return &AuthHandler{
		authService:  authService,
		cookieSecure: cookieSecure,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		loginLimiter: middleware.NewRateLimiter(10*time.Minute, 20),
	}
}

// registerRequest is the request body for POST /auth/register
type registerRequest struct {
	Email    string `json:"email"`
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// loginRequest is the request body for POST /auth/login
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the JSON response carrying a token pair
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	User         *userResponse `json:"user,omitempty"`
}

// userResponse is the public user view in API responses
type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Handle    string `json:"handle"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u *model.User) *userResponse {
	return &userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Handle:    u.Handle,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// setTokenCookies binds the token pair to HttpOnly Lax cookies whose
// max-age matches each token's lifetime.
func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessCookieName,
		Value:    access,
		Path:     "/",
		MaxAge:   int(h.accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     auth.RefreshCookieName,
		Value:    refresh,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{auth.AccessCookieName, auth.RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// HandleRegister handles POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Handle = strings.TrimSpace(req.Handle)

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		respondWithError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Handle) < 3 || len(req.Handle) > 50 {
		respondWithError(w, http.StatusBadRequest, "handle must be 3-50 characters")
		return
	}
	if len(req.Password) < minPasswordLen {
		respondWithError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Handle, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrEmailTaken):
			respondWithError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, repo.ErrHandleTaken):
			respondWithError(w, http.StatusConflict, "handle already in use")
		default:
			log.Printf("register failed: %v", err)
			respondWithError(w, http.StatusInternalServerError, "failed to register")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, toUserResponse(&user))
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.loginLimiter.Allow(middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, access, refresh, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// Uniform message regardless of which credential was wrong
		respondWithError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.setTokenCookies(w, access, refresh)
	respondWithJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		User:         toUserResponse(&user),
	})
}

// HandleLogout handles POST /auth/logout. Always succeeds; the refresh
// token, if presented, is revoked.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.RefreshCookieName); err == nil {
		h.authService.Logout(cookie.Value)
	}
	h.clearTokenCookies(w)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe handles GET /auth/me (protected)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	respondWithJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleRefresh handles POST /auth/refresh. Authentication is the refresh
// cookie itself; the presented token is rotated out.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	access, refresh, err := h.authService.Refresh(r.Context(), cookie.Value)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	h.setTokenCookies(w, access, refresh)
	respondWithJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	})
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
