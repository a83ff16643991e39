package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chatterbox/server/internal/auth"
	"github.com/chatterbox/server/internal/model"
)

type contextKey string

const userKey contextKey = "user"

// AuthMiddleware reads the access token cookie, verifies it, loads the user
// and attaches it to the request context. A missing carrier, a bad or
// expired token, and a token for a deleted or deactivated user all produce
// the same 401 response.
func AuthMiddleware(authService *auth.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.AccessCookieName)
			if err != nil || cookie.Value == "" {
				respondWithError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			user, err := authService.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the user attached to the request context (set by AuthMiddleware)
func GetUser(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	_ = json.NewEncoder(w).Encode(response)
}
