package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/chatterbox/server/internal/auth"
	"github.com/chatterbox/server/internal/http/handlers"
	"github.com/chatterbox/server/internal/middleware"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	legacyHandler *handlers.LegacyHandler,
	authService *auth.AuthService,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Post("/refresh", authHandler.HandleRefresh)

		// Protected
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))
			r.Get("/me", authHandler.HandleMe)
		})
	})

	r.Route("/chat", func(r chi.Router) {
		// Protected conversation surface
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))
			r.Post("/sessions", chatHandler.HandleOpenSession)
			r.Get("/sessions/active", chatHandler.HandleActiveSession)
			r.Post("/sessions/{id}/end", chatHandler.HandleEndSession)
			r.Get("/sessions/{id}/messages", chatHandler.HandleSessionMessages)
			r.Post("/messages", chatHandler.HandleSendMessage)
		})

		// Superseded session-less surface, unauthenticated
		r.Post("/send", legacyHandler.HandleSend)
		r.Get("/history/{user_id}", legacyHandler.HandleHistory)
	})

	return r
}
