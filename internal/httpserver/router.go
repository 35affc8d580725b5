package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"chatserver/internal/config"
	"chatserver/internal/domain"
	"chatserver/internal/presence"
	"chatserver/internal/security"
	"chatserver/internal/service"
)

// Deps carries everything the router needs. The stores behind the services
// differ per backend, so construction happens in main and the router only
// wires routes.
type Deps struct {
	Cfg      *config.Config
	Users    domain.UserRepository
	Tokens   *security.TokenService
	Registry *presence.Registry

	Auth     *service.AuthService
	Friends  *service.FriendService
	Messages *service.MessageService
	Calls    *service.CallService

	WSHandler http.HandlerFunc
}

// NewRouter constructs the main HTTP router and wires routes and middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"chatserver API","version":"1.0.0"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(d.Auth))
			r.Post("/login", handleLogin(d.Auth))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.Tokens, d.Users))

			r.Get("/auth/me", handleMe())

			r.Route("/friends", func(r chi.Router) {
				r.Get("/", handleListFriends(d.Friends))
				r.Get("/requests", handleListFriendRequests(d.Friends))
				r.Get("/status", handleFriendStatus(d.Friends))
				r.Post("/request", handleFriendRequest(d.Friends))
				r.Post("/respond", handleFriendRespond(d.Friends))
				r.Post("/repair", handleFriendRepair(d.Friends))
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", handleSendMessage(d.Messages))
				r.Get("/{friendID}", handleMessageHistory(d.Messages))
			})

			r.Route("/calls", func(r chi.Router) {
				r.Post("/", handleStartCall(d.Calls))
				r.Get("/", handleListCalls(d.Calls))
				r.Get("/{callID}", handleGetCall(d.Calls))
				r.Post("/{callID}/accept", handleAcceptCall(d.Calls))
				r.Post("/{callID}/end", handleEndCall(d.Calls))
			})

			r.Get("/webrtc/config", handleWebRTCConfig(d.Cfg))

			if d.Cfg.Debug {
				r.Get("/debug/online", handleDebugOnline(d.Registry))
			}

			// Uploads (implementation in separate file)
			r.Mount("/uploads", UploadRoutes(d.Cfg))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", d.WSHandler)

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain sentinels to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
