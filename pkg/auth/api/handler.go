package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/skycost/skycost/pkg/auth"
	"github.com/skycost/skycost/pkg/directory"
	"github.com/skycost/skycost/pkg/sessions"
)

// Handler handles HTTP requests for login and logout
type Handler struct {
	flow *auth.Flow
}

// NewHandler creates a new auth handler
func NewHandler(flow *auth.Flow) *Handler {
	return &Handler{
		flow: flow,
	}
}

// RegisterRoutes registers the unauthenticated auth routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
}

// RegisterAuthenticatedRoutes registers routes that require a valid session
func (h *Handler) RegisterAuthenticatedRoutes(r chi.Router) {
	r.Get("/check", h.Check)
}

// LoginRequest is the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful login
type LoginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Subject   directory.Subject `json:"subject"`
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	session, subject, err := h.flow.Login(r.Context(), req.Username, req.Password, auth.ClientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) || errors.Is(err, directory.ErrSubjectNotFound) {
			http.Error(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		slog.Error("Login failed", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Subject:   subject,
	})
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "Authorization header required", http.StatusUnauthorized)
		return
	}

	if err := h.flow.Logout(r.Context(), token); err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			// An unknown token is already as logged out as it gets.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		slog.Error("Logout failed", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Check handles GET /check; reaching it through the middleware means the
// caller is authenticated.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "authenticated"})
}
