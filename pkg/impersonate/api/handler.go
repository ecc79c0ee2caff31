package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/skycost/skycost/pkg/auth"
	"github.com/skycost/skycost/pkg/directory"
	"github.com/skycost/skycost/pkg/impersonate"
	"github.com/skycost/skycost/pkg/sessions"
)

// Handler handles HTTP requests for impersonation
type Handler struct {
	service *impersonate.Service
}

// NewHandler creates a new impersonation handler
func NewHandler(service *impersonate.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the impersonation routes. Begin is restricted to
// admins; revert is issued with the impersonation session itself, so it only
// needs an authenticated caller.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.RequireRole(directory.RoleAdmin)).Post("/impersonate", h.Begin)
	r.Post("/impersonate/revert", h.Revert)
}

// BeginRequest is the body for POST /impersonate
type BeginRequest struct {
	TargetID uuid.UUID `json:"target_id"`
}

// TokenResponse carries the session the caller should continue with
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Begin handles POST /impersonate
func (h *Handler) Begin(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "Authorization header required", http.StatusUnauthorized)
		return
	}

	var req BeginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TargetID == uuid.Nil {
		http.Error(w, "target_id is required", http.StatusBadRequest)
		return
	}

	session, err := h.service.Begin(r.Context(), token, req.TargetID, auth.ClientIP(r), r.UserAgent())
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

// Revert handles POST /impersonate/revert
func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "Authorization header required", http.StatusUnauthorized)
		return
	}

	session, err := h.service.Revert(r.Context(), token, auth.ClientIP(r), r.UserAgent())
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, impersonate.ErrInvalidAdminSession),
		errors.Is(err, impersonate.ErrNotAdmin):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, impersonate.ErrNestedImpersonation),
		errors.Is(err, impersonate.ErrTargetNotCustomer),
		errors.Is(err, impersonate.ErrSelfImpersonation),
		errors.Is(err, impersonate.ErrNotImpersonation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, directory.ErrSubjectNotFound),
		errors.Is(err, sessions.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error("Impersonation request failed", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
