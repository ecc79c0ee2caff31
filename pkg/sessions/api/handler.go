package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/skycost/skycost/pkg/auth"
	"github.com/skycost/skycost/pkg/sessions"
)

// Handler handles HTTP requests for a subject's own sessions
type Handler struct {
	service *sessions.Service
}

// NewHandler creates a new sessions handler
func NewHandler(service *sessions.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the session routes; all of them require a
// valid session on the request.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/revoke", h.Revoke)
	r.Post("/revoke-all", h.RevokeAll)
}

// RevokeRequest is the body for POST /revoke
type RevokeRequest struct {
	Token string `json:"token"`
}

// List handles GET / and returns the caller's active sessions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller := auth.SubjectFromContext(r.Context())
	if caller == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summaries, err := h.service.ListActiveSessionSummaries(r.Context(), caller.Subject.ID, caller.Session.Token)
	if err != nil {
		slog.Error("Failed to list sessions", "subjectID", caller.Subject.ID, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

// Revoke handles POST /revoke; a subject may only revoke its own sessions
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	caller := auth.SubjectFromContext(r.Context())
	if caller == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req RevokeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	target, err := h.service.Get(r.Context(), req.Token)
	if err != nil || target.SubjectID != caller.Subject.ID {
		// Report foreign tokens as not found rather than confirm they exist.
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	if err := h.service.Invalidate(r.Context(), req.Token); err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to revoke session", "subjectID", caller.Subject.ID, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RevokeAll handles POST /revoke-all and deactivates every session of
// the caller, the current one included.
func (h *Handler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	caller := auth.SubjectFromContext(r.Context())
	if caller == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	count, err := h.service.InvalidateAll(r.Context(), caller.Subject.ID)
	if err != nil {
		slog.Error("Failed to revoke sessions", "subjectID", caller.Subject.ID, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"revoked": count})
}
