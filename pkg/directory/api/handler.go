package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skycost/skycost/pkg/auth"
	"github.com/skycost/skycost/pkg/directory"
)

// Handler handles HTTP requests for the subject directory
type Handler struct {
	service *directory.Service
}

// NewHandler creates a new directory handler
func NewHandler(service *directory.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the directory routes. Listing is limited to
// admin and readonly callers by the route-level role middleware; /me is
// open to any authenticated subject.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.RequireRole(directory.RoleAdmin, directory.RoleReadOnly)).Get("/", h.List)
	r.Get("/me", h.Me)
}

// List handles GET / and returns every subject in the directory
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.service.FindSubjects(r.Context())
	if err != nil {
		slog.Error("Failed to list subjects", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(subjects)
}

// MeResponse describes the calling subject and its current session
type MeResponse struct {
	Subject       directory.Subject `json:"subject"`
	Impersonating bool              `json:"impersonating"`
}

// Me handles GET /me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller := auth.SubjectFromContext(r.Context())
	if caller == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MeResponse{
		Subject:       caller.Subject,
		Impersonating: caller.Session.IsImpersonation(),
	})
}
