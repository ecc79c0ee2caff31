package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/skycost/skycost/pkg/directory"
	"github.com/skycost/skycost/pkg/sessions"
)

type contextKey string

const subjectContextKey = contextKey("auth_subject")

// AuthSubject is the per-request authentication result: the acting subject
// and the session that authenticated it.
type AuthSubject struct {
	Subject directory.Subject
	Session *sessions.Session
}

// SubjectFromContext returns the authenticated subject stored by the
// middleware, or nil outside an authenticated request.
func SubjectFromContext(ctx context.Context) *AuthSubject {
	if authSubject, ok := ctx.Value(subjectContextKey).(*AuthSubject); ok {
		return authSubject
	}
	return nil
}

// TokenFromRequest extracts the bearer token from the Authorization header.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Middleware authenticates requests by session token and loads the acting
// subject into the request context.
type Middleware struct {
	sessions  *sessions.Service
	directory *directory.Service
}

// NewMiddleware creates the authentication middleware
func NewMiddleware(sessionService *sessions.Service, directoryService *directory.Service) *Middleware {
	return &Middleware{
		sessions:  sessionService,
		directory: directoryService,
	}
}

// Authenticate validates the bearer token, touches the session so activity
// extends the idle window on every authenticated request, and stores the
// subject in the context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		session, err := m.sessions.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, sessions.ErrSessionInvalid) {
				http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
				return
			}
			slog.Error("Failed to resolve session", "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		subject, err := m.directory.GetSubject(r.Context(), session.SubjectID)
		if err != nil {
			slog.Error("Failed to load subject for session", "subject_id", session.SubjectID, "err", err)
			http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
			return
		}

		// Validation is deliberately side-effect free; the per-request
		// activity extension happens here instead. Losing the race with
		// a concurrent deactivation means the session is gone.
		touched, err := m.sessions.Touch(r.Context(), token)
		if err != nil {
			if errors.Is(err, sessions.ErrSessionInvalid) {
				http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
				return
			}
			slog.Error("Failed to touch session", "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), subjectContextKey, &AuthSubject{
			Subject: subject,
			Session: touched,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose subject holds none of the
// given roles.
func RequireRole(roles ...directory.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authSubject := SubjectFromContext(r.Context())
			if authSubject == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if authSubject.Subject.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}
