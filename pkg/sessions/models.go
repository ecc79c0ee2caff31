package sessions

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a server-side session binding an opaque token to a
// subject. A session carries two expiry clocks: an absolute deadline
// (ExpiresAt) and an idle window measured from LastActivityAt.
type Session struct {
	Token          string    `json:"token"`
	SubjectID      uuid.UUID `json:"subject_id"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Active         bool      `json:"active"`

	// ParentToken references the admin session this session was minted
	// from. Set only on impersonation sessions; the parent does not know
	// about its children and is never owned by them.
	ParentToken string `json:"parent_token,omitempty"`
}

// Expired reports whether the absolute deadline has passed.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Idle reports whether the session has been inactive longer than idleTimeout.
func (s *Session) Idle(now time.Time, idleTimeout time.Duration) bool {
	return now.After(s.LastActivityAt.Add(idleTimeout))
}

// IsImpersonation reports whether this session was created by an admin
// viewing as another subject.
func (s *Session) IsImpersonation() bool {
	return s.ParentToken != ""
}

// SessionSummary is a simplified session view for listing
type SessionSummary struct {
	Token          string    `json:"token"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	IsCurrent      bool      `json:"is_current_session"`
}
