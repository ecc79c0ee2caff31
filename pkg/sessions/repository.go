package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for session data access.
//
// Implementations must keep the Active flag monotone: once a session has been
// observed inactive, no operation may flip it back to active. UpdateActivity
// is conditional for that reason - it applies only while the row is still
// active and inside both expiry windows, so a touch racing a deactivation can
// never resurrect the session.
type Repository interface {
	// Create persists a new session. The token must be unique across all
	// sessions ever issued.
	Create(ctx context.Context, session Session) (*Session, error)

	// GetByToken retrieves a session by token, active or not
	GetByToken(ctx context.Context, token string) (*Session, error)

	// ListBySubject lists all sessions owned by a subject
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]Session, error)

	// ListActiveBySubject lists the subject's currently active sessions
	ListActiveBySubject(ctx context.Context, subjectID uuid.UUID) ([]Session, error)

	// UpdateActivity sets last_activity_at to now and the absolute
	// deadline to expiresAt, but only while the session is still active,
	// unexpired at now, and has had activity after idleCutoff. Returns
	// ErrSessionInvalid otherwise.
	UpdateActivity(ctx context.Context, token string, now, idleCutoff, expiresAt time.Time) (*Session, error)

	// Deactivate marks a session inactive. Deactivating an already
	// inactive session is a no-op; unknown tokens return
	// ErrSessionNotFound.
	Deactivate(ctx context.Context, token string) error

	// DeactivateAllBySubject marks every session owned by the subject
	// inactive and returns the number of sessions affected.
	DeactivateAllBySubject(ctx context.Context, subjectID uuid.UUID) (int64, error)

	// DeactivateExpired bulk-deactivates active sessions whose absolute
	// deadline has passed and returns the affected count.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// DeactivateIdle bulk-deactivates active sessions with no activity
	// since cutoff and returns the affected count.
	DeactivateIdle(ctx context.Context, cutoff time.Time) (int64, error)
}
