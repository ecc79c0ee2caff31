package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTimeout matches the platform's default session timeout.
const DefaultIdleTimeout = 15 * time.Minute

// Service owns the session lifecycle: creation, validation, activity
// extension, and deactivation. A session moves from active to inactive
// exactly once and never back.
type Service struct {
	repo        Repository
	idleTimeout time.Duration
}

// NewService creates a new session service. A non-positive idleTimeout falls
// back to DefaultIdleTimeout.
func NewService(repo Repository, idleTimeout time.Duration) *Service {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Service{
		repo:        repo,
		idleTimeout: idleTimeout,
	}
}

// IdleTimeout returns the configured idle timeout.
func (s *Service) IdleTimeout() time.Duration {
	return s.idleTimeout
}

// CreateSession mints a fresh session for a subject after the caller has
// verified the subject's credentials.
func (s *Service) CreateSession(ctx context.Context, subjectID uuid.UUID, ipAddress, userAgent string) (*Session, error) {
	return s.create(ctx, subjectID, "", ipAddress, userAgent)
}

// CreateImpersonationSession mints a session for a subject on behalf of the
// admin session identified by parentToken. Role and nesting checks belong to
// the impersonation service; this only records the parent reference.
func (s *Service) CreateImpersonationSession(ctx context.Context, subjectID uuid.UUID, parentToken, ipAddress, userAgent string) (*Session, error) {
	if parentToken == "" {
		return nil, fmt.Errorf("parent token is required")
	}
	return s.create(ctx, subjectID, parentToken, ipAddress, userAgent)
}

func (s *Service) create(ctx context.Context, subjectID uuid.UUID, parentToken, ipAddress, userAgent string) (*Session, error) {
	if subjectID == uuid.Nil {
		return nil, fmt.Errorf("subject id is required")
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session, err := s.repo.Create(ctx, Session{
		Token:          token,
		SubjectID:      subjectID,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.idleTimeout),
		Active:         true,
		ParentToken:    parentToken,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Session created", "subject_id", subjectID, "impersonation", parentToken != "")
	return session, nil
}

// Get retrieves a session by token regardless of its state. Callers that need
// authentication semantics should use Validate or Resolve instead.
func (s *Service) Get(ctx context.Context, token string) (*Session, error) {
	return s.repo.GetByToken(ctx, token)
}

// Resolve returns the active session for a token, lazily deactivating it if
// either expiry window has elapsed. Unknown tokens, inactive sessions, and
// expired sessions all surface as ErrSessionInvalid so callers cannot tell
// which tokens ever existed.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	session, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}

	if !session.Active {
		return nil, ErrSessionInvalid
	}

	now := time.Now()
	if session.Expired(now) || session.Idle(now, s.idleTimeout) {
		// Lazy expiry: persist the transition before reporting the
		// session invalid. The reaper may have beaten us to it, which
		// is fine - the transition is one-way either way.
		if err := s.repo.Deactivate(ctx, token); err != nil && !errors.Is(err, ErrSessionNotFound) {
			slog.Error("Failed to deactivate expired session", "err", err)
		}
		return nil, ErrSessionInvalid
	}

	return session, nil
}

// Validate resolves a token to its subject. It does not extend the activity
// window; callers that want per-request extension call Touch explicitly.
func (s *Service) Validate(ctx context.Context, token string) (uuid.UUID, error) {
	session, err := s.Resolve(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	return session.SubjectID, nil
}

// Touch records activity on a session, pushing out both the idle window and
// the absolute deadline. Fails with ErrSessionInvalid unless the session is
// active and inside both windows.
func (s *Service) Touch(ctx context.Context, token string) (*Session, error) {
	now := time.Now()
	return s.repo.UpdateActivity(ctx, token, now, now.Add(-s.idleTimeout), now.Add(s.idleTimeout))
}

// Invalidate marks a session inactive. Repeated calls for a known token are
// no-ops; unknown tokens return ErrSessionNotFound.
func (s *Service) Invalidate(ctx context.Context, token string) error {
	if err := s.repo.Deactivate(ctx, token); err != nil {
		return err
	}
	slog.Debug("Session invalidated")
	return nil
}

// InvalidateAll marks every session owned by the subject inactive. Used on
// password reset and administrative lockout.
func (s *Service) InvalidateAll(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	count, err := s.repo.DeactivateAllBySubject(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	slog.Info("All subject sessions invalidated", "subject_id", subjectID, "count", count)
	return count, nil
}

// ListActiveSessions lists the subject's active sessions, most recently
// active first.
func (s *Service) ListActiveSessions(ctx context.Context, subjectID uuid.UUID) ([]Session, error) {
	return s.repo.ListActiveBySubject(ctx, subjectID)
}

// ListActiveSessionSummaries returns a device-management view of the
// subject's active sessions, marking the caller's own session.
func (s *Service) ListActiveSessionSummaries(ctx context.Context, subjectID uuid.UUID, currentToken string) ([]SessionSummary, error) {
	sessions, err := s.repo.ListActiveBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, len(sessions))
	for i, session := range sessions {
		summaries[i] = SessionSummary{
			Token:          session.Token,
			IPAddress:      session.IPAddress,
			UserAgent:      session.UserAgent,
			CreatedAt:      session.CreatedAt,
			LastActivityAt: session.LastActivityAt,
			ExpiresAt:      session.ExpiresAt,
			IsCurrent:      session.Token == currentToken,
		}
	}
	return summaries, nil
}

// Reap bulk-deactivates sessions past their absolute deadline and, separately,
// sessions idle longer than the idle timeout. Returns the two counts. Both
// sweeps are attempted even if the first fails.
func (s *Service) Reap(ctx context.Context) (expired, idle int64, err error) {
	now := time.Now()

	expired, expErr := s.repo.DeactivateExpired(ctx, now)
	idle, idleErr := s.repo.DeactivateIdle(ctx, now.Add(-s.idleTimeout))

	return expired, idle, errors.Join(expErr, idleErr)
}
