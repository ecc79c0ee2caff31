package impersonate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/skycost/skycost/pkg/directory"
	"github.com/skycost/skycost/pkg/sessions"
)

// Service implements the admin "view as" flow on top of the session service:
// an admin session spawns a child session for a customer subject, and
// reverting the child restores (or re-issues) the admin session.
type Service struct {
	sessions  *sessions.Service
	directory *directory.Service
}

// NewService creates a new impersonation service
func NewService(sessionService *sessions.Service, directoryService *directory.Service) *Service {
	return &Service{
		sessions:  sessionService,
		directory: directoryService,
	}
}

// Begin creates an impersonation session for targetSubjectID on behalf of the
// admin session identified by adminToken.
//
// The admin token must resolve to an active, non-impersonation session whose
// subject holds the admin role; the target must exist, hold the customer
// role, and differ from the admin.
func (s *Service) Begin(ctx context.Context, adminToken string, targetSubjectID uuid.UUID, ipAddress, userAgent string) (*sessions.Session, error) {
	adminSession, err := s.sessions.Resolve(ctx, adminToken)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionInvalid) {
			return nil, ErrInvalidAdminSession
		}
		return nil, err
	}

	if adminSession.IsImpersonation() {
		slog.Warn("Attempted nested impersonation", "subject_id", adminSession.SubjectID)
		return nil, ErrNestedImpersonation
	}

	admin, err := s.directory.GetSubject(ctx, adminSession.SubjectID)
	if err != nil {
		if errors.Is(err, directory.ErrSubjectNotFound) {
			return nil, ErrInvalidAdminSession
		}
		return nil, err
	}
	if admin.Role != directory.RoleAdmin {
		slog.Warn("Non-admin attempted impersonation", "subject_id", admin.ID, "role", admin.Role)
		return nil, ErrNotAdmin
	}

	target, err := s.directory.GetSubject(ctx, targetSubjectID)
	if err != nil {
		return nil, err
	}
	if target.Role != directory.RoleCustomer {
		return nil, ErrTargetNotCustomer
	}
	if target.ID == admin.ID {
		return nil, ErrSelfImpersonation
	}

	child, err := s.sessions.CreateImpersonationSession(ctx, target.ID, adminToken, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	slog.Info("Impersonation started", "admin_id", admin.ID, "target_id", target.ID)
	return child, nil
}

// Revert ends the impersonation session identified by childToken and returns
// a session for the original admin subject.
//
// The child session is deactivated unconditionally. If the parent session is
// still valid it is touched and reused; otherwise a brand-new session is
// minted for the parent's subject without re-verifying credentials.
func (s *Service) Revert(ctx context.Context, childToken, ipAddress, userAgent string) (*sessions.Session, error) {
	child, err := s.sessions.Get(ctx, childToken)
	if err != nil {
		return nil, err
	}
	if !child.IsImpersonation() {
		return nil, ErrNotImpersonation
	}

	// The revert always ends the impersonation session, whatever the state
	// of the parent.
	if err := s.sessions.Invalidate(ctx, childToken); err != nil {
		return nil, err
	}

	parent, err := s.sessions.Resolve(ctx, child.ParentToken)
	if err == nil {
		touched, touchErr := s.sessions.Touch(ctx, parent.Token)
		if touchErr == nil {
			slog.Info("Impersonation reverted, admin session reused", "admin_id", touched.SubjectID)
			return touched, nil
		}
		if !errors.Is(touchErr, sessions.ErrSessionInvalid) {
			return nil, touchErr
		}
		// The parent was deactivated between resolve and touch; fall
		// through to minting a replacement.
	} else if !errors.Is(err, sessions.ErrSessionInvalid) {
		return nil, err
	}

	// Parent expired or inactive. Sessions are never physically erased, so
	// the record is still there to tell us whose session to re-issue.
	raw, err := s.sessions.Get(ctx, child.ParentToken)
	if err != nil {
		return nil, err
	}

	fresh, err := s.sessions.CreateSession(ctx, raw.SubjectID, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	slog.Info("Impersonation reverted, admin session re-issued", "admin_id", raw.SubjectID)
	return fresh, nil
}
