package auth

import (
	"context"
	"log/slog"

	"github.com/skycost/skycost/pkg/directory"
	"github.com/skycost/skycost/pkg/sessions"
)

// Flow ties the external authenticator, the directory, and the session
// service together into the login/logout sequence.
type Flow struct {
	verifier  CredentialVerifier
	directory *directory.Service
	sessions  *sessions.Service
}

// NewFlow creates a new login flow
func NewFlow(verifier CredentialVerifier, directoryService *directory.Service, sessionService *sessions.Service) *Flow {
	return &Flow{
		verifier:  verifier,
		directory: directoryService,
		sessions:  sessionService,
	}
}

// Login verifies the credentials and mints a session for the subject.
func (f *Flow) Login(ctx context.Context, username, password, ipAddress, userAgent string) (*sessions.Session, directory.Subject, error) {
	subjectID, err := f.verifier.Verify(ctx, username, password)
	if err != nil {
		slog.Info("Login failed", "username", username)
		return nil, directory.Subject{}, ErrBadCredentials
	}

	subject, err := f.directory.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, directory.Subject{}, err
	}

	session, err := f.sessions.CreateSession(ctx, subject.ID, ipAddress, userAgent)
	if err != nil {
		return nil, directory.Subject{}, err
	}

	slog.Info("Login succeeded", "subject_id", subject.ID, "role", subject.Role)
	return session, subject, nil
}

// Logout invalidates the session for the given token.
func (f *Flow) Logout(ctx context.Context, token string) error {
	return f.sessions.Invalidate(ctx, token)
}
