package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrBadCredentials is returned when a username/password pair does not verify.
var ErrBadCredentials = errors.New("invalid username or password")

// CredentialVerifier turns a username/password pair into a verified subject
// identity. Verification itself (password storage, hashing, lockout) lives
// outside this codebase; deployments plug in their authenticator here.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (uuid.UUID, error)
}

// StaticVerifier verifies against a fixed username/password map and is meant
// for demos and tests only.
type StaticVerifier struct {
	passwords map[string]string
	subjects  map[string]uuid.UUID
}

// NewStaticVerifier creates an empty static verifier.
func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{
		passwords: make(map[string]string),
		subjects:  make(map[string]uuid.UUID),
	}
}

// Register adds a username/password pair resolving to subjectID.
func (v *StaticVerifier) Register(username, password string, subjectID uuid.UUID) {
	v.passwords[username] = password
	v.subjects[username] = subjectID
}

// Verify implements CredentialVerifier
func (v *StaticVerifier) Verify(ctx context.Context, username, password string) (uuid.UUID, error) {
	want, ok := v.passwords[username]
	if !ok || want != password {
		return uuid.Nil, ErrBadCredentials
	}
	return v.subjects[username], nil
}
