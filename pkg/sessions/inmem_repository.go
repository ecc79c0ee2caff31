package sessions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu        sync.RWMutex
	byToken   map[string]*Session
	bySubject map[uuid.UUID][]string // subjectID -> tokens, in creation order
}

// NewInMemoryRepository creates a new in-memory session repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byToken:   make(map[string]*Session),
		bySubject: make(map[uuid.UUID][]string),
	}
}

// Create persists a new session
func (r *InMemoryRepository) Create(ctx context.Context, session Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byToken[session.Token]; exists {
		return nil, fmt.Errorf("session token already exists")
	}

	stored := session
	r.byToken[stored.Token] = &stored
	r.bySubject[stored.SubjectID] = append(r.bySubject[stored.SubjectID], stored.Token)

	out := stored
	return &out, nil
}

// GetByToken retrieves a session by token, active or not
func (r *InMemoryRepository) GetByToken(ctx context.Context, token string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byToken[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := *session
	return &out, nil
}

// ListBySubject lists all sessions owned by a subject
func (r *InMemoryRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := r.bySubject[subjectID]
	sessions := make([]Session, 0, len(tokens))
	for _, token := range tokens {
		sessions = append(sessions, *r.byToken[token])
	}
	return sessions, nil
}

// ListActiveBySubject lists the subject's currently active sessions
func (r *InMemoryRepository) ListActiveBySubject(ctx context.Context, subjectID uuid.UUID) ([]Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []Session
	for _, token := range r.bySubject[subjectID] {
		session := r.byToken[token]
		if session.Active {
			sessions = append(sessions, *session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivityAt.After(sessions[j].LastActivityAt)
	})
	return sessions, nil
}

// UpdateActivity extends the activity and expiry clocks of a still-valid session
func (r *InMemoryRepository) UpdateActivity(ctx context.Context, token string, now, idleCutoff, expiresAt time.Time) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byToken[token]
	if !ok {
		return nil, ErrSessionInvalid
	}
	// Same condition as the SQL implementation: the extension applies only
	// while the session is active and inside both windows.
	if !session.Active || now.After(session.ExpiresAt) || session.LastActivityAt.Before(idleCutoff) {
		return nil, ErrSessionInvalid
	}

	session.LastActivityAt = now
	session.ExpiresAt = expiresAt

	out := *session
	return &out, nil
}

// Deactivate marks a session inactive; idempotent for known tokens
func (r *InMemoryRepository) Deactivate(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byToken[token]
	if !ok {
		return ErrSessionNotFound
	}
	session.Active = false
	return nil
}

// DeactivateAllBySubject marks every session owned by the subject inactive
func (r *InMemoryRepository) DeactivateAllBySubject(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, token := range r.bySubject[subjectID] {
		session := r.byToken[token]
		if session.Active {
			session.Active = false
			count++
		}
	}
	return count, nil
}

// DeactivateExpired bulk-deactivates active sessions past their absolute deadline
func (r *InMemoryRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, session := range r.byToken {
		if session.Active && session.ExpiresAt.Before(now) {
			session.Active = false
			count++
		}
	}
	return count, nil
}

// DeactivateIdle bulk-deactivates active sessions with no activity since cutoff
func (r *InMemoryRepository) DeactivateIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, session := range r.byToken {
		if session.Active && session.LastActivityAt.Before(cutoff) {
			session.Active = false
			count++
		}
	}
	return count, nil
}
