package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu       sync.RWMutex
	subjects map[uuid.UUID]Subject
	byName   map[string]uuid.UUID
}

// NewInMemoryRepository creates a new in-memory subject repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		subjects: make(map[uuid.UUID]Subject),
		byName:   make(map[string]uuid.UUID),
	}
}

// Create creates a new subject
func (r *InMemoryRepository) Create(ctx context.Context, params CreateSubjectParams) (Subject, error) {
	if !params.Role.Valid() {
		return Subject{}, ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[params.Username]; exists {
		return Subject{}, ErrUsernameExists
	}

	now := time.Now()
	subject := Subject{
		ID:             uuid.New(),
		Username:       params.Username,
		Email:          params.Email,
		Name:           params.Name,
		Role:           params.Role,
		CreatedAt:      now,
		LastModifiedAt: now,
	}

	r.subjects[subject.ID] = subject
	r.byName[subject.Username] = subject.ID
	return subject, nil
}

// GetByID gets a subject by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subject, ok := r.subjects[id]
	if !ok {
		return Subject{}, ErrSubjectNotFound
	}
	return subject, nil
}

// GetByUsername gets a subject by username
func (r *InMemoryRepository) GetByUsername(ctx context.Context, username string) (Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[username]
	if !ok {
		return Subject{}, ErrSubjectNotFound
	}
	return r.subjects[id], nil
}

// List lists all subjects ordered by username
func (r *InMemoryRepository) List(ctx context.Context) ([]Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subjects := make([]Subject, 0, len(r.subjects))
	for _, subject := range r.subjects {
		subjects = append(subjects, subject)
	}
	sort.Slice(subjects, func(i, j int) bool {
		return subjects[i].Username < subjects[j].Username
	})
	return subjects, nil
}

// Update updates a subject's mutable fields
func (r *InMemoryRepository) Update(ctx context.Context, params UpdateSubjectParams) (Subject, error) {
	if !params.Role.Valid() {
		return Subject{}, ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	subject, ok := r.subjects[params.ID]
	if !ok {
		return Subject{}, ErrSubjectNotFound
	}

	subject.Email = params.Email
	subject.Name = params.Name
	subject.Role = params.Role
	subject.LastModifiedAt = time.Now()

	r.subjects[subject.ID] = subject
	return subject, nil
}
