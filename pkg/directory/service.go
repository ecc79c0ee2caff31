package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Service provides subject and role lookups for the rest of the platform.
// Authorization decisions are made by callers against the returned Role.
type Service struct {
	repo Repository
}

// NewService creates a new directory service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// CreateSubject creates a new subject with the given role
func (s *Service) CreateSubject(ctx context.Context, params CreateSubjectParams) (Subject, error) {
	if params.Username == "" {
		return Subject{}, fmt.Errorf("username is required")
	}
	if params.Email == "" {
		return Subject{}, fmt.Errorf("email is required")
	}
	if !params.Role.Valid() {
		return Subject{}, ErrInvalidRole
	}

	subject, err := s.repo.Create(ctx, params)
	if err != nil {
		return Subject{}, err
	}
	slog.Info("Subject created", "subject_id", subject.ID, "username", subject.Username, "role", subject.Role)
	return subject, nil
}

// GetSubject retrieves a subject by ID
func (s *Service) GetSubject(ctx context.Context, id uuid.UUID) (Subject, error) {
	return s.repo.GetByID(ctx, id)
}

// GetSubjectByUsername retrieves a subject by username
func (s *Service) GetSubjectByUsername(ctx context.Context, username string) (Subject, error) {
	return s.repo.GetByUsername(ctx, username)
}

// FindSubjects lists all subjects
func (s *Service) FindSubjects(ctx context.Context) ([]Subject, error) {
	return s.repo.List(ctx)
}

// UpdateSubject updates a subject's mutable fields
func (s *Service) UpdateSubject(ctx context.Context, params UpdateSubjectParams) (Subject, error) {
	if params.Email == "" {
		return Subject{}, fmt.Errorf("email is required")
	}
	return s.repo.Update(ctx, params)
}
