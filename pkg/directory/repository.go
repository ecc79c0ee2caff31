package directory

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for subject data access
type Repository interface {
	// Create a new subject
	Create(ctx context.Context, params CreateSubjectParams) (Subject, error)

	// Get a subject by ID
	GetByID(ctx context.Context, id uuid.UUID) (Subject, error)

	// Get a subject by username
	GetByUsername(ctx context.Context, username string) (Subject, error)

	// List all subjects
	List(ctx context.Context) ([]Subject, error)

	// Update a subject's mutable fields
	Update(ctx context.Context, params UpdateSubjectParams) (Subject, error)
}
