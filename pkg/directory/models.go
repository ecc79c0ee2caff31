package directory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of roles the platform knows about.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleReadOnly Role = "readonly"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleReadOnly, RoleCustomer:
		return true
	}
	return false
}

// ParseRole converts a stored role name into a Role.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return role, nil
}

// Subject represents an authenticated principal in the directory.
type Subject struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// CreateSubjectParams contains parameters for creating a new subject
type CreateSubjectParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Role     Role   `json:"role"`
}

// UpdateSubjectParams contains parameters for updating a subject
type UpdateSubjectParams struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name,omitempty"`
	Role  Role      `json:"role"`
}
