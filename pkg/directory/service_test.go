package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) *Service {
	return NewService(NewInMemoryRepository())
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{"readonly", RoleReadOnly, false},
		{"customer", RoleCustomer, false},
		{"root", "", true},
		{"", "", true},
		{"Admin", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidRole, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestCreateSubject(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		subject, err := service.CreateSubject(ctx, CreateSubjectParams{
			Username: "acme",
			Email:    "billing@acme.example.com",
			Name:     "Acme Corp",
			Role:     RoleCustomer,
		})
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, subject.ID)
		assert.Equal(t, "acme", subject.Username)
		assert.Equal(t, RoleCustomer, subject.Role)
		assert.False(t, subject.CreatedAt.IsZero())
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		_, err := service.CreateSubject(ctx, CreateSubjectParams{
			Username: "acme",
			Email:    "other@example.com",
			Role:     RoleCustomer,
		})
		assert.ErrorIs(t, err, ErrUsernameExists)
	})

	t.Run("InvalidRole", func(t *testing.T) {
		_, err := service.CreateSubject(ctx, CreateSubjectParams{
			Username: "someone",
			Email:    "someone@example.com",
			Role:     Role("root"),
		})
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("MissingUsername", func(t *testing.T) {
		_, err := service.CreateSubject(ctx, CreateSubjectParams{
			Email: "someone@example.com",
			Role:  RoleCustomer,
		})
		assert.Error(t, err)
	})
}

func TestGetSubject(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	created, err := service.CreateSubject(ctx, CreateSubjectParams{
		Username: "admin",
		Email:    "admin@example.com",
		Role:     RoleAdmin,
	})
	require.NoError(t, err)

	t.Run("ByID", func(t *testing.T) {
		got, err := service.GetSubject(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Username, got.Username)
	})

	t.Run("ByUsername", func(t *testing.T) {
		got, err := service.GetSubjectByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := service.GetSubject(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrSubjectNotFound)

		_, err = service.GetSubjectByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, ErrSubjectNotFound)
	})
}

func TestFindSubjects(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	for _, username := range []string{"charlie", "alice", "bob"} {
		_, err := service.CreateSubject(ctx, CreateSubjectParams{
			Username: username,
			Email:    username + "@example.com",
			Role:     RoleCustomer,
		})
		require.NoError(t, err)
	}

	subjects, err := service.FindSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 3)

	// Listing is ordered by username.
	assert.Equal(t, "alice", subjects[0].Username)
	assert.Equal(t, "bob", subjects[1].Username)
	assert.Equal(t, "charlie", subjects[2].Username)
}

func TestUpdateSubject(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	created, err := service.CreateSubject(ctx, CreateSubjectParams{
		Username: "acme",
		Email:    "billing@acme.example.com",
		Role:     RoleCustomer,
	})
	require.NoError(t, err)

	updated, err := service.UpdateSubject(ctx, UpdateSubjectParams{
		ID:    created.ID,
		Email: "accounts@acme.example.com",
		Name:  "Acme Corporation",
		Role:  RoleCustomer,
	})
	require.NoError(t, err)

	assert.Equal(t, "accounts@acme.example.com", updated.Email)
	assert.Equal(t, "Acme Corporation", updated.Name)
	assert.Equal(t, created.Username, updated.Username)

	t.Run("NotFound", func(t *testing.T) {
		_, err := service.UpdateSubject(ctx, UpdateSubjectParams{
			ID:    uuid.New(),
			Email: "x@example.com",
			Role:  RoleCustomer,
		})
		assert.ErrorIs(t, err, ErrSubjectNotFound)
	})
}
