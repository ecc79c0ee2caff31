package sessions

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	dbName := "skycost_db"
	dbUser := "skycost"
	dbPassword := "pwd"

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("../../migrations", "skycost_db.sql")),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// createTestSubject inserts a subject row to satisfy the sessions foreign key.
func createTestSubject(t *testing.T, pool *pgxpool.Pool, username string) uuid.UUID {
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO subjects (username, email, role) VALUES ($1, $2, 'customer') RETURNING id`,
		username, username+"@example.com",
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func newTestSession(t *testing.T, subjectID uuid.UUID, lastActivity, expiresAt time.Time) Session {
	token, err := generateToken()
	require.NoError(t, err)

	return Session{
		Token:          token,
		SubjectID:      subjectID,
		IPAddress:      "10.0.0.1",
		UserAgent:      "test-agent",
		CreatedAt:      lastActivity,
		LastActivityAt: lastActivity,
		ExpiresAt:      expiresAt,
		Active:         true,
	}
}

func TestPostgresSessionRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPostgresRepository(pool)
	subjectID := createTestSubject(t, pool, "roundtrip")

	now := time.Now().UTC().Truncate(time.Microsecond)
	created, err := repo.Create(ctx, newTestSession(t, subjectID, now, now.Add(time.Hour)))
	require.NoError(t, err)
	assert.True(t, created.Active)
	assert.Empty(t, created.ParentToken)

	got, err := repo.GetByToken(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.Token, got.Token)
	assert.Equal(t, subjectID, got.SubjectID)
	assert.Equal(t, "10.0.0.1", got.IPAddress)
	assert.WithinDuration(t, now, got.LastActivityAt, time.Millisecond)

	t.Run("UnknownToken", func(t *testing.T) {
		_, err := repo.GetByToken(ctx, "no-such-token")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("ParentTokenPersists", func(t *testing.T) {
		child := newTestSession(t, subjectID, now, now.Add(time.Hour))
		child.ParentToken = created.Token

		stored, err := repo.Create(ctx, child)
		require.NoError(t, err)
		assert.Equal(t, created.Token, stored.ParentToken)

		got, err := repo.GetByToken(ctx, stored.Token)
		require.NoError(t, err)
		assert.True(t, got.IsImpersonation())
	})
}

func TestPostgresUpdateActivity(t *testing.T) {
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPostgresRepository(pool)
	subjectID := createTestSubject(t, pool, "touch")

	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("ExtendsValidSession", func(t *testing.T) {
		created, err := repo.Create(ctx, newTestSession(t, subjectID, now.Add(-time.Minute), now.Add(time.Hour)))
		require.NoError(t, err)

		touched, err := repo.UpdateActivity(ctx, created.Token, now, now.Add(-15*time.Minute), now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.True(t, touched.LastActivityAt.After(created.LastActivityAt))
		assert.True(t, touched.ExpiresAt.After(created.ExpiresAt))
	})

	t.Run("RefusesInactiveSession", func(t *testing.T) {
		created, err := repo.Create(ctx, newTestSession(t, subjectID, now, now.Add(time.Hour)))
		require.NoError(t, err)
		require.NoError(t, repo.Deactivate(ctx, created.Token))

		_, err = repo.UpdateActivity(ctx, created.Token, now, now.Add(-15*time.Minute), now.Add(time.Hour))
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("RefusesExpiredSession", func(t *testing.T) {
		created, err := repo.Create(ctx, newTestSession(t, subjectID, now, now.Add(-time.Minute)))
		require.NoError(t, err)

		_, err = repo.UpdateActivity(ctx, created.Token, now, now.Add(-15*time.Minute), now.Add(time.Hour))
		assert.ErrorIs(t, err, ErrSessionInvalid)

		// The failed touch must not have modified the row.
		got, err := repo.GetByToken(ctx, created.Token)
		require.NoError(t, err)
		assert.WithinDuration(t, now, got.LastActivityAt, time.Millisecond)
	})

	t.Run("RefusesIdleSession", func(t *testing.T) {
		stale := now.Add(-30 * time.Minute)
		created, err := repo.Create(ctx, newTestSession(t, subjectID, stale, now.Add(time.Hour)))
		require.NoError(t, err)

		_, err = repo.UpdateActivity(ctx, created.Token, now, now.Add(-15*time.Minute), now.Add(time.Hour))
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("UnknownToken", func(t *testing.T) {
		_, err := repo.UpdateActivity(ctx, "no-such-token", now, now.Add(-15*time.Minute), now.Add(time.Hour))
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})
}

func TestPostgresDeactivate(t *testing.T) {
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPostgresRepository(pool)
	subjectID := createTestSubject(t, pool, "deactivate")

	now := time.Now().UTC().Truncate(time.Microsecond)
	created, err := repo.Create(ctx, newTestSession(t, subjectID, now, now.Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, repo.Deactivate(ctx, created.Token))

	got, err := repo.GetByToken(ctx, created.Token)
	require.NoError(t, err)
	assert.False(t, got.Active)

	t.Run("Idempotent", func(t *testing.T) {
		assert.NoError(t, repo.Deactivate(ctx, created.Token))
	})

	t.Run("UnknownToken", func(t *testing.T) {
		assert.ErrorIs(t, repo.Deactivate(ctx, "no-such-token"), ErrSessionNotFound)
	})
}

func TestPostgresBulkSweeps(t *testing.T) {
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPostgresRepository(pool)
	subjectID := createTestSubject(t, pool, "sweeps")

	now := time.Now().UTC().Truncate(time.Microsecond)

	live, err := repo.Create(ctx, newTestSession(t, subjectID, now, now.Add(time.Hour)))
	require.NoError(t, err)
	expired, err := repo.Create(ctx, newTestSession(t, subjectID, now, now.Add(-time.Minute)))
	require.NoError(t, err)
	idle, err := repo.Create(ctx, newTestSession(t, subjectID, now.Add(-time.Hour), now.Add(time.Hour)))
	require.NoError(t, err)

	expiredCount, err := repo.DeactivateExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expiredCount)

	idleCount, err := repo.DeactivateIdle(ctx, now.Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), idleCount)

	for token, wantActive := range map[string]bool{
		live.Token:    true,
		expired.Token: false,
		idle.Token:    false,
	} {
		got, err := repo.GetByToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, wantActive, got.Active)
	}

	t.Run("DeactivateAllBySubject", func(t *testing.T) {
		count, err := repo.DeactivateAllBySubject(ctx, subjectID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		active, err := repo.ListActiveBySubject(ctx, subjectID)
		require.NoError(t, err)
		assert.Empty(t, active)

		all, err := repo.ListBySubject(ctx, subjectID)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}
