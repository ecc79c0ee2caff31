package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL.
// Per-token mutations are single conditional UPDATE statements, which gives
// the atomicity the session state machine needs without explicit locking.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL session repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const sessionColumns = `token, subject_id, ip_address, user_agent, created_at, last_activity_at, expires_at, active, parent_token`

func scanSession(row pgx.Row) (*Session, error) {
	session := &Session{}
	var parentToken sql.NullString

	err := row.Scan(
		&session.Token,
		&session.SubjectID,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.LastActivityAt,
		&session.ExpiresAt,
		&session.Active,
		&parentToken,
	)
	if err != nil {
		return nil, err
	}
	if parentToken.Valid {
		session.ParentToken = parentToken.String
	}
	return session, nil
}

func nullableParent(parentToken string) sql.NullString {
	return sql.NullString{String: parentToken, Valid: parentToken != ""}
}

// Create persists a new session
func (r *PostgresRepository) Create(ctx context.Context, session Session) (*Session, error) {
	query := `
		INSERT INTO sessions (
			token, subject_id, ip_address, user_agent,
			created_at, last_activity_at, expires_at, active, parent_token
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		) RETURNING ` + sessionColumns

	created, err := scanSession(r.pool.QueryRow(ctx, query,
		session.Token,
		session.SubjectID,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.LastActivityAt,
		session.ExpiresAt,
		session.Active,
		nullableParent(session.ParentToken),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return created, nil
}

// GetByToken retrieves a session by token, active or not
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE token = $1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ListBySubject lists all sessions owned by a subject
func (r *PostgresRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE subject_id = $1
		ORDER BY created_at`

	return r.querySessions(ctx, query, subjectID)
}

// ListActiveBySubject lists the subject's currently active sessions
func (r *PostgresRepository) ListActiveBySubject(ctx context.Context, subjectID uuid.UUID) ([]Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE subject_id = $1
		  AND active = TRUE
		ORDER BY last_activity_at DESC`

	return r.querySessions(ctx, query, subjectID)
}

func (r *PostgresRepository) querySessions(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

// UpdateActivity extends the activity and expiry clocks of a still-valid
// session. The WHERE clause carries the validity condition so a touch racing
// a deactivation or a reaper sweep can never re-extend a dead session.
func (r *PostgresRepository) UpdateActivity(ctx context.Context, token string, now, idleCutoff, expiresAt time.Time) (*Session, error) {
	query := `
		UPDATE sessions
		SET last_activity_at = $2, expires_at = $3
		WHERE token = $1
		  AND active = TRUE
		  AND expires_at > $4
		  AND last_activity_at > $5
		RETURNING ` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query, token, now, expiresAt, now, idleCutoff))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to update session activity: %w", err)
	}
	return session, nil
}

// Deactivate marks a session inactive; idempotent for known tokens
func (r *PostgresRepository) Deactivate(ctx context.Context, token string) error {
	query := `UPDATE sessions SET active = FALSE WHERE token = $1`

	tag, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeactivateAllBySubject marks every session owned by the subject inactive
func (r *PostgresRepository) DeactivateAllBySubject(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	query := `UPDATE sessions SET active = FALSE WHERE subject_id = $1 AND active = TRUE`

	tag, err := r.pool.Exec(ctx, query, subjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate subject sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeactivateExpired bulk-deactivates active sessions past their absolute deadline
func (r *PostgresRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE sessions SET active = FALSE WHERE active = TRUE AND expires_at < $1`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeactivateIdle bulk-deactivates active sessions with no activity since cutoff
func (r *PostgresRepository) DeactivateIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE sessions SET active = FALSE WHERE active = TRUE AND last_activity_at < $1`

	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate idle sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
