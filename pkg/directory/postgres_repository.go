package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL subject repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const subjectColumns = `id, username, email, name, role, created_at, last_modified_at`

func scanSubject(row pgx.Row) (Subject, error) {
	var subject Subject
	var role string
	err := row.Scan(
		&subject.ID,
		&subject.Username,
		&subject.Email,
		&subject.Name,
		&role,
		&subject.CreatedAt,
		&subject.LastModifiedAt,
	)
	if err != nil {
		return Subject{}, err
	}
	subject.Role, err = ParseRole(role)
	if err != nil {
		return Subject{}, err
	}
	return subject, nil
}

// Create creates a new subject
func (r *PostgresRepository) Create(ctx context.Context, params CreateSubjectParams) (Subject, error) {
	if !params.Role.Valid() {
		return Subject{}, ErrInvalidRole
	}

	query := `
		INSERT INTO subjects (username, email, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + subjectColumns

	subject, err := scanSubject(r.pool.QueryRow(ctx, query,
		params.Username,
		params.Email,
		params.Name,
		string(params.Role),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Subject{}, ErrUsernameExists
		}
		return Subject{}, fmt.Errorf("failed to create subject: %w", err)
	}
	return subject, nil
}

// GetByID gets a subject by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = $1`

	subject, err := scanSubject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, ErrSubjectNotFound
		}
		return Subject{}, fmt.Errorf("failed to get subject: %w", err)
	}
	return subject, nil
}

// GetByUsername gets a subject by username
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE username = $1`

	subject, err := scanSubject(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, ErrSubjectNotFound
		}
		return Subject{}, fmt.Errorf("failed to get subject by username: %w", err)
	}
	return subject, nil
}

// List lists all subjects ordered by username
func (r *PostgresRepository) List(ctx context.Context) ([]Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects ORDER BY username`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subjects: %w", err)
	}
	return subjects, nil
}

// Update updates a subject's mutable fields
func (r *PostgresRepository) Update(ctx context.Context, params UpdateSubjectParams) (Subject, error) {
	if !params.Role.Valid() {
		return Subject{}, ErrInvalidRole
	}

	query := `
		UPDATE subjects
		SET email = $2, name = $3, role = $4, last_modified_at = NOW()
		WHERE id = $1
		RETURNING ` + subjectColumns

	subject, err := scanSubject(r.pool.QueryRow(ctx, query,
		params.ID,
		params.Email,
		params.Name,
		string(params.Role),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, ErrSubjectNotFound
		}
		return Subject{}, fmt.Errorf("failed to update subject: %w", err)
	}
	return subject, nil
}
