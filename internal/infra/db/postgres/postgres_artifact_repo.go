package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobapply-gateway/internal/domain"
	"jobapply-gateway/internal/domain/model"
)

// uniqueViolation is the Postgres error code for a duplicate key.
const uniqueViolation = "23505"

// PostgresArtifactRepo is the Postgres adapter for repository.ArtifactRepository.
// artifacts.job_id carries a unique constraint so a duplicate terminal event
// can never produce a second row.
type PostgresArtifactRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresArtifactRepo(pool *pgxpool.Pool) *PostgresArtifactRepo {
	return &PostgresArtifactRepo{pool: pool}
}

func (r *PostgresArtifactRepo) Save(ctx context.Context, a *model.Artifact) error {
	const sql = `
INSERT INTO artifacts (job_id, content_type, generated_text, word_count, created_at)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := r.pool.Exec(ctx, sql,
		a.JobID,
		a.ContentType,
		a.GeneratedText,
		a.WordCount,
		a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: saving artifact: %w", err)
	}
	return nil
}

func (r *PostgresArtifactRepo) FindByJobID(ctx context.Context, jobID string) (*model.Artifact, error) {
	const sql = `
SELECT job_id, content_type, generated_text, word_count, created_at
  FROM artifacts
 WHERE job_id = $1;
`
	row := r.pool.QueryRow(ctx, sql, jobID)

	var a model.Artifact
	err := row.Scan(&a.JobID, &a.ContentType, &a.GeneratedText, &a.WordCount, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("postgres: finding artifact: %w", err)
	}
	return &a, nil
}
