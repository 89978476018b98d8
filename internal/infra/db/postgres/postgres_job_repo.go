package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobapply-gateway/internal/domain"
	"jobapply-gateway/internal/domain/model"
)

// PostgresJobRepo is the Postgres adapter for repository.JobRepository.
type PostgresJobRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresJobRepo(pool *pgxpool.Pool) *PostgresJobRepo {
	return &PostgresJobRepo{pool: pool}
}

// Save inserts or updates a job.
func (r *PostgresJobRepo) Save(ctx context.Context, j *model.Job) error {
	const sql = `
INSERT INTO jobs (id, user_id, status, jd_url, resume_uri, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE
  SET status     = EXCLUDED.status,
      updated_at = EXCLUDED.updated_at;
`
	_, err := r.pool.Exec(ctx, sql,
		j.ID,
		j.UserID,
		string(j.Status),
		j.JDURL,
		j.ResumeURI,
		j.CreatedAt,
		j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: saving job: %w", err)
	}
	return nil
}

func (r *PostgresJobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	const sql = `
SELECT id, user_id, status, jd_url, resume_uri, created_at, updated_at
  FROM jobs
 WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, sql, id)

	var (
		j      model.Job
		status string
	)
	err := row.Scan(&j.ID, &j.UserID, &status, &j.JDURL, &j.ResumeURI, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: finding job: %w", err)
	}
	j.Status = model.JobStatus(status)
	return &j, nil
}

func (r *PostgresJobRepo) UpdateStatus(ctx context.Context, id string, status model.JobStatus) error {
	const sql = `
UPDATE jobs
   SET status = $2, updated_at = $3
 WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, sql, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: updating job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
