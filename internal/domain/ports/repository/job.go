package repository

import (
	"context"

	"jobapply-gateway/internal/domain/model"
)

type JobRepository interface {
	Save(ctx context.Context, job *model.Job) error
	FindByID(ctx context.Context, id string) (*model.Job, error)
	// UpdateStatus persists a status transition and bumps updated_at.
	UpdateStatus(ctx context.Context, id string, status model.JobStatus) error
}
