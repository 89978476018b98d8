package repository

import (
	"context"

	"jobapply-gateway/internal/domain/model"
)

type ArtifactRepository interface {
	// Save inserts an artifact. A duplicate for the same job must return
	// domain.ErrAlreadyExists so the caller stays idempotent under
	// redelivered terminal events.
	Save(ctx context.Context, artifact *model.Artifact) error
	FindByJobID(ctx context.Context, jobID string) (*model.Artifact, error)
}
