package repository

import (
	"context"

	"jobapply-gateway/internal/domain/model"
)

// ArtifactCache is the read-through cache in front of ArtifactRepository.
type ArtifactCache interface {
	Get(ctx context.Context, jobID string) (*model.Artifact, error)
	Store(ctx context.Context, artifact *model.Artifact) error
	Invalidate(ctx context.Context, jobID string) error
}

// DashboardCache holds per-user aggregates computed elsewhere; this core
// only invalidates them when a job's status changes.
type DashboardCache interface {
	Invalidate(ctx context.Context, userID string) error
}
