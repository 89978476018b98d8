package redis

import (
	"context"
	"encoding/json"
	"time"

	"jobapply-gateway/internal/domain"
	"jobapply-gateway/internal/domain/model"
	"jobapply-gateway/internal/infra/metrics"
)

// ArtifactCache stores completed artifacts keyed by job id. A miss returns
// domain.ErrNotFound so callers fall through to Postgres.
type ArtifactCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewArtifactCache(client RedisClient, ttl time.Duration) *ArtifactCache {
	return &ArtifactCache{client: client, ttl: ttl}
}

func artifactKey(jobID string) string { return "artifact:" + jobID }

func (c *ArtifactCache) Get(ctx context.Context, jobID string) (*model.Artifact, error) {
	data, err := c.client.Get(ctx, artifactKey(jobID))
	if err != nil {
		metrics.IncCacheRequest("artifact", "miss")
		if IsNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var a model.Artifact
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, err
	}
	metrics.IncCacheRequest("artifact", "hit")
	return &a, nil
}

func (c *ArtifactCache) Store(ctx context.Context, a *model.Artifact) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, artifactKey(a.JobID), data, c.ttl)
}

func (c *ArtifactCache) Invalidate(ctx context.Context, jobID string) error {
	return c.client.Del(ctx, artifactKey(jobID))
}
