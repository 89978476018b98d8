package redis

import "context"

// DashboardCache holds per-user dashboard aggregates written by the CRUD
// side of the platform. This core only evicts them so a client refetching
// after a status notification never sees stale data.
type DashboardCache struct {
	client RedisClient
}

func NewDashboardCache(client RedisClient) *DashboardCache {
	return &DashboardCache{client: client}
}

func (c *DashboardCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx,
		"dashboard:stats:"+userID,
		"dashboard:jobs:"+userID,
	)
}
