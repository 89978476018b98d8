package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jobapply-gateway/internal/infra/sse"
	"jobapply-gateway/internal/infra/worker"
)

// HeartbeatWorker periodically pushes keepalives to every live stream so
// intermediaries do not tear down quiet connections. Each push runs on the
// pool; a slow or dead peer only costs one task.
type HeartbeatWorker struct {
	interval time.Duration
	registry *sse.Registry
	pool     *worker.Pool
	log      *zerolog.Logger
}

func NewHeartbeatWorker(interval time.Duration, registry *sse.Registry, pool *worker.Pool, logger *zerolog.Logger) *HeartbeatWorker {
	hbLog := logger.With().Str("component", "HeartbeatWorker").Logger()
	return &HeartbeatWorker{
		interval: interval,
		registry: registry,
		pool:     pool,
		log:      &hbLog,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping heartbeat worker")
			return ctx.Err()
		case <-ticker.C:
			for _, jobID := range w.registry.JobIDs() {
				id := jobID
				if err := w.pool.Submit(func(context.Context) error {
					w.registry.SendHeartbeat(id)
					return nil
				}); err != nil {
					w.log.Debug().Err(err).Str("job_id", id).Msg("heartbeat task dropped")
				}
			}
		}
	}
}
