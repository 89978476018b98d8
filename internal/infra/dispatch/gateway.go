package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobapply-gateway/internal/domain"
	"jobapply-gateway/internal/domain/model"
	"jobapply-gateway/internal/infra/metrics"
)

const backoffBase = 100 * time.Millisecond

// Gateway gets a newly created job in front of a worker. It tries the
// primary transport first and falls back to the batched queue path; when
// both are unavailable the caller gets domain.ErrSubmissionFailed and marks
// the job FAILED. The gateway itself persists nothing.
type Gateway struct {
	primary SubmissionPath // nil when the primary transport is disabled
	queue   SubmissionPath // nil when the queue fallback is disabled
	retries int
	backoff time.Duration
	log     *zerolog.Logger
}

func NewGateway(primary, queue SubmissionPath, retries int, logger *zerolog.Logger) *Gateway {
	if retries <= 0 {
		retries = 3
	}
	gwLog := logger.With().Str("component", "SubmissionGateway").Logger()
	return &Gateway{
		primary: primary,
		queue:   queue,
		retries: retries,
		backoff: backoffBase,
		log:     &gwLog,
	}
}

// Submit walks primary then queue. It returns the path that accepted the
// job, or domain.ErrSubmissionFailed carrying the primary failure cause.
func (g *Gateway) Submit(ctx context.Context, msg *model.DispatchMessage) (string, error) {
	var primaryErr error
	if g.primary != nil {
		if primaryErr = g.primary.Submit(ctx, msg); primaryErr == nil {
			metrics.IncJobDispatched(g.primary.Name(), string(msg.Priority))
			return g.primary.Name(), nil
		}
		g.log.Warn().Err(primaryErr).Str("job_id", msg.JobID).Msg("primary submission failed, falling back to queue")
	}

	if g.queue != nil {
		if err := g.queue.Submit(ctx, msg); err != nil {
			return "", fmt.Errorf("%w: %s", domain.ErrSubmissionFailed, err)
		}
		metrics.IncJobDispatched(g.queue.Name(), string(msg.Priority))
		return g.queue.Name(), nil
	}

	if primaryErr != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrSubmissionFailed, primaryErr)
	}
	return "", domain.ErrSubmissionFailed
}

// Enqueue skips the primary path and puts the message straight onto the
// batched queue, used for re-dispatching already-persisted jobs.
func (g *Gateway) Enqueue(ctx context.Context, msg *model.DispatchMessage) error {
	if g.queue == nil {
		return domain.ErrSubmissionFailed
	}
	if err := g.queue.Submit(ctx, msg); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrSubmissionFailed, err)
	}
	metrics.IncJobDispatched(g.queue.Name(), string(msg.Priority))
	return nil
}

// SubmitWithRetries is the blocking primary-only variant: up to the
// configured attempt count, sleeping base*2^n before retry n. Exhaustion
// returns a terminal error wrapping the last failure cause.
func (g *Gateway) SubmitWithRetries(ctx context.Context, msg *model.DispatchMessage) error {
	if g.primary == nil {
		return domain.ErrSubmissionFailed
	}

	var lastErr error
	for attempt := 0; attempt < g.retries; attempt++ {
		if attempt > 0 {
			delay := g.backoff << attempt
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if lastErr = g.primary.Submit(ctx, msg); lastErr == nil {
			metrics.IncJobDispatched(g.primary.Name(), string(msg.Priority))
			return nil
		}
		g.log.Debug().Err(lastErr).Str("job_id", msg.JobID).Int("attempt", attempt+1).Msg("primary attempt failed")
	}

	return fmt.Errorf("%w: %d attempts exhausted: %s", domain.ErrSubmissionFailed, g.retries, lastErr)
}
