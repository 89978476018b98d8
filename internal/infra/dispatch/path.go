package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jobapply-gateway/internal/domain/model"
	"jobapply-gateway/internal/domain/ports/adapter"
	"jobapply-gateway/internal/infra/mq"
)

// SubmissionPath is one way of getting a dispatch message in front of a
// worker. The gateway holds a primary and a fallback path and walks them in
// order.
type SubmissionPath interface {
	Name() string
	Submit(ctx context.Context, msg *model.DispatchMessage) error
}

// primaryPath wraps the direct transport with the configured deadline.
type primaryPath struct {
	transport adapter.PrimaryTransport
	timeout   time.Duration
}

func NewPrimaryPath(transport adapter.PrimaryTransport, timeout time.Duration) SubmissionPath {
	return &primaryPath{transport: transport, timeout: timeout}
}

func (p *primaryPath) Name() string { return "primary" }

func (p *primaryPath) Submit(ctx context.Context, msg *model.DispatchMessage) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.transport.SubmitJob(ctx, msg)
}

// queuePath enqueues into the batch buffer under the priority routing key.
// Enqueueing itself cannot fail; delivery is the batcher's concern.
type queuePath struct {
	batcher  *mq.Batcher
	exchange string
}

func NewQueuePath(batcher *mq.Batcher, exchange string) SubmissionPath {
	return &queuePath{batcher: batcher, exchange: exchange}
}

func (q *queuePath) Name() string { return "queue" }

func (q *queuePath) Submit(_ context.Context, msg *model.DispatchMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: encode dispatch message: %w", err)
	}
	q.batcher.Add(mq.BatchKey{Exchange: q.exchange, RoutingKey: msg.Priority.RoutingKey()}, body)
	return nil
}
