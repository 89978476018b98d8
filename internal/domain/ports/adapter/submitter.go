package adapter

import (
	"context"

	"jobapply-gateway/internal/domain/model"
)

// JobSubmitter hands a dispatch message to the submission gateway.
type JobSubmitter interface {
	// Submit walks primary then queue fallback; returns the accepting path.
	Submit(ctx context.Context, msg *model.DispatchMessage) (string, error)
	// SubmitWithRetries blocks on the primary path with bounded retries.
	SubmitWithRetries(ctx context.Context, msg *model.DispatchMessage) error
	// Enqueue skips the primary path and batches straight onto the queue.
	Enqueue(ctx context.Context, msg *model.DispatchMessage) error
}

// StatusBroadcaster pushes events to the live connection watching a job.
type StatusBroadcaster interface {
	Send(jobID string, event *model.StatusEvent)
	SendStreaming(jobID string, event *model.StatusEvent)
}

// BatchFlusher forces pending batches out, for shutdown and maintenance.
type BatchFlusher interface {
	FlushAll()
}
