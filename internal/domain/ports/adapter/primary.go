package adapter

import (
	"context"

	"jobapply-gateway/internal/domain/model"
)

// PrimaryTransport is the low-latency direct path to the generation worker.
// Implementations must honor the context deadline; the gateway bounds each
// call with the configured primary timeout.
type PrimaryTransport interface {
	SubmitJob(ctx context.Context, msg *model.DispatchMessage) error
}
