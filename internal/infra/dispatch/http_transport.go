package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"jobapply-gateway/internal/domain/model"
)

// HTTPTransport submits a job straight to the generation worker's internal
// endpoint. It is the low-latency primary path; availability is best-effort
// and the gateway falls back to the queue when it fails.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) SubmitJob(ctx context.Context, msg *model.DispatchMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("primary: encode dispatch message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/internal/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("primary: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Trace-ID", msg.TraceID)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("primary: submit job %s: %w", msg.JobID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("primary: submit job %s: unexpected status %d", msg.JobID, resp.StatusCode)
	}
	return nil
}
