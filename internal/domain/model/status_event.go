package model

import "time"

// JobStatusStreaming marks an intermediate streaming event on the live
// channel. It is never persisted as a job status.
const JobStatusStreaming JobStatus = "STREAMING"

// StreamingPayload carries a partial generation chunk for progressive
// rendering. It is forwarded to the live stream and never persisted.
type StreamingPayload struct {
	PartialContent string  `json:"partial_content"`
	Progress       float64 `json:"progress"` // 0..1
}

// StatusEvent is a transient message from the remote worker describing a
// job's new state, optionally carrying generated content.
type StatusEvent struct {
	JobID     string            `json:"job_id"`
	Status    JobStatus         `json:"status"`
	Content   string            `json:"content,omitempty"`
	Message   string            `json:"message,omitempty"`
	Streaming *StreamingPayload `json:"streaming,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
