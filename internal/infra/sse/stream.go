package sse

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Stream adapts an http.ResponseWriter into a Connection. Writes are
// serialized because the registry, the heartbeat worker and the coordinator
// may all push on the same stream.
type Stream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
	doneCh  chan struct{}
}

// NewStream prepares w for server-sent events. It fails when the underlying
// writer cannot flush (no streaming support in the chain).
func NewStream(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("sse: response writer does not support flushing")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, flusher: flusher, doneCh: make(chan struct{})}, nil
}

func (s *Stream) Send(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sse: stream closed")
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *Stream) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.doneCh)
}

// Done is closed when the stream has been completed, letting the HTTP
// handler return and release the connection.
func (s *Stream) Done() <-chan struct{} { return s.doneCh }
