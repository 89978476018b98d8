package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"jobapply-gateway/internal/domain"
	"jobapply-gateway/internal/infra/sse"
)

// handleStream opens the long-lived per-job push channel. The connection is
// force-completed at the lifetime cap even absent a terminal event, bounding
// resource usage; the registry's sweep separately reclaims idle peers.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	stream, err := sse.NewStream(w)
	if err != nil {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	if !s.registry.Register(jobID, stream) {
		// Capacity exceeded: one terminal error event, then close.
		s.log.Warn().Err(domain.ErrRegistryFull).Str("job_id", jobID).Msg("stream rejected")
		_ = stream.Send(sse.EventError, []byte(`{"error":"connection capacity exceeded"}`))
		return
	}
	s.log.Debug().Str("job_id", jobID).Msg("stream opened")

	lifetime := time.NewTimer(s.lifetime)
	defer lifetime.Stop()

	select {
	case <-stream.Done():
		// Completed by the registry (terminal event, superseded, swept
		// or shutdown). Already unregistered.
	case <-r.Context().Done():
		s.registry.Unregister(jobID)
	case <-lifetime.C:
		s.log.Debug().Str("job_id", jobID).Msg("stream lifetime cap reached")
		s.registry.Unregister(jobID)
	}
}
