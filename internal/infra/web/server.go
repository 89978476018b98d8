package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"jobapply-gateway/internal/config"
	"jobapply-gateway/internal/infra/sse"
	"jobapply-gateway/internal/usecase"
)

// Server exposes the dispatch core over HTTP: job creation, the worker's
// status callback, the live SSE stream and the artifact read. Everything
// upstream of it (TLS, auth, rate limits) is a collaborator's concern; the
// only guard carried here is the bearer key on the internal callback route.
type Server struct {
	statusUC usecase.StatusUseCase
	registry *sse.Registry
	apiKey   string
	lifetime time.Duration
	log      *zerolog.Logger
}

func NewServer(statusUC usecase.StatusUseCase, registry *sse.Registry, cfg *config.Config, logger *zerolog.Logger) *Server {
	webLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		statusUC: statusUC,
		registry: registry,
		apiKey:   cfg.HTTP.InternalAPIKey,
		lifetime: cfg.Stream.Lifetime,
		log:      &webLog,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(traceContext)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/jobs", func(r chi.Router) {
		r.Post("/", s.handleCreateJob)
		r.Get("/{jobID}/stream", s.handleStream)
		r.Get("/{jobID}/artifact", s.handleArtifact)
	})

	r.With(s.bearerAuth).Post("/internal/v1/jobs/{jobID}/events", s.handleStatusCallback)

	return r
}
