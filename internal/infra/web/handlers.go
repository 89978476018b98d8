package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"jobapply-gateway/internal/domain"
	"jobapply-gateway/internal/domain/model"
	"jobapply-gateway/internal/infra/logging"
	"jobapply-gateway/internal/usecase"
)

type jobCreateRequest struct {
	JDURL         string `json:"jd_url"`
	ResumeURI     string `json:"resume_uri"`
	ModelProvider string `json:"model_provider"`
	ModelName     string `json:"model_name"`
	Urgent        bool   `json:"urgent"`
}

type jobCreateResponse struct {
	JobID   string `json:"job_id"`
	TraceID string `json:"trace_id"`
	Status  string `json:"status"`
}

type statusCallbackRequest struct {
	Status    string `json:"status"`
	Content   string `json:"content"`
	Message   string `json:"message"`
	Streaming *struct {
		PartialContent string  `json:"partial_content"`
		Progress       float64 `json:"progress"`
	} `json:"streaming"`
}

type artifactResponse struct {
	JobID         string    `json:"job_id"`
	ContentType   string    `json:"content_type"`
	GeneratedText string    `json:"generated_text"`
	WordCount     int       `json:"word_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// handleCreateJob accepts a submission and returns the job id once it has
// been handed off. The authenticating proxy upstream injects the owner and
// entitlement headers.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		http.Error(w, "Missing X-User-ID", http.StatusBadRequest)
		return
	}

	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, traceID, err := s.statusUC.CreateJob(r.Context(), usecase.CreateJobRequest{
		UserID:               userID,
		JDURL:                req.JDURL,
		ResumeURI:            req.ResumeURI,
		ModelProvider:        req.ModelProvider,
		ModelName:            req.ModelName,
		Urgent:               req.Urgent,
		HighPriorityEntitled: r.Header.Get("X-Priority-Entitlement") == "high",
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "jd_url and resume_uri are required", http.StatusBadRequest)
		case errors.Is(err, domain.ErrSubmissionFailed):
			http.Error(w, "Job could not be submitted for processing", http.StatusServiceUnavailable)
		default:
			logging.With(r.Context(), s.log).Error().Err(err).Msg("create job")
			http.Error(w, "Failed to create job", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, jobCreateResponse{
		JobID:   job.ID,
		TraceID: traceID,
		Status:  string(job.Status),
	})
}

// handleStatusCallback receives status events from the remote worker.
func (s *Server) handleStatusCallback(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	ctx := logging.WithJobID(r.Context(), jobID)

	var req statusCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	// STREAMING is a live-channel event and must never reach job state.
	status := model.JobStatus(req.Status)
	if status == model.JobStatusStreaming {
		partial, progress := req.Content, 0.0
		if req.Streaming != nil {
			partial, progress = req.Streaming.PartialContent, req.Streaming.Progress
		}
		s.statusUC.StreamingUpdate(ctx, jobID, partial, progress)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	event := &model.StatusEvent{
		JobID:     jobID,
		Status:    status,
		Content:   req.Content,
		Message:   req.Message,
		Timestamp: time.Now().UTC(),
	}
	if err := s.statusUC.HandleStatusUpdate(ctx, jobID, event); err != nil {
		// Propagate a fault so the upstream retry policy redelivers.
		logging.With(ctx, s.log).Error().Err(err).Msg("status update failed")
		http.Error(w, "Failed to apply status update", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleArtifact is the cache-through artifact read.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	ctx := logging.WithJobID(r.Context(), jobID)

	artifact, err := s.statusUC.GetArtifactForJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrArtifactNotFound) {
			http.Error(w, "No artifact for job", http.StatusNotFound)
			return
		}
		logging.With(ctx, s.log).Error().Err(err).Msg("artifact lookup")
		http.Error(w, "Failed to load artifact", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, artifactResponse{
		JobID:         artifact.JobID,
		ContentType:   artifact.ContentType,
		GeneratedText: artifact.GeneratedText,
		WordCount:     artifact.WordCount,
		CreatedAt:     artifact.CreatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
