// File: internal/usecase/status_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"jobapply-gateway/internal/domain"
	"jobapply-gateway/internal/domain/model"
	"jobapply-gateway/internal/domain/ports/adapter"
	"jobapply-gateway/internal/domain/ports/repository"
	"jobapply-gateway/internal/infra/logging"
	"jobapply-gateway/internal/infra/metrics"
)

// Compile-time check
var _ StatusUseCase = (*statusUC)(nil)

// CreateJobRequest carries everything job creation needs. Urgency and the
// entitlement flag are plain parameters; billing rules live outside this core.
type CreateJobRequest struct {
	UserID               string
	JDURL                string
	ResumeURI            string
	ModelProvider        string
	ModelName            string
	Urgent               bool
	HighPriorityEntitled bool
}

type StatusUseCase interface {
	CreateJob(ctx context.Context, req CreateJobRequest) (*model.Job, string, error)
	HandleStatusUpdate(ctx context.Context, jobID string, event *model.StatusEvent) error
	StreamingUpdate(ctx context.Context, jobID, partialContent string, progress float64)
	GetArtifactForJob(ctx context.Context, jobID string) (*model.Artifact, error)
	ProcessJob(ctx context.Context, jobID, modelProvider, modelName string) error
	FlushPending()
}

// statusUC orchestrates the job lifecycle. It is the only component that
// mutates Job and Artifact state.
type statusUC struct {
	jobs       repository.JobRepository
	artifacts  repository.ArtifactRepository
	artCache   repository.ArtifactCache
	dashboards repository.DashboardCache
	submitter  adapter.JobSubmitter
	broadcast  adapter.StatusBroadcaster
	flusher    adapter.BatchFlusher
	log        *zerolog.Logger
}

func NewStatusUseCase(
	jobs repository.JobRepository,
	artifacts repository.ArtifactRepository,
	artCache repository.ArtifactCache,
	dashboards repository.DashboardCache,
	submitter adapter.JobSubmitter,
	broadcast adapter.StatusBroadcaster,
	flusher adapter.BatchFlusher,
	logger *zerolog.Logger,
) *statusUC {
	ucLog := logger.With().Str("component", "StatusCoordinator").Logger()
	return &statusUC{
		jobs:       jobs,
		artifacts:  artifacts,
		artCache:   artCache,
		dashboards: dashboards,
		submitter:  submitter,
		broadcast:  broadcast,
		flusher:    flusher,
		log:        &ucLog,
	}
}

// CreateJob persists a new PENDING job and hands it to the submission
// gateway. On total submission failure the job record stays, marked FAILED,
// and the caller gets the error.
func (u *statusUC) CreateJob(ctx context.Context, req CreateJobRequest) (*model.Job, string, error) {
	if req.UserID == "" || req.JDURL == "" || req.ResumeURI == "" {
		return nil, "", domain.ErrInvalidArgument
	}

	job := model.NewJob(req.UserID, req.JDURL, req.ResumeURI)
	if err := u.jobs.Save(ctx, job); err != nil {
		return nil, "", fmt.Errorf("create job: %w", err)
	}

	// Reuse the request trace so HTTP logs and the dispatched job correlate.
	traceID := logging.TraceID(ctx)
	if traceID == "" {
		traceID = newTraceID()
	}
	msg := &model.DispatchMessage{
		JobID:         job.ID,
		JDURL:         job.JDURL,
		ResumeURI:     job.ResumeURI,
		ModelProvider: defaultStr(req.ModelProvider, "openai"),
		ModelName:     defaultStr(req.ModelName, "gpt-4o"),
		UserID:        job.UserID,
		TraceID:       traceID,
		Priority:      model.DeterminePriority(req.Urgent, req.HighPriorityEntitled),
	}

	path, err := u.submitter.Submit(ctx, msg)
	if err != nil {
		// Keep the FAILED record for auditability.
		if uerr := u.jobs.UpdateStatus(ctx, job.ID, model.JobStatusFailed); uerr != nil {
			u.log.Error().Err(uerr).Str("job_id", job.ID).Msg("could not mark failed job")
		}
		job.Status = model.JobStatusFailed
		return nil, "", err
	}

	if path == "primary" {
		// The worker acknowledged the job directly.
		if uerr := u.jobs.UpdateStatus(ctx, job.ID, model.JobStatusQueued); uerr != nil {
			u.log.Warn().Err(uerr).Str("job_id", job.ID).Msg("could not advance job to queued")
		} else {
			job.Status = model.JobStatusQueued
		}
	}

	u.log.Info().Str("job_id", job.ID).Str("trace_id", traceID).Str("path", path).
		Str("priority", string(msg.Priority)).Msg("job submitted")
	return job, traceID, nil
}

// HandleStatusUpdate applies one inbound status event from the remote
// worker. Unknown jobs and events past a terminal state are discarded; the
// lifecycle only moves forward.
func (u *statusUC) HandleStatusUpdate(ctx context.Context, jobID string, event *model.StatusEvent) error {
	job, err := u.jobs.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncStatusUpdate("unknown")
			u.log.Debug().Str("job_id", jobID).Msg("status update for unknown job, discarding")
			return nil
		}
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	if job.Status.Terminal() {
		metrics.IncStatusUpdate("discarded")
		u.log.Debug().Str("job_id", jobID).Str("status", string(job.Status)).
			Str("event_status", string(event.Status)).Msg("event after terminal state, discarding")
		return nil
	}

	statusChanged := job.Status != event.Status
	if err := u.jobs.UpdateStatus(ctx, jobID, event.Status); err != nil {
		return fmt.Errorf("persist status of job %s: %w", jobID, err)
	}
	job.Status = event.Status
	metrics.IncStatusUpdate("applied")

	// Invalidation precedes broadcast so a client refetching after the
	// notification never reads stale data.
	if statusChanged {
		if err := u.artCache.Invalidate(ctx, jobID); err != nil {
			u.log.Warn().Err(err).Str("job_id", jobID).Msg("artifact cache eviction failed")
		}
		if err := u.dashboards.Invalidate(ctx, job.UserID); err != nil {
			u.log.Warn().Err(err).Str("user_id", job.UserID).Msg("dashboard cache eviction failed")
		}
	}

	if event.Status == model.JobStatusCompleted && len(event.Content) > 0 {
		artifact := model.NewArtifact(jobID, event.Content)
		if err := u.artifacts.Save(ctx, artifact); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				u.log.Debug().Str("job_id", jobID).Msg("artifact already exists, skipping")
			} else {
				return fmt.Errorf("persist artifact of job %s: %w", jobID, err)
			}
		} else {
			u.log.Info().Str("job_id", jobID).Int("word_count", artifact.WordCount).Msg("artifact saved")
		}
	}

	u.broadcast.Send(jobID, event)
	return nil
}

// StreamingUpdate forwards an intermediate partial-content event straight to
// the live channel. It never mutates job state or creates an artifact.
func (u *statusUC) StreamingUpdate(_ context.Context, jobID, partialContent string, progress float64) {
	event := &model.StatusEvent{
		JobID:   jobID,
		Status:  model.JobStatusStreaming,
		Content: partialContent,
		Message: "generation in progress",
		Streaming: &model.StreamingPayload{
			PartialContent: partialContent,
			Progress:       progress,
		},
		Timestamp: time.Now().UTC(),
	}
	u.broadcast.SendStreaming(jobID, event)
}

// GetArtifactForJob is a cache-through read. A missing artifact is an
// expected user-facing condition, reported as domain.ErrArtifactNotFound.
func (u *statusUC) GetArtifactForJob(ctx context.Context, jobID string) (*model.Artifact, error) {
	if a, err := u.artCache.Get(ctx, jobID); err == nil {
		return a, nil
	}

	a, err := u.artifacts.FindByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := u.artCache.Store(ctx, a); err != nil {
		u.log.Warn().Err(err).Str("job_id", jobID).Msg("artifact cache store failed")
	}
	return a, nil
}

// ProcessJob re-dispatches a PENDING job through the batched queue path.
func (u *statusUC) ProcessJob(ctx context.Context, jobID, modelProvider, modelName string) error {
	job, err := u.jobs.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusPending {
		return fmt.Errorf("%w: job %s is %s", domain.ErrJobNotPending, jobID, job.Status)
	}

	if err := u.jobs.UpdateStatus(ctx, jobID, model.JobStatusProcessing); err != nil {
		return fmt.Errorf("persist status of job %s: %w", jobID, err)
	}

	msg := &model.DispatchMessage{
		JobID:         job.ID,
		JDURL:         job.JDURL,
		ResumeURI:     job.ResumeURI,
		ModelProvider: defaultStr(modelProvider, "openai"),
		ModelName:     defaultStr(modelName, "gpt-4o"),
		UserID:        job.UserID,
		TraceID:       "batch-" + uuid.NewString(),
		Priority:      model.PriorityNormal,
	}
	return u.submitter.Enqueue(ctx, msg)
}

// FlushPending forces all buffered dispatch messages out immediately.
func (u *statusUC) FlushPending() {
	u.log.Info().Msg("flushing pending message batches")
	u.flusher.FlushAll()
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// newTraceID returns a lexically time-sortable trace id.
func newTraceID() string {
	return ulid.Make().String()
}
