package model

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether a status ends the lifecycle. Once a job is
// terminal no further status event may mutate it.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one requested content-generation task. Only the status coordinator
// mutates it; this core never deletes a job.
type Job struct {
	ID        string
	UserID    string
	Status    JobStatus
	JDURL     string // job-description source location
	ResumeURI string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewJob(userID, jdURL, resumeURI string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    JobStatusPending,
		JDURL:     jdURL,
		ResumeURI: resumeURI,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
