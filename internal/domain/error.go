package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrArtifactNotFound     = errors.New("no artifact for job")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrRegistryFull         = errors.New("stream registry at capacity")
	ErrSubmissionFailed     = errors.New("job submission failed on every path")
	ErrJobNotPending        = errors.New("job is not pending")
	ErrPublisherUnavailable = errors.New("broker publisher unavailable")
)
