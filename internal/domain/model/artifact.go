package model

import (
	"strings"
	"time"
)

const ArtifactTypeCoverLetter = "cover_letter"

// Artifact is the persisted output of a completed job. At most one exists
// per job and it is immutable after creation.
type Artifact struct {
	JobID         string
	ContentType   string
	GeneratedText string
	WordCount     int
	CreatedAt     time.Time
}

// NewArtifact builds a cover-letter artifact, deriving the word count by
// whitespace tokenization of the content.
func NewArtifact(jobID, content string) *Artifact {
	return &Artifact{
		JobID:         jobID,
		ContentType:   ArtifactTypeCoverLetter,
		GeneratedText: content,
		WordCount:     len(strings.Fields(content)),
		CreatedAt:     time.Now().UTC(),
	}
}
