package store

import (
	"strings"
	"time"
)

// JobStatus tracks one ingestion job through the pipeline state machine.
type JobStatus string

const (
	JobStatusStarted      JobStatus = "started"
	JobStatusDownloading  JobStatus = "downloading"
	JobStatusProbing      JobStatus = "probing"
	JobStatusThumbnailing JobStatus = "thumbnailing"
	JobStatusEncoding     JobStatus = "encoding"
	JobStatusUploading    JobStatus = "uploading"
	JobStatusPersisting   JobStatus = "persisting"
	JobStatusCompleted    JobStatus = "completed"
	JobStatusFailed       JobStatus = "failed"
)

// AbandonedJobReason is the error recorded when reconciliation finds a job
// that was in flight when the daemon stopped.
const AbandonedJobReason = "daemon restarted during processing"

var allJobStatuses = []JobStatus{
	JobStatusStarted,
	JobStatusDownloading,
	JobStatusProbing,
	JobStatusThumbnailing,
	JobStatusEncoding,
	JobStatusUploading,
	JobStatusPersisting,
	JobStatusCompleted,
	JobStatusFailed,
}

var inFlightStatuses = map[JobStatus]struct{}{
	JobStatusStarted:      {},
	JobStatusDownloading:  {},
	JobStatusProbing:      {},
	JobStatusThumbnailing: {},
	JobStatusEncoding:     {},
	JobStatusUploading:    {},
	JobStatusPersisting:   {},
}

// InFlight reports whether the status reflects a job that has neither
// completed nor failed.
func (s JobStatus) InFlight() bool {
	_, ok := inFlightStatuses[s]
	return ok
}

// ParseJobStatus converts a string into a known JobStatus.
func ParseJobStatus(value string) (JobStatus, bool) {
	normalized := JobStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allJobStatuses {
		if status == normalized {
			return normalized, true
		}
	}
	return "", false
}

// Job is one end-to-end ingestion run for an episode's source video,
// persisted so a daemon restart can detect work that was abandoned mid-flight.
type Job struct {
	ID           string
	MovieID      string
	EpisodeID    string
	SourceKey    string
	CallbackURL  string
	Status       JobStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Episode carries the processing fields of the episode record this subsystem
// owns. Invariant: IsProcessed is true only with a non-empty PlaylistURL, and
// a failed retry never clears a previously published PlaylistURL.
type Episode struct {
	MovieID         string
	EpisodeID       string
	IsProcessed     bool
	ProcessingError string
	PlaylistURL     string
	ThumbnailURL    string
	DurationSeconds int
	UpdatedAt       time.Time
}
