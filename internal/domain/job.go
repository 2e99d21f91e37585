package domain

import "time"

// JobOrigin records which backend a job was submitted to, and therefore which
// status-check path resolves it.
type JobOrigin string

const (
	OriginMock JobOrigin = "mock"
	OriginKie  JobOrigin = "kie"
)

// JobStatus enumerates job lifecycle states as reported to clients.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether a status ends the job lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job tracks one in-flight or completed asynchronous video generation request.
// The registry owns every Job; other components never retain one across calls.
type Job struct {
	ID          string
	Origin      JobOrigin
	APIKey      string
	SubmittedAt time.Time
	LastSeenAt  time.Time
	LastStatus  JobStatus
	Progress    int
	ResultURL   string
}
