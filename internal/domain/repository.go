package domain

import (
	"context"
	"time"
)

// JobRepository is the bookkeeping abstraction for asynchronous jobs. The
// in-memory implementation is the only one shipped; the interface exists so
// orchestration logic never touches a concrete map and a durable store could
// be swapped in without changing it. Loss of contents on restart is part of
// the contract, not a defect.
type JobRepository interface {
	// Register stores a job record. Re-registering an existing id overwrites it.
	Register(ctx context.Context, job *Job) error

	// Lookup returns the job or ErrNotFound.
	Lookup(ctx context.Context, jobID string) (*Job, error)

	// Update applies status, progress and result from a status check. Progress
	// never moves backwards while a job is processing.
	Update(ctx context.Context, jobID string, status JobStatus, progress int, resultURL string) (*Job, error)

	// ScheduleEviction marks a terminal job for removal after the grace window,
	// so late duplicate status checks still resolve.
	ScheduleEviction(ctx context.Context, jobID string, grace time.Duration) error

	// Sweep removes jobs past their eviction deadline or idle ceiling and
	// returns the number removed. Safe on an empty registry.
	Sweep(ctx context.Context) int
}
