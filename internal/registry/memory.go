// Package registry provides the in-memory JobRepository. Contents are scoped
// to the process lifetime: a restart loses every job, and clients are expected
// to treat an unknown job id as permanently lost.
package registry

import (
	"context"
	"sync"
	"time"

	"server/internal/domain"
	"server/internal/infra"
)

const (
	// DefaultTerminalGrace keeps completed/failed jobs resolvable for late
	// duplicate status checks.
	DefaultTerminalGrace = 5 * time.Minute

	// DefaultIdleCeiling bounds memory growth for jobs nobody polls anymore.
	DefaultIdleCeiling = 30 * time.Minute

	// DefaultSweepInterval is the cadence of the background eviction sweep.
	DefaultSweepInterval = 5 * time.Minute
)

type entry struct {
	job     domain.Job
	evictAt time.Time
}

// Memory is a mutex-guarded job table keyed by job id. Handlers run
// concurrently, so unlike the single-threaded runtime this design came from,
// the lock is load-bearing.
type Memory struct {
	mu          sync.Mutex
	jobs        map[string]*entry
	grace       time.Duration
	idleCeiling time.Duration
	now         func() time.Time
	logger      infra.Logger
}

// Option customizes a Memory registry.
type Option func(*Memory)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// WithIdleCeiling overrides the idle eviction ceiling.
func WithIdleCeiling(d time.Duration) Option {
	return func(m *Memory) { m.idleCeiling = d }
}

// NewMemory constructs an empty registry.
func NewMemory(logger infra.Logger, opts ...Option) *Memory {
	m := &Memory{
		jobs:        make(map[string]*entry),
		grace:       DefaultTerminalGrace,
		idleCeiling: DefaultIdleCeiling,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register stores the job, overwriting any existing record with the same id.
func (m *Memory) Register(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		m.logger.Debug().Str("job_id", job.ID).Msg("registry: overwriting existing job")
	}
	stored := *job
	if stored.SubmittedAt.IsZero() {
		stored.SubmittedAt = now
	}
	stored.LastSeenAt = now
	if stored.LastStatus == "" {
		stored.LastStatus = domain.JobStatusProcessing
	}
	m.jobs[job.ID] = &entry{job: stored}
	return nil
}

// Lookup returns a copy of the job or domain.ErrNotFound. An entry past its
// eviction deadline is gone from the caller's perspective even if the sweep
// has not run yet; the deadline, not the sweep cadence, defines removal.
func (m *Memory) Lookup(ctx context.Context, jobID string) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if m.pastEviction(e) {
		delete(m.jobs, jobID)
		return nil, domain.ErrNotFound
	}
	e.job.LastSeenAt = m.now()
	job := e.job
	return &job, nil
}

// Update records the outcome of a status check. Progress is clamped so it
// never decreases across consecutive checks of a processing job.
func (m *Memory) Update(ctx context.Context, jobID string, status domain.JobStatus, progress int, resultURL string) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if m.pastEviction(e) {
		delete(m.jobs, jobID)
		return nil, domain.ErrNotFound
	}
	if progress < e.job.Progress {
		progress = e.job.Progress
	}
	if progress > 100 {
		progress = 100
	}
	e.job.LastStatus = status
	e.job.Progress = progress
	if status == domain.JobStatusCompleted {
		e.job.Progress = 100
	}
	if resultURL != "" {
		e.job.ResultURL = resultURL
	}
	e.job.LastSeenAt = m.now()
	job := e.job
	return &job, nil
}

// ScheduleEviction stamps the job with a removal deadline. Unknown ids are
// ignored: a sweep may already have taken the entry.
func (m *Memory) ScheduleEviction(ctx context.Context, jobID string, grace time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if grace <= 0 {
		grace = m.grace
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[jobID]
	if !ok {
		return nil
	}
	if e.evictAt.IsZero() {
		e.evictAt = m.now().Add(grace)
	}
	return nil
}

// pastEviction reports whether the entry's removal deadline has passed.
// Callers must hold the lock.
func (m *Memory) pastEviction(e *entry) bool {
	return !e.evictAt.IsZero() && m.now().After(e.evictAt)
}

// Sweep removes jobs past their eviction deadline or untouched beyond the
// idle ceiling. It tolerates an empty registry.
func (m *Memory) Sweep(ctx context.Context) int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.jobs {
		expired := !e.evictAt.IsZero() && now.After(e.evictAt)
		idle := now.Sub(e.job.LastSeenAt) > m.idleCeiling
		if expired || idle {
			delete(m.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Debug().Int("removed", removed).Msg("registry: swept jobs")
	}
	return removed
}

// Len reports the current number of tracked jobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// RunSweeper runs Sweep on a fixed cadence until ctx is cancelled.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

var _ domain.JobRepository = (*Memory)(nil)
