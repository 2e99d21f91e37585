package kie

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// StatusQuerier is the slice of the client the poller needs.
type StatusQuerier interface {
	RecordInfo(ctx context.Context, apiKey, taskID string) (*StatusEnvelope, error)
}

// Poller converts an asynchronous task into a synchronous result within a
// bounded wall-clock budget. One transient query failure consumes an attempt
// but never terminates the loop; only a provider-reported failure, a result,
// budget exhaustion or context cancellation does.
type Poller struct {
	querier     StatusQuerier
	interval    time.Duration
	maxAttempts int
	logger      *infra.Logger
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	Interval    time.Duration
	MaxAttempts int
	Logger      *infra.Logger
}

// NewPoller constructs a poller with the defaults used for inline scene
// generation: 2 second interval, 60 attempts (about two minutes).
func NewPoller(querier StatusQuerier, opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 60
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Poller{querier: querier, interval: interval, maxAttempts: attempts, logger: logger}
}

// Wait polls the task until it yields a result URL, the provider reports
// failure, or the budget runs out. Budget exhaustion returns
// domain.ErrTimeout, distinct from domain.ErrProviderFailed.
func (p *Poller) Wait(ctx context.Context, apiKey, taskID string) (string, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := sleepCtx(ctx, p.interval); err != nil {
			return "", err
		}
		envelope, err := p.querier.RecordInfo(ctx, apiKey, taskID)
		if err != nil {
			// Transient: a single failed status call must not abort the task.
			p.logger.Warn().Err(err).Str("task_id", taskID).Int("attempt", attempt).Msg("kie: poll query failed")
			continue
		}
		switch envelope.State() {
		case StateSucceeded:
			if u := envelope.ResultURL(); u != "" {
				p.logger.Debug().Str("task_id", taskID).Int("attempt", attempt).Str("url", u).Msg("kie: task succeeded")
				return u, nil
			}
			// Succeeded without a recognizable URL yet; keep polling, the
			// result fields sometimes lag the state change.
		case StateFailed:
			msg := envelope.FailureMessage()
			if msg == "" {
				msg = "unknown error"
			}
			return "", fmt.Errorf("%w: %s", domain.ErrProviderFailed, msg)
		}
	}
	return "", fmt.Errorf("%w: task %s still processing after %d attempts", domain.ErrTimeout, taskID, p.maxAttempts)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
