package generate

import (
	"context"
	"errors"
	"fmt"

	"server/internal/domain"
	"server/internal/providers/kie"
	"server/internal/registry"
)

// VideoInput is one lip-sync video submission.
type VideoInput struct {
	SceneImageURL string
	AudioURL      string
	APIKey        string
}

// VideoJob is the immediate response to a submission; the result arrives via
// status polls.
type VideoJob struct {
	JobID  string
	Status domain.JobStatus
}

// VideoState is one status check's normalized view of a job.
type VideoState struct {
	JobID    string
	Status   domain.JobStatus
	Progress int
	VideoURL string
}

// GenerateVideo validates and submits a lip-sync generation, registers the
// resulting job and returns immediately. No inline polling happens here: the
// client drives progress through VideoStatus.
func (s *Service) GenerateVideo(ctx context.Context, in VideoInput) (*VideoJob, error) {
	if in.SceneImageURL == "" {
		return nil, fmt.Errorf("%w: scene image url is required", domain.ErrValidation)
	}
	if in.AudioURL == "" {
		return nil, fmt.Errorf("%w: audio url is required", domain.ErrValidation)
	}

	var (
		jobID  string
		origin domain.JobOrigin
	)
	if in.APIKey == "" {
		s.logger.Info().Msg("video: no api key, using mock generation")
		id, err := s.mock.StartVideo(ctx, in.SceneImageURL, in.AudioURL)
		if err != nil {
			return nil, err
		}
		jobID, origin = id, domain.OriginMock
	} else {
		envelope, err := kie.SubmitVideo(ctx, s.kie, &s.logger, in.APIKey, kie.VideoRequest{
			ImageURL: in.SceneImageURL,
			AudioURL: in.AudioURL,
		})
		if err != nil {
			return nil, err
		}
		if envelope.Data.TaskID == "" {
			return nil, errors.New("video: provider accepted the task but returned no task id")
		}
		jobID, origin = envelope.Data.TaskID, domain.OriginKie
	}

	if err := s.jobs.Register(ctx, &domain.Job{
		ID:         jobID,
		Origin:     origin,
		APIKey:     in.APIKey,
		LastStatus: domain.JobStatusProcessing,
	}); err != nil {
		return nil, err
	}
	s.logger.Info().Str("job_id", jobID).Str("origin", string(origin)).Msg("video: job registered")
	return &VideoJob{JobID: jobID, Status: domain.JobStatusProcessing}, nil
}

// VideoStatus resolves one status check: mock jobs against the local
// simulator, real jobs with a single provider query (the client owns the poll
// cadence). Terminal results schedule registry eviction after the grace
// window so late duplicate checks still resolve.
func (s *Service) VideoStatus(ctx context.Context, jobID, callerKey string) (*VideoState, error) {
	job, err := s.jobs.Lookup(ctx, jobID)
	if err != nil {
		return nil, err
	}

	var state VideoState
	switch job.Origin {
	case domain.OriginMock:
		status, err := s.mock.VideoStatus(jobID)
		if err != nil {
			return nil, err
		}
		state = VideoState{JobID: jobID, Status: status.Status, Progress: status.Progress, VideoURL: status.VideoURL}
	default:
		apiKey := callerKey
		if apiKey == "" {
			apiKey = job.APIKey
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%w: api key required to check job status", domain.ErrAuth)
		}
		envelope, err := s.kie.RecordInfo(ctx, apiKey, jobID)
		if err != nil {
			return nil, err
		}
		state = normalizeVideoStatus(jobID, envelope)
	}

	updated, err := s.jobs.Update(ctx, jobID, state.Status, state.Progress, state.VideoURL)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Swept between lookup and update; serve the provider's answer.
			return &state, nil
		}
		return nil, err
	}
	state.Progress = updated.Progress

	if state.Status.Terminal() {
		if err := s.jobs.ScheduleEviction(ctx, jobID, registry.DefaultTerminalGrace); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("video: eviction scheduling failed")
		}
	}
	return &state, nil
}

// normalizeVideoStatus flattens the provider envelope into the client shape.
// A result URL with a still-processing state counts as completed: some models
// publish output before flipping the state field.
func normalizeVideoStatus(jobID string, envelope *kie.StatusEnvelope) VideoState {
	state := VideoState{JobID: jobID, Progress: envelope.Progress()}
	switch envelope.State() {
	case kie.StateSucceeded:
		state.Status = domain.JobStatusCompleted
		state.Progress = 100
		state.VideoURL = envelope.ResultURL()
	case kie.StateFailed:
		state.Status = domain.JobStatusFailed
	default:
		if u := envelope.ResultURL(); u != "" {
			state.Status = domain.JobStatusCompleted
			state.Progress = 100
			state.VideoURL = u
		} else {
			state.Status = domain.JobStatusProcessing
		}
	}
	return state
}
