package kie

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// TaskCreator is the slice of the client the submission strategies need.
type TaskCreator interface {
	CreateTask(ctx context.Context, apiKey, model string, input map[string]any) (*TaskEnvelope, error)
}

// ModelCandidate names one video model to try. Access to these is gated per
// API key on the provider side, so submission walks the list in preference
// order instead of betting on a single model.
type ModelCandidate struct {
	Model string
	Name  string
}

// VideoModels is the candidate order for lip-sync video generation.
var VideoModels = []ModelCandidate{
	{Model: "infinitalk/from-audio", Name: "InfiniteTalk From Audio"},
	{Model: "infinitalk", Name: "InfiniteTalk"},
	{Model: "klingai/avatar", Name: "Kling AI Avatar"},
}

// DefaultVideoPrompt is used when the caller supplies no prompt.
const DefaultVideoPrompt = "A person speaking naturally"

// VideoRequest captures the inputs for a lip-sync submission.
type VideoRequest struct {
	ImageURL string
	AudioURL string
	Prompt   string
}

// stepOutcome classifies one candidate's submission attempt. Accept
// short-circuits, skip and record both advance to the next candidate; the
// distinction is that a recorded error is preserved for reporting while a
// permission skip is expected and discarded.
type stepOutcome int

const (
	outcomeAccept stepOutcome = iota
	outcomeSkip
	outcomeRecord
)

func classifySubmission(envelope *TaskEnvelope, err error) stepOutcome {
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.Code == 401 || strings.Contains(strings.ToLower(apiErr.Msg), accessDeniedPhrase) {
				return outcomeSkip
			}
		}
		return outcomeRecord
	}
	if envelope.PermissionDenied() {
		return outcomeSkip
	}
	return outcomeAccept
}

// SubmitVideo tries each candidate model in order and returns the first
// accepted envelope. Permission denials and transient errors both advance to
// the next candidate; exhausting the list fails with
// domain.ErrNoAccessibleModel. This layer never substitutes mock output —
// that decision belongs to the orchestrator.
func SubmitVideo(ctx context.Context, creator TaskCreator, logger *infra.Logger, apiKey string, req VideoRequest) (*TaskEnvelope, error) {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = DefaultVideoPrompt
	}
	input := map[string]any{
		"image_url":  req.ImageURL,
		"audio_url":  req.AudioURL,
		"prompt":     prompt,
		"resolution": "480p",
	}

	var lastErr error
	for _, candidate := range VideoModels {
		logger.Debug().Str("model", candidate.Model).Msg("kie: trying video model")
		envelope, err := creator.CreateTask(ctx, apiKey, candidate.Model, input)
		switch classifySubmission(envelope, err) {
		case outcomeAccept:
			return envelope, nil
		case outcomeSkip:
			logger.Info().Str("model", candidate.Model).Msg("kie: no access to model, trying next")
			lastErr = fmt.Errorf("no access permission for %s", candidate.Name)
		case outcomeRecord:
			logger.Warn().Err(err).Str("model", candidate.Model).Msg("kie: video model submission failed")
			lastErr = err
		}
	}
	return nil, fmt.Errorf(
		"%w: the API key does not have access to any lip sync/video generation model; "+
			"enable access to InfiniteTalk or another video model on the provider account (last error: %v)",
		domain.ErrNoAccessibleModel, lastErr,
	)
}
