package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/providers/kie"
)

// SceneInput is one scene generation request.
type SceneInput struct {
	Prompt      string
	Orientation string
	APIKey      string

	// ReferenceData carries an uploaded reference image, if any.
	ReferenceData []byte
	ReferenceMIME string

	// UseDefaultReference selects the configured default reference image when
	// no upload is present.
	UseDefaultReference bool

	// BaseURL is this server's own address, used for local fallback hosting
	// of uploaded reference images.
	BaseURL string
}

// SceneOutput is the client-facing scene result.
type SceneOutput struct {
	ID          string
	ImageURL    string
	Prompt      string
	Orientation string
	GeneratedAt time.Time
}

// orientationSize maps an orientation to the provider's aspect string.
func orientationSize(orientation string) string {
	if orientation == "vertical" {
		return "9:16"
	}
	return "16:9"
}

// GenerateScene produces a scene image, inline-polling the provider when it
// answers with an asynchronous task. With the soft-fail policy on (the
// default for scenes), any provider-path failure silently degrades to the
// mock generator; only validation errors surface.
func (s *Service) GenerateScene(ctx context.Context, in SceneInput) (*SceneOutput, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrValidation)
	}
	orientation := in.Orientation
	if orientation == "" {
		orientation = "vertical"
	}
	if orientation != "vertical" && orientation != "horizontal" {
		return nil, fmt.Errorf("%w: orientation must be \"vertical\" or \"horizontal\"", domain.ErrValidation)
	}

	if in.APIKey == "" {
		s.logger.Info().Msg("scene: no api key, using mock mode")
		return s.mockScene(ctx, prompt, orientation)
	}

	out, err := s.generateSceneReal(ctx, prompt, orientation, in)
	if err != nil {
		if s.scenePolicy.SoftFailToMock {
			s.logger.Warn().Err(err).Msg("scene: provider path failed, falling back to mock")
			return s.mockScene(ctx, prompt, orientation)
		}
		return nil, err
	}
	return out, nil
}

func (s *Service) mockScene(ctx context.Context, prompt, orientation string) (*SceneOutput, error) {
	result, err := s.mock.GenerateScene(ctx, prompt, orientation)
	if err != nil {
		return nil, err
	}
	return &SceneOutput{
		ID:          uuid.NewString(),
		ImageURL:    result.ImageURL,
		Prompt:      result.Prompt,
		Orientation: result.Orientation,
		GeneratedAt: result.GeneratedAt,
	}, nil
}

func (s *Service) generateSceneReal(ctx context.Context, prompt, orientation string, in SceneInput) (*SceneOutput, error) {
	referenceURL, err := s.resolveReference(ctx, in)
	if err != nil {
		return nil, err
	}

	envelope, err := kie.SubmitScene(ctx, s.kie, &s.logger, in.APIKey, kie.SceneRequest{
		Prompt:       prompt,
		Size:         orientationSize(orientation),
		ReferenceURL: referenceURL,
	})
	if err != nil {
		return nil, err
	}

	var imageURL string
	switch {
	case envelope.Accepted():
		imageURL, err = s.poller.Wait(ctx, in.APIKey, envelope.Data.TaskID)
		if err != nil {
			return nil, err
		}
	case envelope.DirectResultURL() != "":
		imageURL = envelope.DirectResultURL()
	default:
		return nil, fmt.Errorf("scene: unexpected provider response: %s", envelope.Msg)
	}

	return &SceneOutput{
		ID:          uuid.NewString(),
		ImageURL:    imageURL,
		Prompt:      prompt,
		Orientation: orientation,
		GeneratedAt: time.Now(),
	}, nil
}

// resolveReference determines the reference image URL for an image-conditioned
// generation: an upload is published to a public host (with a local fallback),
// otherwise the configured default applies when requested.
func (s *Service) resolveReference(ctx context.Context, in SceneInput) (string, error) {
	if len(in.ReferenceData) == 0 {
		if in.UseDefaultReference {
			return s.defaultReferenceURL, nil
		}
		return "", nil
	}
	if s.publisher == nil {
		return "", nil
	}
	url, public, err := s.publisher.Publish(ctx, in.ReferenceData, in.ReferenceMIME, in.BaseURL)
	if err != nil {
		return "", err
	}
	if !public {
		s.logger.Warn().Str("url", url).Msg("scene: reference image hosted locally, provider may not reach it")
	}
	return url, nil
}
