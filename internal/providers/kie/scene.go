package kie

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"server/internal/infra"
)

const (
	sceneModelEdit        = "google/nano-banana-edit"
	sceneModelTextToImage = "google/nano-banana"
)

// SceneRequest captures the inputs for an image generation submission.
type SceneRequest struct {
	Prompt string
	// Size is the provider aspect string, "9:16" or "16:9".
	Size string
	// ReferenceURL, when set, selects the image-conditioned edit model first.
	ReferenceURL string
}

// SubmitScene submits an image generation task. With a reference image the
// edit model is tried first; any error from it is discarded and the plain
// text-to-image model is tried with the same prompt and size. The raw
// acceptance envelope is returned for the caller to interpret.
func SubmitScene(ctx context.Context, creator TaskCreator, logger *infra.Logger, apiKey string, req SceneRequest) (*TaskEnvelope, error) {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	if ref := strings.TrimSpace(req.ReferenceURL); ref != "" {
		envelope, err := creator.CreateTask(ctx, apiKey, sceneModelEdit, map[string]any{
			"prompt":     req.Prompt,
			"image_urls": []string{ref},
			"image_size": req.Size,
		})
		if err == nil {
			return envelope, nil
		}
		logger.Warn().Err(err).Msg("kie: edit model failed, falling back to text-to-image")
	}
	return creator.CreateTask(ctx, apiKey, sceneModelTextToImage, map[string]any{
		"prompt": req.Prompt,
		"size":   req.Size,
	})
}
