// Package generate contains the request-facing orchestration for the three
// generation kinds: scene images, voiceovers and lip-sync videos. Each flow
// picks the mock or real path from credential presence, drives the provider
// clients, and classifies failures for the HTTP boundary.
package generate

import (
	"context"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/mock"
	"server/internal/providers/elevenlabs"
	"server/internal/providers/kie"
)

// KieClient is the slice of the Kie.ai client the orchestrators use.
type KieClient interface {
	CreateTask(ctx context.Context, apiKey, model string, input map[string]any) (*kie.TaskEnvelope, error)
	RecordInfo(ctx context.Context, apiKey, taskID string) (*kie.StatusEnvelope, error)
}

// SpeechClient is the slice of the ElevenLabs client the orchestrators use.
type SpeechClient interface {
	ListVoices(ctx context.Context, apiKey string) ([]elevenlabs.Voice, error)
	Synthesize(ctx context.Context, apiKey, voiceID, text string) (*elevenlabs.Speech, error)
}

// ReferencePublisher turns uploaded reference-image bytes into a fetchable URL.
type ReferencePublisher interface {
	Publish(ctx context.Context, data []byte, mimeType, baseURL string) (url string, public bool, err error)
}

// Policy names the per-kind failure policy. Scene generation deliberately
// masks provider failures behind mock output (availability over strictness);
// voiceover and video surface them. Keeping the switch explicit lets tests
// assert on the asymmetry.
type Policy struct {
	SoftFailToMock bool
}

// Options wires a Service.
type Options struct {
	Kie       KieClient
	Speech    SpeechClient
	Mock      *mock.Generator
	Jobs      domain.JobRepository
	Publisher ReferencePublisher

	PollInterval time.Duration
	PollAttempts int

	DefaultReferenceURL string
	ScenePolicy         Policy
	Logger              infra.Logger
}

// Service is the generation orchestrator shared by all handlers.
type Service struct {
	kie       KieClient
	speech    SpeechClient
	mock      *mock.Generator
	jobs      domain.JobRepository
	publisher ReferencePublisher
	poller    *kie.Poller

	defaultReferenceURL string
	scenePolicy         Policy
	logger              infra.Logger
}

// NewService constructs the orchestrator.
func NewService(opts Options) *Service {
	logger := opts.Logger
	return &Service{
		kie:       opts.Kie,
		speech:    opts.Speech,
		mock:      opts.Mock,
		jobs:      opts.Jobs,
		publisher: opts.Publisher,
		poller: kie.NewPoller(opts.Kie, kie.PollerOptions{
			Interval:    opts.PollInterval,
			MaxAttempts: opts.PollAttempts,
			Logger:      &logger,
		}),
		defaultReferenceURL: opts.DefaultReferenceURL,
		scenePolicy:         opts.ScenePolicy,
		logger:              logger,
	}
}
