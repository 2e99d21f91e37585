package generate

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/mock"
	"server/internal/providers/elevenlabs"
	"server/internal/providers/kie"
	"server/internal/registry"
)

type stubKie struct {
	create      func(model string, input map[string]any) (*kie.TaskEnvelope, error)
	record      func(taskID string) (*kie.StatusEnvelope, error)
	createCalls int
	recordCalls int
}

func (s *stubKie) CreateTask(ctx context.Context, apiKey, model string, input map[string]any) (*kie.TaskEnvelope, error) {
	s.createCalls++
	return s.create(model, input)
}

func (s *stubKie) RecordInfo(ctx context.Context, apiKey, taskID string) (*kie.StatusEnvelope, error) {
	s.recordCalls++
	return s.record(taskID)
}

type stubSpeech struct {
	voices []elevenlabs.Voice
	speech *elevenlabs.Speech
	err    error
	calls  int
}

func (s *stubSpeech) ListVoices(ctx context.Context, apiKey string) ([]elevenlabs.Voice, error) {
	s.calls++
	return s.voices, s.err
}

func (s *stubSpeech) Synthesize(ctx context.Context, apiKey, voiceID, text string) (*elevenlabs.Speech, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.speech, nil
}

type stubPublisher struct {
	url    string
	public bool
	err    error
	calls  int
}

func (s *stubPublisher) Publish(ctx context.Context, data []byte, mimeType, baseURL string) (string, bool, error) {
	s.calls++
	return s.url, s.public, s.err
}

func taskEnvelope(t *testing.T, payload string) *kie.TaskEnvelope {
	t.Helper()
	var envelope kie.TaskEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("decode task envelope: %v", err)
	}
	return &envelope
}

func statusEnvelope(t *testing.T, payload string) *kie.StatusEnvelope {
	t.Helper()
	var envelope kie.StatusEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("decode status envelope: %v", err)
	}
	return &envelope
}

type testEnv struct {
	service *Service
	kie     *stubKie
	speech  *stubSpeech
	jobs    *registry.Memory
	mock    *mock.Generator
	now     time.Time
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func newTestEnv(t *testing.T, kieStub *stubKie, speechStub *stubSpeech, policy Policy) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	env := &testEnv{kie: kieStub, speech: speechStub, now: time.Now()}
	clock := func() time.Time { return env.now }
	env.jobs = registry.NewMemory(logger, registry.WithClock(clock))
	env.mock = mock.NewGenerator(logger, mock.WithoutLatency(), mock.WithClock(clock))
	env.service = NewService(Options{
		Kie:                 kieStub,
		Speech:              speechStub,
		Mock:                env.mock,
		Jobs:                env.jobs,
		Publisher:           &stubPublisher{url: "https://files.example/ref.png", public: true},
		PollInterval:        time.Millisecond,
		PollAttempts:        5,
		DefaultReferenceURL: "https://files.example/default.png",
		ScenePolicy:         policy,
		Logger:              logger,
	})
	return env
}
