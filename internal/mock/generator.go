// Package mock is the credential-free generation path. It produces synthetic
// but API-shape-compatible results with realistic latency so the wizard UI can
// be developed end to end without provider keys.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/elevenlabs"
)

const (
	sampleAudioURL = "https://www2.cs.uic.edu/~i101/SoundFiles/CantinaBand3.wav"
	sampleVideoURL = "https://sample-videos.com/video321/mp4/720/big_buck_bunny_720p_1mb.mp4"

	// videoDuration is how long a simulated video job takes to complete.
	videoDuration = 10 * time.Second

	// jobMaxAge bounds the simulated job table.
	jobMaxAge = 30 * time.Minute
)

// Voices are the canned voices served when no speech credential is present.
var Voices = []elevenlabs.Voice{
	{ID: "mock-voice-1", Name: "Alex - Professional Male", Labels: map[string]string{"accent": "American", "gender": "male", "use_case": "narration"}},
	{ID: "mock-voice-2", Name: "Sarah - Friendly Female", Labels: map[string]string{"accent": "American", "gender": "female", "use_case": "conversational"}},
	{ID: "mock-voice-3", Name: "James - British Narrator", Labels: map[string]string{"accent": "British", "gender": "male", "use_case": "narration"}},
	{ID: "mock-voice-4", Name: "Emma - Australian Host", Labels: map[string]string{"accent": "Australian", "gender": "female", "use_case": "broadcasting"}},
}

// SceneResult mirrors the real scene generation payload.
type SceneResult struct {
	ImageURL    string
	Prompt      string
	Orientation string
	GeneratedAt time.Time
}

// VoiceoverResult mirrors the real voiceover payload. Mock mode serves a
// hosted sample URL instead of inline audio data.
type VoiceoverResult struct {
	AudioURL       string
	Duration       float64
	VoiceID        string
	CharacterCount int
	GeneratedAt    time.Time
}

// VideoStatus is a point-in-time view of a simulated video job.
type VideoStatus struct {
	Status   domain.JobStatus
	Progress int
	VideoURL string
}

type videoJob struct {
	startedAt time.Time
}

// Generator simulates the three providers. Video jobs advance on a wall-clock
// schedule computed at read time; the table is swept periodically.
type Generator struct {
	mu      sync.Mutex
	jobs    map[string]*videoJob
	now     func() time.Time
	latency bool
	logger  infra.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithoutLatency disables the simulated delays, for tests.
func WithoutLatency() Option {
	return func(g *Generator) { g.latency = false }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator constructs a mock generator.
func NewGenerator(logger infra.Logger, opts ...Option) *Generator {
	g := &Generator{
		jobs:    make(map[string]*videoJob),
		now:     time.Now,
		latency: true,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateScene returns a placeholder image sized for the orientation after a
// 2-3 second simulated delay.
func (g *Generator) GenerateScene(ctx context.Context, prompt, orientation string) (*SceneResult, error) {
	if err := g.delay(ctx, 2*time.Second, time.Second); err != nil {
		return nil, err
	}
	width, height := 768, 512
	if orientation == "vertical" {
		width, height = 512, 768
	}
	seed := g.now().UnixMilli()
	return &SceneResult{
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%d/%d/%d", seed, width, height),
		Prompt:      prompt,
		Orientation: orientation,
		GeneratedAt: g.now(),
	}, nil
}

// GenerateVoiceover returns a hosted sample clip after a 1.5-2.5 second
// simulated delay.
func (g *Generator) GenerateVoiceover(ctx context.Context, script, voiceID string) (*VoiceoverResult, error) {
	if err := g.delay(ctx, 1500*time.Millisecond, time.Second); err != nil {
		return nil, err
	}
	return &VoiceoverResult{
		AudioURL:       sampleAudioURL,
		Duration:       3.5,
		VoiceID:        voiceID,
		CharacterCount: utf8.RuneCountInString(script),
		GeneratedAt:    g.now(),
	}, nil
}

// StartVideo registers a simulated video job and returns its id.
func (g *Generator) StartVideo(ctx context.Context, sceneImageURL, audioURL string) (string, error) {
	if err := g.delay(ctx, 500*time.Millisecond, 0); err != nil {
		return "", err
	}
	jobID := "mock-job-" + uuid.NewString()
	g.mu.Lock()
	g.jobs[jobID] = &videoJob{startedAt: g.now()}
	g.mu.Unlock()
	g.logger.Debug().Str("job_id", jobID).Msg("mock: started video job")
	return jobID, nil
}

// VideoStatus reports the simulated job's progress. Progress climbs with
// elapsed time, capped at 95 until the schedule completes, then jumps to 100
// with the sample result URL.
func (g *Generator) VideoStatus(jobID string) (*VideoStatus, error) {
	g.mu.Lock()
	job, ok := g.jobs[jobID]
	g.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	elapsed := g.now().Sub(job.startedAt)
	progress := int(elapsed * 100 / videoDuration)
	if progress >= 95 {
		return &VideoStatus{Status: domain.JobStatusCompleted, Progress: 100, VideoURL: sampleVideoURL}, nil
	}
	if progress < 0 {
		progress = 0
	}
	return &VideoStatus{Status: domain.JobStatusProcessing, Progress: progress}, nil
}

// Sweep drops simulated jobs older than the age ceiling and returns the
// number removed.
func (g *Generator) Sweep() int {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for id, job := range g.jobs {
		if now.Sub(job.startedAt) > jobMaxAge {
			delete(g.jobs, id)
			removed++
		}
	}
	return removed
}

// RunSweeper runs Sweep on a fixed cadence until ctx is cancelled.
func (g *Generator) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Sweep()
		}
	}
}

func (g *Generator) delay(ctx context.Context, base, jitter time.Duration) error {
	if !g.latency {
		return nil
	}
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int63n(int64(jitter)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
