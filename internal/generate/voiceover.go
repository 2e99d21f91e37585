package generate

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"server/internal/domain"
	"server/internal/mock"
	"server/internal/providers/elevenlabs"
)

// VoiceoverInput is one speech synthesis request.
type VoiceoverInput struct {
	Script  string
	VoiceID string
	APIKey  string
}

// VoiceoverOutput is the client-facing voiceover result. The real path fills
// AudioData (base64) with the synthesized clip; the mock path serves a hosted
// sample via AudioURL instead.
type VoiceoverOutput struct {
	AudioData      string
	AudioURL       string
	ContentType    string
	Duration       float64
	VoiceID        string
	CharacterCount int
	GeneratedAt    time.Time
}

// Voices lists the voices available to the credential, or the canned mock
// voices when none is supplied.
func (s *Service) Voices(ctx context.Context, apiKey string) ([]elevenlabs.Voice, error) {
	if apiKey == "" {
		s.logger.Info().Msg("voiceover: no api key, serving mock voices")
		return mock.Voices, nil
	}
	return s.speech.ListVoices(ctx, apiKey)
}

// GenerateVoiceover synthesizes speech for the script. Unlike scenes there is
// no soft-fail: provider errors surface to the caller.
func (s *Service) GenerateVoiceover(ctx context.Context, in VoiceoverInput) (*VoiceoverOutput, error) {
	if strings.TrimSpace(in.Script) == "" {
		return nil, fmt.Errorf("%w: script is required", domain.ErrValidation)
	}
	if in.VoiceID == "" {
		return nil, fmt.Errorf("%w: voice id is required", domain.ErrValidation)
	}
	// Characters, not bytes: a multibyte script must not hit the ceiling early.
	if utf8.RuneCountInString(in.Script) > elevenlabs.MaxScriptLength {
		return nil, fmt.Errorf("%w: script exceeds %d character limit", domain.ErrValidation, elevenlabs.MaxScriptLength)
	}

	if in.APIKey == "" {
		s.logger.Info().Msg("voiceover: no api key, using mock mode")
		result, err := s.mock.GenerateVoiceover(ctx, in.Script, in.VoiceID)
		if err != nil {
			return nil, err
		}
		return &VoiceoverOutput{
			AudioURL:       result.AudioURL,
			Duration:       result.Duration,
			VoiceID:        result.VoiceID,
			CharacterCount: result.CharacterCount,
			GeneratedAt:    result.GeneratedAt,
		}, nil
	}

	speech, err := s.speech.Synthesize(ctx, in.APIKey, in.VoiceID, in.Script)
	if err != nil {
		return nil, err
	}
	return &VoiceoverOutput{
		AudioData:      base64.StdEncoding.EncodeToString(speech.Audio),
		ContentType:    speech.ContentType,
		VoiceID:        in.VoiceID,
		CharacterCount: utf8.RuneCountInString(in.Script),
		GeneratedAt:    time.Now(),
	}, nil
}
