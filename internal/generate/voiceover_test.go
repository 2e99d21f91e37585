package generate

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"server/internal/domain"
	"server/internal/mock"
	"server/internal/providers/elevenlabs"
)

func TestGenerateVoiceoverValidation(t *testing.T) {
	env := newTestEnv(t, &stubKie{}, &stubSpeech{}, Policy{})
	ctx := context.Background()

	cases := []struct {
		name  string
		input VoiceoverInput
	}{
		{"empty script", VoiceoverInput{VoiceID: "v1"}},
		{"whitespace script", VoiceoverInput{Script: "   ", VoiceID: "v1"}},
		{"missing voice", VoiceoverInput{Script: "hello"}},
		{"script over limit", VoiceoverInput{Script: strings.Repeat("a", 5001), VoiceID: "v1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.service.GenerateVoiceover(ctx, tc.input)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
	if env.speech.calls != 0 {
		t.Fatalf("speech client called %d times on invalid input", env.speech.calls)
	}
}

func TestGenerateVoiceoverScriptAtLimit(t *testing.T) {
	env := newTestEnv(t, &stubKie{}, &stubSpeech{}, Policy{})
	script := strings.Repeat("a", 5000)

	out, err := env.service.GenerateVoiceover(context.Background(), VoiceoverInput{Script: script, VoiceID: "v1"})
	if err != nil {
		t.Fatalf("a script at exactly the limit must pass: %v", err)
	}
	if out.CharacterCount != 5000 {
		t.Fatalf("character count = %d, want 5000", out.CharacterCount)
	}
}

func TestGenerateVoiceoverCountsCharactersNotBytes(t *testing.T) {
	env := newTestEnv(t, &stubKie{}, &stubSpeech{}, Policy{})
	ctx := context.Background()

	// 5000 two-byte runes: well past the ceiling in bytes, exactly at it in
	// characters.
	script := strings.Repeat("д", 5000)
	out, err := env.service.GenerateVoiceover(ctx, VoiceoverInput{Script: script, VoiceID: "v1"})
	if err != nil {
		t.Fatalf("multibyte script at the limit must pass: %v", err)
	}
	if out.CharacterCount != 5000 {
		t.Fatalf("character count = %d, want 5000", out.CharacterCount)
	}

	_, err = env.service.GenerateVoiceover(ctx, VoiceoverInput{Script: script + "д", VoiceID: "v1"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("5001 characters: error = %v, want ErrValidation", err)
	}
}

func TestGenerateVoiceoverMockMode(t *testing.T) {
	env := newTestEnv(t, &stubKie{}, &stubSpeech{}, Policy{})

	out, err := env.service.GenerateVoiceover(context.Background(), VoiceoverInput{Script: "hello there", VoiceID: "mock-voice-2"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.AudioURL == "" || out.AudioData != "" {
		t.Fatalf("mock mode serves a hosted sample, got %+v", out)
	}
	if out.VoiceID != "mock-voice-2" || out.CharacterCount != len("hello there") {
		t.Fatalf("output = %+v", out)
	}
	if env.speech.calls != 0 {
		t.Fatalf("speech client must not be touched without a credential")
	}
}

func TestGenerateVoiceoverRealMode(t *testing.T) {
	speechStub := &stubSpeech{
		speech: &elevenlabs.Speech{Audio: []byte("mp3-bytes"), ContentType: "audio/mpeg"},
	}
	env := newTestEnv(t, &stubKie{}, speechStub, Policy{})

	out, err := env.service.GenerateVoiceover(context.Background(), VoiceoverInput{
		Script:  "real speech",
		VoiceID: "rachel",
		APIKey:  "xi-key",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.AudioData != base64.StdEncoding.EncodeToString([]byte("mp3-bytes")) {
		t.Fatalf("audio data = %q", out.AudioData)
	}
	if out.ContentType != "audio/mpeg" || out.AudioURL != "" {
		t.Fatalf("output = %+v", out)
	}
	if out.CharacterCount != len("real speech") {
		t.Fatalf("character count = %d", out.CharacterCount)
	}
}

func TestGenerateVoiceoverNoSoftFail(t *testing.T) {
	speechStub := &stubSpeech{err: domain.ErrRateLimit}
	env := newTestEnv(t, &stubKie{}, speechStub, Policy{SoftFailToMock: true})

	_, err := env.service.GenerateVoiceover(context.Background(), VoiceoverInput{
		Script:  "hello",
		VoiceID: "rachel",
		APIKey:  "xi-key",
	})
	if !errors.Is(err, domain.ErrRateLimit) {
		t.Fatalf("voiceover errors must surface, got %v", err)
	}
}

func TestVoicesWithoutKeyServesMockCatalog(t *testing.T) {
	env := newTestEnv(t, &stubKie{}, &stubSpeech{}, Policy{})

	voices, err := env.service.Voices(context.Background(), "")
	if err != nil {
		t.Fatalf("voices: %v", err)
	}
	if len(voices) != len(mock.Voices) {
		t.Fatalf("got %d voices, want the mock catalog", len(voices))
	}
	if env.speech.calls != 0 {
		t.Fatalf("provider must not be queried without a credential")
	}
}

func TestVoicesWithKeyQueriesProvider(t *testing.T) {
	speechStub := &stubSpeech{voices: []elevenlabs.Voice{{ID: "rachel", Name: "Rachel"}}}
	env := newTestEnv(t, &stubKie{}, speechStub, Policy{})

	voices, err := env.service.Voices(context.Background(), "xi-key")
	if err != nil {
		t.Fatalf("voices: %v", err)
	}
	if len(voices) != 1 || voices[0].ID != "rachel" {
		t.Fatalf("voices = %+v", voices)
	}
	if speechStub.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", speechStub.calls)
	}
}
