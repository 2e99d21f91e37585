package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"server/internal/generate"
	"server/internal/providers/elevenlabs"
)

type voiceoverGenerateRequest struct {
	Script           string `json:"script"`
	VoiceID          string `json:"voiceId"`
	ElevenLabsAPIKey string `json:"elevenLabsApiKey"`
}

type voiceoverResponse struct {
	AudioData      string    `json:"audioData,omitempty"`
	AudioURL       string    `json:"audioUrl,omitempty"`
	ContentType    string    `json:"contentType,omitempty"`
	Duration       float64   `json:"duration,omitempty"`
	VoiceID        string    `json:"voiceId"`
	CharacterCount int       `json:"characterCount"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

type voiceEntry struct {
	ID         string            `json:"voice_id"`
	Name       string            `json:"name"`
	PreviewURL *string           `json:"preview_url"`
	Labels     map[string]string `json:"labels"`
}

// VoiceoverVoices handles GET /api/voiceover/voices.
func (a *App) VoiceoverVoices(w http.ResponseWriter, r *http.Request) {
	apiKey := a.elevenLabsKey(r, "")
	voices, err := a.Service.Voices(r.Context(), apiKey)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.data(w, map[string]any{"voices": voiceEntries(voices)})
}

// VoiceoverGenerate handles POST /api/voiceover/generate.
func (a *App) VoiceoverGenerate(w http.ResponseWriter, r *http.Request) {
	var req voiceoverGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload")
		return
	}
	out, err := a.Service.GenerateVoiceover(r.Context(), generate.VoiceoverInput{
		Script:  req.Script,
		VoiceID: req.VoiceID,
		APIKey:  a.elevenLabsKey(r, req.ElevenLabsAPIKey),
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.data(w, voiceoverResponse{
		AudioData:      out.AudioData,
		AudioURL:       out.AudioURL,
		ContentType:    out.ContentType,
		Duration:       out.Duration,
		VoiceID:        out.VoiceID,
		CharacterCount: out.CharacterCount,
		GeneratedAt:    out.GeneratedAt,
	})
}

// voiceEntries keeps the provider's snake_case wire shape, including a null
// preview for voices without one.
func voiceEntries(voices []elevenlabs.Voice) []voiceEntry {
	entries := make([]voiceEntry, 0, len(voices))
	for _, v := range voices {
		entry := voiceEntry{ID: v.ID, Name: v.Name, Labels: v.Labels}
		if v.PreviewURL != "" {
			preview := v.PreviewURL
			entry.PreviewURL = &preview
		}
		if entry.Labels == nil {
			entry.Labels = map[string]string{}
		}
		entries = append(entries, entry)
	}
	return entries
}
