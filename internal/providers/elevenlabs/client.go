// Package elevenlabs talks to the ElevenLabs speech API: listing voices and
// synthesizing speech from a script.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"server/internal/domain"
)

// ErrMissingAPIKey indicates a call was attempted without credentials.
var ErrMissingAPIKey = errors.New("elevenlabs: api key is required")

// MaxScriptLength is the provider's per-request character ceiling.
const MaxScriptLength = 5000

const defaultModelID = "eleven_monolingual_v1"

// Options configures the ElevenLabs client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the ElevenLabs API. Credentials are supplied
// per call, never stored.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Voice describes one available voice.
type Voice struct {
	ID         string            `json:"voice_id"`
	Name       string            `json:"name"`
	PreviewURL string            `json:"preview_url"`
	Labels     map[string]string `json:"labels"`
}

// Speech is the raw binary result of a synthesis call.
type Speech struct {
	Audio       []byte
	ContentType string
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io/v1"
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ListVoices returns every voice available to the credential. The provider
// returns the full list in one response; no pagination is involved.
func (c *Client) ListVoices(ctx context.Context, apiKey string) ([]Voice, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read response: %w", err)
	}
	if err := classifyStatus(resp.StatusCode, raw); err != nil {
		return nil, err
	}

	var decoded struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("elevenlabs: decode response: %w", err)
	}
	for i := range decoded.Voices {
		if decoded.Voices[i].Labels == nil {
			decoded.Voices[i].Labels = map[string]string{}
		}
	}
	return decoded.Voices, nil
}

// Synthesize converts text to speech with the given voice and returns the raw
// audio payload and its content type.
func (c *Client) Synthesize(ctx context.Context, apiKey, voiceID, text string) (*Speech, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if utf8.RuneCountInString(text) > MaxScriptLength {
		return nil, fmt.Errorf("%w: script exceeds %d characters", domain.ErrValidation, MaxScriptLength)
	}
	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": defaultModelID,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}
	endpoint := c.baseURL + "/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read response: %w", err)
	}
	if err := classifyStatus(resp.StatusCode, raw); err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return &Speech{Audio: raw, ContentType: contentType}, nil
}

// classifyStatus maps provider HTTP failures onto the domain taxonomy.
// Credential rejections and rate limits are surfaced verbatim; everything
// else becomes a descriptive opaque error.
func classifyStatus(status int, raw []byte) error {
	switch {
	case status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: elevenlabs rejected the api key", domain.ErrAuth)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: elevenlabs", domain.ErrRateLimit)
	default:
		return fmt.Errorf("elevenlabs: status %d: %s", status, strings.TrimSpace(string(raw)))
	}
}
