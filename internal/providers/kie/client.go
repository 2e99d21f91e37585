// Package kie talks to the Kie.ai unified Jobs API. Every generation model
// (image and lip-sync video alike) is driven through the same two endpoints:
// createTask to submit work and recordInfo to poll it.
package kie

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

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// ErrMissingAPIKey indicates a call was attempted without credentials.
var ErrMissingAPIKey = errors.New("kie: api key is required")

// Options configures the Jobs API client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration

	// MaxInflightPolls bounds concurrent recordInfo calls issued through this
	// client, so a burst of status checks sharing one credential cannot
	// amplify into a provider-side rate limit. Zero applies the default.
	MaxInflightPolls int
}

// Client performs HTTP calls to the Kie.ai Jobs API. Credentials are supplied
// per call, never stored: the server holds no provider keys of its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
	pollSem    chan struct{}
}

// APIError is a non-2xx response from the Jobs API with whatever payload the
// provider attached.
type APIError struct {
	HTTPStatus int
	Code       int
	Msg        string
}

func (e *APIError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("kie: status %d: %s (code %d)", e.HTTPStatus, e.Msg, e.Code)
	}
	return fmt.Sprintf("kie: status %d", e.HTTPStatus)
}

// Unwrap maps provider HTTP statuses onto the domain error taxonomy so the
// boundary can classify with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.HTTPStatus {
	case http.StatusUnauthorized:
		return domain.ErrAuth
	case http.StatusTooManyRequests:
		return domain.ErrRateLimit
	}
	return nil
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			// Video submissions are slow to accept; match the provider's
			// documented worst case.
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.kie.ai"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	inflight := opts.MaxInflightPolls
	if inflight <= 0 {
		inflight = 4
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		pollSem:    make(chan struct{}, inflight),
	}
}

// CreateTask submits a generation task for the given model and returns the raw
// acceptance envelope. Payload-level rejections (the API answers 200 with a
// non-success code) are returned as the envelope, not an error; the caller
// interprets them.
func (c *Client) CreateTask(ctx context.Context, apiKey, model string, input map[string]any) (*TaskEnvelope, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	body, err := json.Marshal(map[string]any{"model": model, "input": input})
	if err != nil {
		return nil, fmt.Errorf("kie: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/jobs/createTask", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("kie: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kie: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kie: read response: %w", err)
	}

	var envelope TaskEnvelope
	decodeErr := json.Unmarshal(raw, &envelope)
	if resp.StatusCode >= 300 {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = envelope.Code
			apiErr.Msg = envelope.Msg
		} else {
			apiErr.Msg = strings.TrimSpace(string(raw))
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("kie: decode response: %w", decodeErr)
	}
	c.logger.Debug().
		Str("model", model).
		Int("code", envelope.Code).
		Str("task_id", envelope.Data.TaskID).
		Msg("kie: task created")
	return &envelope, nil
}

// RecordInfo queries the status of a previously created task and returns the
// raw status envelope. Concurrency across callers is bounded by the client's
// poll semaphore.
func (c *Client) RecordInfo(ctx context.Context, apiKey, taskID string) (*StatusEnvelope, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	select {
	case c.pollSem <- struct{}{}:
		defer func() { <-c.pollSem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	endpoint := c.baseURL + "/api/v1/jobs/recordInfo?taskId=" + url.QueryEscape(taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("kie: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kie: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kie: read response: %w", err)
	}

	var envelope StatusEnvelope
	decodeErr := json.Unmarshal(raw, &envelope)
	if resp.StatusCode >= 300 {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = envelope.Code
			apiErr.Msg = envelope.Msg
		} else {
			apiErr.Msg = strings.TrimSpace(string(raw))
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("kie: decode response: %w", decodeErr)
	}
	return &envelope, nil
}
