// Package handlers exposes the generation orchestrator over HTTP. Response
// envelopes and error codes match the wizard frontend's contract:
// {success:true,data:{...}} on success, {error:{message,code,hint?}} on
// failure.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"server/internal/domain"
	"server/internal/generate"
	"server/internal/infra"
)

// App is the handler container.
type App struct {
	Service *generate.Service
	Logger  infra.Logger

	// Default credentials from the environment; per-request keys win.
	DefaultKieKey        string
	DefaultElevenLabsKey string
}

// NewApp wires the handler container.
func NewApp(service *generate.Service, logger infra.Logger) *App {
	return &App{Service: service, Logger: logger}
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Hint    string `json:"hint,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) data(w http.ResponseWriter, v any) {
	a.json(w, http.StatusOK, map[string]any{"success": true, "data": v})
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{"error": errorBody{Message: message, Code: code}})
}

// fail maps a classified domain error onto the HTTP contract.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, domain.ErrAuth):
		a.error(w, http.StatusUnauthorized, "AUTH_ERROR", "Invalid API key")
	case errors.Is(err, domain.ErrRateLimit):
		a.error(w, http.StatusTooManyRequests, "RATE_LIMIT", "Rate limit exceeded. Please try again later.")
	case errors.Is(err, domain.ErrNoAccessibleModel), errors.Is(err, domain.ErrAccessDenied):
		a.json(w, http.StatusForbidden, map[string]any{"error": errorBody{
			Message: err.Error(),
			Code:    "ACCESS_DENIED",
			Hint:    "The API key needs access to lip sync/video models. Check the provider account settings.",
		}})
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
	case errors.Is(err, domain.ErrTimeout):
		a.error(w, http.StatusGatewayTimeout, "TIMEOUT", err.Error())
	case errors.Is(err, domain.ErrProviderFailed):
		a.error(w, http.StatusBadGateway, "PROVIDER_FAILED", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("unclassified handler error")
		a.error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// NotFound is the JSON 404 handler for unknown routes.
func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.error(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
}

// kieKey resolves the Kie.ai credential: header, then body field, then the
// configured default. Empty means mock mode.
func (a *App) kieKey(r *http.Request, bodyKey string) string {
	if key := r.Header.Get("X-Kie-Api-Key"); key != "" {
		return key
	}
	if bodyKey != "" {
		return bodyKey
	}
	return a.DefaultKieKey
}

func (a *App) elevenLabsKey(r *http.Request, bodyKey string) string {
	if key := r.Header.Get("X-Elevenlabs-Api-Key"); key != "" {
		return key
	}
	if bodyKey != "" {
		return bodyKey
	}
	return a.DefaultElevenLabsKey
}

// requestBaseURL reconstructs this server's externally visible base URL for
// locally hosted fallback files.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
