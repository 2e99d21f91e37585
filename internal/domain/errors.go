package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrAuth              = errors.New("invalid api key")
	ErrRateLimit         = errors.New("rate limit exceeded")
	ErrAccessDenied      = errors.New("model access denied")
	ErrNoAccessibleModel = errors.New("no accessible video model")
	ErrTimeout           = errors.New("generation timed out")
	ErrProviderFailed    = errors.New("provider reported failure")
)
