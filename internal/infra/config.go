package infra

import (
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
// Every field has a working default: with no environment at all the server runs
// entirely in mock mode.
type Config struct {
	AppEnv string
	Port   string

	// Optional server-side default credentials. Per-request keys always win;
	// these exist for local development convenience only and are never persisted.
	KieAPIKey        string
	ElevenLabsAPIKey string

	KieBaseURL        string
	ElevenLabsBaseURL string

	// Inline scene polling budget.
	PollInterval time.Duration
	PollAttempts int

	DefaultReferenceURL string
	TempUploadsDir      string
	UploadHostURL       string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "3001"),
		KieAPIKey:           os.Getenv("KIE_API_KEY"),
		ElevenLabsAPIKey:    os.Getenv("ELEVENLABS_API_KEY"),
		KieBaseURL:          getEnv("KIE_BASE_URL", "https://api.kie.ai"),
		ElevenLabsBaseURL:   getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		PollInterval:        time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 2)),
		PollAttempts:        getEnvInt("POLL_MAX_ATTEMPTS", 60),
		DefaultReferenceURL: getEnv("DEFAULT_REFERENCE_URL", "https://files.catbox.moe/vc80ln.png"),
		TempUploadsDir:      getEnv("TEMP_UPLOADS_DIR", "temp-uploads"),
		UploadHostURL:       getEnv("UPLOAD_HOST_URL", "https://catbox.moe/user/api.php"),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
