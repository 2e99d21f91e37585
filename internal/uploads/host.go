// Package uploads publishes uploaded reference images to a URL that external
// providers can fetch. The primary host is catbox.moe (free anonymous
// hosting); when that fails, the image is kept under a local temp directory
// served by this server, which works for browsers but not for providers that
// cannot reach the server.
package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"server/internal/infra"
)

// TempMaxAge is how long locally saved fallback files are kept.
const TempMaxAge = time.Hour

// Publisher uploads image bytes and returns a public URL for them.
type Publisher struct {
	hostURL    string
	httpClient *http.Client
	dir        string
	logger     infra.Logger
}

// NewPublisher constructs a publisher. dir is created if missing.
func NewPublisher(hostURL, dir string, logger infra.Logger) (*Publisher, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("uploads: temp dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: ensure temp dir: %w", err)
	}
	if hostURL == "" {
		hostURL = "https://catbox.moe/user/api.php"
	}
	return &Publisher{
		hostURL:    hostURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		dir:        dir,
		logger:     logger,
	}, nil
}

// Dir returns the local fallback directory.
func (p *Publisher) Dir() string {
	return p.dir
}

// Publish uploads the image to the public host; when that fails it saves the
// bytes locally and returns a URL rooted at baseURL. The second return value
// reports whether the URL is publicly reachable.
func (p *Publisher) Publish(ctx context.Context, data []byte, mimeType, baseURL string) (string, bool, error) {
	hosted, err := p.uploadToHost(ctx, data, mimeType)
	if err == nil {
		p.logger.Debug().Str("url", hosted).Msg("uploads: published reference image")
		return hosted, true, nil
	}
	p.logger.Warn().Err(err).Msg("uploads: public upload failed, falling back to local file")
	local, saveErr := p.saveTemp(data, mimeType, baseURL)
	if saveErr != nil {
		return "", false, saveErr
	}
	return local, false, nil
}

func (p *Publisher) uploadToHost(ctx context.Context, data []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("reqtype", "fileupload"); err != nil {
		return "", fmt.Errorf("uploads: build form: %w", err)
	}
	part, err := form.CreateFormFile("fileToUpload", "image"+extFor(mimeType))
	if err != nil {
		return "", fmt.Errorf("uploads: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("uploads: build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("uploads: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.hostURL, &body)
	if err != nil {
		return "", fmt.Errorf("uploads: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploads: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("uploads: read response: %w", err)
	}
	// The host answers with the bare URL as plain text.
	url := strings.TrimSpace(string(raw))
	if resp.StatusCode >= 300 || !strings.HasPrefix(url, "http") {
		return "", fmt.Errorf("uploads: unexpected host response: status %d", resp.StatusCode)
	}
	return url, nil
}

func (p *Publisher) saveTemp(data []byte, mimeType, baseURL string) (string, error) {
	filename := "ref-" + uuid.NewString() + extFor(mimeType)
	path := filepath.Join(p.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("uploads: write temp file: %w", err)
	}
	return strings.TrimRight(baseURL, "/") + "/temp-uploads/" + filename, nil
}

// Cleanup removes fallback files older than maxAge and returns the number
// removed.
func (p *Publisher) Cleanup(maxAge time.Duration) int {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(p.dir, entry.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		p.logger.Debug().Int("removed", removed).Msg("uploads: cleaned temp files")
	}
	return removed
}

// RunSweeper runs Cleanup on a fixed cadence until ctx is cancelled.
func (p *Publisher) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Cleanup(TempMaxAge)
		}
	}
}

func extFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
