package handlers

import (
	"net/http"
	"time"
)

// Health handles GET /api/health. MockMode reports whether the server has no
// default credentials configured; per-request keys can still enable real
// calls.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"mockMode":  a.DefaultKieKey == "" && a.DefaultElevenLabsKey == "",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
