package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/generate"
)

type videoGenerateRequest struct {
	SceneImageURL string `json:"sceneImageUrl"`
	AudioURL      string `json:"audioUrl"`
	KieAPIKey     string `json:"kieApiKey"`
}

type videoJobResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type videoStatusResponse struct {
	JobID    string  `json:"jobId"`
	Status   string  `json:"status"`
	Progress int     `json:"progress"`
	VideoURL *string `json:"videoUrl"`
}

// VideoGenerate handles POST /api/video/generate. The submission returns
// immediately; clients poll VideoStatus for progress.
func (a *App) VideoGenerate(w http.ResponseWriter, r *http.Request) {
	var req videoGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload")
		return
	}
	job, err := a.Service.GenerateVideo(r.Context(), generate.VideoInput{
		SceneImageURL: req.SceneImageURL,
		AudioURL:      req.AudioURL,
		APIKey:        a.kieKey(r, req.KieAPIKey),
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.data(w, videoJobResponse{
		JobID:   job.JobID,
		Status:  string(job.Status),
		Message: "Video generation started",
	})
}

// VideoStatus handles GET /api/video/status/{jobId}.
func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "job id is required")
		return
	}
	state, err := a.Service.VideoStatus(r.Context(), jobID, r.Header.Get("X-Kie-Api-Key"))
	if err != nil {
		a.fail(w, err)
		return
	}
	resp := videoStatusResponse{
		JobID:    state.JobID,
		Status:   string(state.Status),
		Progress: state.Progress,
	}
	if state.VideoURL != "" {
		url := state.VideoURL
		resp.VideoURL = &url
	}
	a.data(w, resp)
}
