package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"server/internal/generate"
)

// maxReferenceImageBytes caps uploaded reference images.
const maxReferenceImageBytes = 10 << 20

type sceneGenerateRequest struct {
	Prompt              string `json:"prompt"`
	Orientation         string `json:"orientation"`
	UseDefaultReference bool   `json:"useDefaultReference"`
	KieAPIKey           string `json:"kieApiKey"`
}

type sceneResponse struct {
	ID          string    `json:"id"`
	ImageURL    string    `json:"imageUrl"`
	Prompt      string    `json:"prompt"`
	Orientation string    `json:"orientation"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// SceneGenerate handles POST /api/scene/generate. The body is either JSON or
// multipart form data carrying an optional referenceImage file.
func (a *App) SceneGenerate(w http.ResponseWriter, r *http.Request) {
	in := generate.SceneInput{BaseURL: requestBaseURL(r)}
	var bodyKey string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxReferenceImageBytes); err != nil {
			a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid multipart payload")
			return
		}
		in.Prompt = r.FormValue("prompt")
		in.Orientation = r.FormValue("orientation")
		in.UseDefaultReference = r.FormValue("useDefaultReference") == "true"
		bodyKey = r.FormValue("kieApiKey")

		if file, header, err := r.FormFile("referenceImage"); err == nil {
			defer file.Close()
			mimeType := header.Header.Get("Content-Type")
			if !strings.HasPrefix(mimeType, "image/") {
				a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "only image files are allowed")
				return
			}
			data, err := io.ReadAll(io.LimitReader(file, maxReferenceImageBytes+1))
			if err != nil || len(data) > maxReferenceImageBytes {
				a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "reference image exceeds 10MB limit")
				return
			}
			in.ReferenceData = data
			in.ReferenceMIME = mimeType
		}
	} else {
		var req sceneGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload")
			return
		}
		in.Prompt = req.Prompt
		in.Orientation = req.Orientation
		in.UseDefaultReference = req.UseDefaultReference
		bodyKey = req.KieAPIKey
	}

	in.APIKey = a.kieKey(r, bodyKey)

	out, err := a.Service.GenerateScene(r.Context(), in)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.data(w, sceneResponse{
		ID:          out.ID,
		ImageURL:    out.ImageURL,
		Prompt:      out.Prompt,
		Orientation: out.Orientation,
		GeneratedAt: out.GeneratedAt,
	})
}
