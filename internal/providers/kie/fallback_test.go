package kie

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"server/internal/domain"
)

type stubCreator struct {
	responses []stubCreation
	models    []string
}

type stubCreation struct {
	payload string
	err     error
}

func (s *stubCreator) CreateTask(ctx context.Context, apiKey, model string, input map[string]any) (*TaskEnvelope, error) {
	s.models = append(s.models, model)
	idx := len(s.models) - 1
	if idx >= len(s.responses) {
		return nil, errors.New("unexpected call")
	}
	next := s.responses[idx]
	if next.err != nil {
		return nil, next.err
	}
	var envelope TaskEnvelope
	if err := json.Unmarshal([]byte(next.payload), &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

const (
	deniedPayload   = `{"code":401,"msg":"no access permissions for this model"}`
	acceptedPayload = `{"code":200,"msg":"success","data":{"taskId":"task-9"}}`
)

func TestSubmitVideoSkipsDeniedModels(t *testing.T) {
	creator := &stubCreator{responses: []stubCreation{
		{payload: deniedPayload},
		{payload: deniedPayload},
		{payload: acceptedPayload},
	}}
	envelope, err := SubmitVideo(context.Background(), creator, nil, "key", VideoRequest{
		ImageURL: "https://x/a.png",
		AudioURL: "https://x/a.mp3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope.Data.TaskID != "task-9" {
		t.Fatalf("task id = %q", envelope.Data.TaskID)
	}
	want := []string{"infinitalk/from-audio", "infinitalk", "klingai/avatar"}
	if len(creator.models) != len(want) {
		t.Fatalf("models tried = %v", creator.models)
	}
	for i, model := range want {
		if creator.models[i] != model {
			t.Fatalf("candidate order: got %v, want %v", creator.models, want)
		}
	}
}

func TestSubmitVideoShortCircuitsOnFirstAccept(t *testing.T) {
	creator := &stubCreator{responses: []stubCreation{{payload: acceptedPayload}}}
	envelope, err := SubmitVideo(context.Background(), creator, nil, "key", VideoRequest{
		ImageURL: "https://x/a.png",
		AudioURL: "https://x/a.mp3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope.Data.TaskID != "task-9" {
		t.Fatalf("task id = %q", envelope.Data.TaskID)
	}
	if len(creator.models) != 1 {
		t.Fatalf("models tried = %v, want only the first", creator.models)
	}
}

func TestSubmitVideoAllDeniedFailsWithNoAccessibleModel(t *testing.T) {
	creator := &stubCreator{responses: []stubCreation{
		{payload: deniedPayload},
		{payload: deniedPayload},
		{payload: deniedPayload},
	}}
	_, err := SubmitVideo(context.Background(), creator, nil, "key", VideoRequest{
		ImageURL: "https://x/a.png",
		AudioURL: "https://x/a.mp3",
	})
	if !errors.Is(err, domain.ErrNoAccessibleModel) {
		t.Fatalf("error = %v, want ErrNoAccessibleModel", err)
	}
	if !strings.Contains(err.Error(), "enable access") {
		t.Fatalf("error should carry remediation guidance, got %q", err.Error())
	}
}

func TestSubmitVideoTransientErrorAdvancesToNextCandidate(t *testing.T) {
	creator := &stubCreator{responses: []stubCreation{
		{err: errors.New("connection reset")},
		{payload: acceptedPayload},
	}}
	envelope, err := SubmitVideo(context.Background(), creator, nil, "key", VideoRequest{
		ImageURL: "https://x/a.png",
		AudioURL: "https://x/a.mp3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope.Data.TaskID != "task-9" {
		t.Fatalf("task id = %q", envelope.Data.TaskID)
	}
	if len(creator.models) != 2 {
		t.Fatalf("models tried = %v", creator.models)
	}
}

func TestSubmitVideoHTTPDenialSkips(t *testing.T) {
	creator := &stubCreator{responses: []stubCreation{
		{err: &APIError{HTTPStatus: 200, Code: 401, Msg: "no access permissions"}},
		{payload: acceptedPayload},
	}}
	envelope, err := SubmitVideo(context.Background(), creator, nil, "key", VideoRequest{
		ImageURL: "https://x/a.png",
		AudioURL: "https://x/a.mp3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope.Data.TaskID != "task-9" {
		t.Fatalf("task id = %q", envelope.Data.TaskID)
	}
}

func TestSubmitVideoDefaultsPrompt(t *testing.T) {
	var gotInput map[string]any
	creator := &captureCreator{payload: acceptedPayload, capture: func(model string, input map[string]any) {
		gotInput = input
	}}
	if _, err := SubmitVideo(context.Background(), creator, nil, "key", VideoRequest{
		ImageURL: "https://x/a.png",
		AudioURL: "https://x/a.mp3",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotInput["prompt"] != DefaultVideoPrompt {
		t.Fatalf("prompt = %v, want default", gotInput["prompt"])
	}
	if gotInput["resolution"] != "480p" {
		t.Fatalf("resolution = %v", gotInput["resolution"])
	}
}

type captureCreator struct {
	payload string
	capture func(model string, input map[string]any)
}

func (c *captureCreator) CreateTask(ctx context.Context, apiKey, model string, input map[string]any) (*TaskEnvelope, error) {
	if c.capture != nil {
		c.capture(model, input)
	}
	var envelope TaskEnvelope
	if err := json.Unmarshal([]byte(c.payload), &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

func TestSubmitSceneUsesEditModelWithReference(t *testing.T) {
	var models []string
	var inputs []map[string]any
	creator := &captureCreator{payload: acceptedPayload, capture: func(model string, input map[string]any) {
		models = append(models, model)
		inputs = append(inputs, input)
	}}
	if _, err := SubmitScene(context.Background(), creator, nil, "key", SceneRequest{
		Prompt:       "a person at a desk",
		Size:         "9:16",
		ReferenceURL: "https://files.example/ref.png",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0] != "google/nano-banana-edit" {
		t.Fatalf("models = %v, want the edit model", models)
	}
	urls, ok := inputs[0]["image_urls"].([]string)
	if !ok || len(urls) != 1 || urls[0] != "https://files.example/ref.png" {
		t.Fatalf("image_urls = %v", inputs[0]["image_urls"])
	}
}

func TestSubmitSceneFallsBackToTextToImage(t *testing.T) {
	creator := &stubCreator{responses: []stubCreation{
		{err: errors.New("edit model unavailable")},
		{payload: acceptedPayload},
	}}
	envelope, err := SubmitScene(context.Background(), creator, nil, "key", SceneRequest{
		Prompt:       "a person at a desk",
		Size:         "16:9",
		ReferenceURL: "https://files.example/ref.png",
	})
	if err != nil {
		t.Fatalf("unexpected error: the edit failure should be discarded, got %v", err)
	}
	if envelope.Data.TaskID != "task-9" {
		t.Fatalf("task id = %q", envelope.Data.TaskID)
	}
	want := []string{"google/nano-banana-edit", "google/nano-banana"}
	for i, model := range want {
		if creator.models[i] != model {
			t.Fatalf("models = %v, want %v", creator.models, want)
		}
	}
}

func TestSubmitSceneWithoutReferenceSkipsEditModel(t *testing.T) {
	creator := &stubCreator{responses: []stubCreation{{payload: acceptedPayload}}}
	if _, err := SubmitScene(context.Background(), creator, nil, "key", SceneRequest{
		Prompt: "a person at a desk",
		Size:   "9:16",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(creator.models) != 1 || creator.models[0] != "google/nano-banana" {
		t.Fatalf("models = %v, want only text-to-image", creator.models)
	}
}
