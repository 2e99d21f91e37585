package kie

import (
	"encoding/json"
	"strconv"
	"strings"
)

// TaskEnvelope is the raw acceptance payload from createTask. Besides the
// asynchronous taskId shape, some models have answered synchronously with the
// result URL inline; those fields are kept so the caller can detect that.
type TaskEnvelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID   string `json:"taskId"`
		ImageURL string `json:"image_url"`
	} `json:"data"`
	ImageURL string `json:"image_url"`
	URL      string `json:"url"`
}

// DirectResultURL returns the inline result URL of a synchronous response,
// or "" for the normal asynchronous shape.
func (e *TaskEnvelope) DirectResultURL() string {
	if e == nil {
		return ""
	}
	for _, u := range []string{e.ImageURL, e.URL, e.Data.ImageURL} {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Accepted reports whether the provider took the task. Both 0 and 200 have
// been observed as success codes.
func (e *TaskEnvelope) Accepted() bool {
	return e != nil && (e.Code == 0 || e.Code == 200) && strings.TrimSpace(e.Data.TaskID) != ""
}

// accessDeniedPhrase is the provider's wording when a key lacks access to a
// gated model, as opposed to being invalid outright.
const accessDeniedPhrase = "access permission"

// PermissionDenied reports whether the payload indicates the credential lacks
// access to the requested model.
func (e *TaskEnvelope) PermissionDenied() bool {
	if e == nil {
		return false
	}
	return e.Code == 401 || strings.Contains(strings.ToLower(e.Msg), accessDeniedPhrase)
}

// TaskState is the normalized status of an asynchronous task.
type TaskState int

const (
	StateProcessing TaskState = iota
	StateSucceeded
	StateFailed
)

// StatusEnvelope is the raw status payload from recordInfo. Data is kept
// loose: the provider nests results differently per model, and the extraction
// rules below handle the known shapes in order.
type StatusEnvelope struct {
	Code int            `json:"code"`
	Msg  string         `json:"msg"`
	Data map[string]any `json:"data"`
}

// OK reports whether the status query itself succeeded.
func (e *StatusEnvelope) OK() bool {
	return e != nil && (e.Code == 0 || e.Code == 200) && e.Data != nil
}

// State normalizes the task state. The provider spells success as any of
// "completed", "success" or "done", and failure as "failed" or "error";
// anything else still counts as processing.
func (e *StatusEnvelope) State() TaskState {
	if !e.OK() {
		return StateProcessing
	}
	state := stringField(e.Data, "state")
	if state == "" {
		state = stringField(e.Data, "status")
	}
	switch strings.ToLower(state) {
	case "completed", "success", "done":
		return StateSucceeded
	case "failed", "error":
		return StateFailed
	}
	return StateProcessing
}

// FailureMessage returns the provider's failure detail, preferring the
// dedicated failMsg field.
func (e *StatusEnvelope) FailureMessage() string {
	if e == nil || e.Data == nil {
		return ""
	}
	if msg := stringField(e.Data, "failMsg"); msg != "" {
		return msg
	}
	if msg := stringField(e.Data, "error"); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.Msg)
}

// Progress reports completion percent. Some models report a 0-1 fraction,
// others 0-100; both are normalized to 0-100.
func (e *StatusEnvelope) Progress() int {
	if e == nil || e.Data == nil {
		return 0
	}
	var value float64
	switch v := e.Data["progress"].(type) {
	case float64:
		value = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		value = parsed
	default:
		return 0
	}
	if value > 0 && value <= 1 {
		value *= 100
	}
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return int(value)
}

// ResultExtractor attempts to pull a result URL out of the status data. Each
// extractor is pure; a non-empty return wins and later rules are not consulted.
type ResultExtractor struct {
	Name    string
	Extract func(data map[string]any) string
}

// ResultExtractors encodes the provider's known result-nesting quirks as data,
// in the order they should be tried.
var ResultExtractors = []ResultExtractor{
	// resultJson is a JSON document serialized into a string field. It is
	// tried first because when present it is the authoritative result list.
	{Name: "resultJson", Extract: extractResultJSON},
	{Name: "direct", Extract: extractDirect},
	{Name: "outputObject", Extract: extractOutputObject},
	{Name: "outputArray", Extract: extractOutputArray},
}

// ResultURL applies the extraction rules in order and returns the first
// non-empty URL, or "" when no rule matches.
func (e *StatusEnvelope) ResultURL() string {
	if e == nil || e.Data == nil {
		return ""
	}
	for _, rule := range ResultExtractors {
		if u := rule.Extract(e.Data); u != "" {
			return u
		}
	}
	return ""
}

func extractResultJSON(data map[string]any) string {
	raw := stringField(data, "resultJson")
	if raw == "" {
		return ""
	}
	var result struct {
		ResultUrls []string `json:"resultUrls"`
		URL        string   `json:"url"`
		ImageURL   string   `json:"image_url"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return ""
	}
	if len(result.ResultUrls) > 0 && strings.TrimSpace(result.ResultUrls[0]) != "" {
		return strings.TrimSpace(result.ResultUrls[0])
	}
	if u := strings.TrimSpace(result.URL); u != "" {
		return u
	}
	return strings.TrimSpace(result.ImageURL)
}

func extractDirect(data map[string]any) string {
	for _, key := range []string{"output", "result", "fileUrl", "imageUrl", "video_url", "output_url"} {
		if s, ok := data[key].(string); ok {
			if u := strings.TrimSpace(s); u != "" {
				return u
			}
		}
	}
	return ""
}

func extractOutputObject(data map[string]any) string {
	for _, key := range []string{"output", "result"} {
		obj, ok := data[key].(map[string]any)
		if !ok {
			continue
		}
		for _, field := range []string{"video_url", "image_url", "url"} {
			if u := stringField(obj, field); u != "" {
				return u
			}
		}
	}
	return ""
}

func extractOutputArray(data map[string]any) string {
	arr, ok := data["output"].([]any)
	if !ok || len(arr) == 0 {
		return ""
	}
	switch first := arr[0].(type) {
	case string:
		return strings.TrimSpace(first)
	case map[string]any:
		for _, field := range []string{"url", "video_url", "image_url"} {
			if u := stringField(first, field); u != "" {
				return u
			}
		}
	}
	return ""
}

func stringField(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
