package kie

import (
	"encoding/json"
	"testing"
)

func statusEnvelope(t *testing.T, payload string) *StatusEnvelope {
	t.Helper()
	var envelope StatusEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return &envelope
}

func TestStateSpellings(t *testing.T) {
	cases := []struct {
		state string
		want  TaskState
	}{
		{"completed", StateSucceeded},
		{"success", StateSucceeded},
		{"done", StateSucceeded},
		{"SUCCESS", StateSucceeded},
		{"failed", StateFailed},
		{"error", StateFailed},
		{"waiting", StateProcessing},
		{"", StateProcessing},
	}
	for _, tc := range cases {
		envelope := statusEnvelope(t, `{"code":200,"data":{"state":"`+tc.state+`"}}`)
		if got := envelope.State(); got != tc.want {
			t.Fatalf("state %q normalized to %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestStateFallsBackToStatusField(t *testing.T) {
	envelope := statusEnvelope(t, `{"code":0,"data":{"status":"done"}}`)
	if got := envelope.State(); got != StateSucceeded {
		t.Fatalf("state = %v, want succeeded", got)
	}
}

func TestResultURLFromResultJSON(t *testing.T) {
	envelope := statusEnvelope(t, `{"code":200,"data":{"state":"completed","resultJson":"{\"resultUrls\":[\"https://cdn.example/a.png\"]}"}}`)
	if got := envelope.ResultURL(); got != "https://cdn.example/a.png" {
		t.Fatalf("result url = %q", got)
	}
}

func TestResultJSONWinsOverLaterRules(t *testing.T) {
	envelope := statusEnvelope(t, `{"code":200,"data":{"state":"completed","resultJson":"{\"url\":\"https://cdn.example/from-json.png\"}","output":"https://cdn.example/direct.png"}}`)
	if got := envelope.ResultURL(); got != "https://cdn.example/from-json.png" {
		t.Fatalf("result url = %q, want the resultJson extraction to win", got)
	}
}

func TestResultURLDirectFields(t *testing.T) {
	for _, field := range []string{"output", "result", "fileUrl", "imageUrl"} {
		envelope := statusEnvelope(t, `{"code":200,"data":{"state":"completed","`+field+`":"https://cdn.example/x.png"}}`)
		if got := envelope.ResultURL(); got != "https://cdn.example/x.png" {
			t.Fatalf("field %s: result url = %q", field, got)
		}
	}
}

func TestResultURLOutputObject(t *testing.T) {
	envelope := statusEnvelope(t, `{"code":200,"data":{"state":"completed","output":{"video_url":"https://cdn.example/v.mp4"}}}`)
	if got := envelope.ResultURL(); got != "https://cdn.example/v.mp4" {
		t.Fatalf("result url = %q", got)
	}
}

func TestResultURLOutputArray(t *testing.T) {
	envelope := statusEnvelope(t, `{"code":200,"data":{"state":"completed","output":[{"url":"https://cdn.example/first.png"}]}}`)
	if got := envelope.ResultURL(); got != "https://cdn.example/first.png" {
		t.Fatalf("result url = %q", got)
	}
	envelope = statusEnvelope(t, `{"code":200,"data":{"state":"completed","output":["https://cdn.example/plain.png"]}}`)
	if got := envelope.ResultURL(); got != "https://cdn.example/plain.png" {
		t.Fatalf("result url = %q", got)
	}
}

func TestResultURLMalformedResultJSONFallsThrough(t *testing.T) {
	envelope := statusEnvelope(t, `{"code":200,"data":{"state":"completed","resultJson":"{not json","fileUrl":"https://cdn.example/fallback.png"}}`)
	if got := envelope.ResultURL(); got != "https://cdn.example/fallback.png" {
		t.Fatalf("result url = %q, want the later rule to apply", got)
	}
}

func TestResultURLEmpty(t *testing.T) {
	envelope := statusEnvelope(t, `{"code":200,"data":{"state":"completed"}}`)
	if got := envelope.ResultURL(); got != "" {
		t.Fatalf("result url = %q, want empty", got)
	}
}

func TestFailureMessagePrecedence(t *testing.T) {
	envelope := statusEnvelope(t, `{"code":200,"msg":"outer","data":{"state":"failed","failMsg":"model exploded","error":"secondary"}}`)
	if got := envelope.FailureMessage(); got != "model exploded" {
		t.Fatalf("failure message = %q", got)
	}
	envelope = statusEnvelope(t, `{"code":200,"msg":"outer","data":{"state":"failed"}}`)
	if got := envelope.FailureMessage(); got != "outer" {
		t.Fatalf("failure message = %q", got)
	}
}

func TestProgressNormalization(t *testing.T) {
	cases := []struct {
		payload string
		want    int
	}{
		{`{"code":200,"data":{"progress":42}}`, 42},
		{`{"code":200,"data":{"progress":0.5}}`, 50},
		{`{"code":200,"data":{"progress":"0.25"}}`, 25},
		{`{"code":200,"data":{"progress":250}}`, 100},
		{`{"code":200,"data":{}}`, 0},
	}
	for _, tc := range cases {
		envelope := statusEnvelope(t, tc.payload)
		if got := envelope.Progress(); got != tc.want {
			t.Fatalf("payload %s: progress = %d, want %d", tc.payload, got, tc.want)
		}
	}
}

func TestTaskEnvelopeAccepted(t *testing.T) {
	var envelope TaskEnvelope
	if err := json.Unmarshal([]byte(`{"code":200,"msg":"success","data":{"taskId":"t-1"}}`), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Accepted() {
		t.Fatalf("envelope should be accepted")
	}
	var rejected TaskEnvelope
	if err := json.Unmarshal([]byte(`{"code":500,"msg":"boom"}`), &rejected); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rejected.Accepted() {
		t.Fatalf("envelope should not be accepted")
	}
}

func TestTaskEnvelopePermissionDenied(t *testing.T) {
	var byCode TaskEnvelope
	byCode.Code = 401
	if !byCode.PermissionDenied() {
		t.Fatalf("code 401 should be a permission denial")
	}
	var byMsg TaskEnvelope
	byMsg.Code = 200
	byMsg.Msg = "current key lacks Access Permissions for this model"
	if !byMsg.PermissionDenied() {
		t.Fatalf("access-permission message should be a permission denial")
	}
	var ok TaskEnvelope
	ok.Code = 200
	if ok.PermissionDenied() {
		t.Fatalf("plain success should not be a denial")
	}
}
