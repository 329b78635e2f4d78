package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestClientSendsBearerToken(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /jobs": `[]`,
	})

	resp, err := ts.client().get(ctx, "/jobs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if len(ts.requests) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", ts.requests[0].Auth)
	}
}

func TestCreateJobRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /jobs": `{"ID":"job-123","Title":"Backend Engineer"}`,
	})

	resp, err := ts.client().post(ctx, "/jobs", map[string]string{
		"title":       "Backend Engineer",
		"description": "Builds services.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var job struct {
		ID    string `json:"ID"`
		Title string `json:"Title"`
	}
	if err := decodeJSON(resp, &job); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if job.ID != "job-123" {
		t.Errorf("ID = %q, want job-123", job.ID)
	}

	if !strings.Contains(ts.requests[0].Body, `"title":"Backend Engineer"`) {
		t.Errorf("request body = %s, missing title", ts.requests[0].Body)
	}
}

func TestEvaluateRequestDecodesResults(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /jobs/job-1/evaluations": `[
			{"session_id":"s-1","display_name":"alice","integrated_score":0.424,"verdict":"rejected","answered_count":2},
			{"session_id":"s-2","display_name":"bob","resume_score":0.9,"integrated_score":0.91,"verdict":"strong_hire","answered_count":3}
		]`,
	})

	resp, err := ts.client().get(ctx, "/jobs/job-1/evaluations")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var results []struct {
		SessionID       string   `json:"session_id"`
		ResumeScore     *float64 `json:"resume_score"`
		IntegratedScore float64  `json:"integrated_score"`
		Verdict         string   `json:"verdict"`
	}
	if err := decodeJSON(resp, &results); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ResumeScore != nil {
		t.Errorf("results[0].ResumeScore = %v, want nil", results[0].ResumeScore)
	}
	if results[1].Verdict != "strong_hire" {
		t.Errorf("results[1].Verdict = %q, want strong_hire", results[1].Verdict)
	}
}

func TestDecodeJSONSurfacesServerError(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	resp, err := ts.client().get(ctx, "/jobs/missing/evaluations")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var v any
	err = decodeJSON(resp, &v)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want mention of status 404", err)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want the server's error message surfaced", err)
	}
}

func TestSetSessionStatusRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PATCH /sessions/s-1/status": `{"status":"completed"}`,
	})

	resp, err := ts.client().patch(ctx, "/sessions/s-1/status", map[string]string{"status": "completed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result["status"] != "completed" {
		t.Errorf("status = %q, want completed", result["status"])
	}

	var sent map[string]string
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &sent); err != nil {
		t.Fatalf("unmarshal recorded body: %v", err)
	}
	if sent["status"] != "completed" {
		t.Errorf("sent status = %q, want completed", sent["status"])
	}
}

func TestVerdictLabelCoversAllVerdicts(t *testing.T) {
	noColor = true
	t.Cleanup(func() { noColor = false })

	for _, v := range []string{"strong_hire", "potential", "rejected"} {
		if got := verdictLabel(v); got != v {
			t.Errorf("verdictLabel(%q) = %q, want unchanged text with colors disabled", v, got)
		}
	}
}

func TestScoreCellFormatsAbsentAsDash(t *testing.T) {
	if got := scoreCell(nil); !strings.Contains(got, "-") {
		t.Errorf("scoreCell(nil) = %q, want a dash", got)
	}
	score := 0.424
	if got := scoreCell(&score); got != "0.424" {
		t.Errorf("scoreCell(0.424) = %q, want 0.424", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID(long) = %q, want 01234567", got)
	}
	if got := shortID("q-1"); got != "q-1" {
		t.Errorf("shortID(short) = %q, want unchanged", got)
	}
}
