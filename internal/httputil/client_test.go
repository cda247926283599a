package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockHTTPClientQueuedResponses(t *testing.T) {
	client := NewMockHTTPClient()
	client.AddResponse(http.StatusOK, "first")
	client.AddResponse(http.StatusNotFound, "second")

	resp, err := client.Get("http://example.com/a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "first" {
		t.Errorf("got status %d body %q, want 200 %q", resp.StatusCode, body, "first")
	}

	resp, err = client.Get("http://example.com/b")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || string(body) != "second" {
		t.Errorf("got status %d body %q, want 404 %q", resp.StatusCode, body, "second")
	}

	if client.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2", client.RequestCount())
	}
}

func TestMockHTTPClientQueuedError(t *testing.T) {
	wantErr := errors.New("connection refused")
	client := NewMockHTTPClient()
	client.AddError(wantErr)

	_, err := client.Get("http://example.com")
	if !errors.Is(err, wantErr) {
		t.Errorf("got error %v, want %v", err, wantErr)
	}
}

func TestMockHTTPClientExhaustedQueue(t *testing.T) {
	client := NewMockHTTPClient()
	if _, err := client.Get("http://example.com"); err == nil {
		t.Error("expected error when no response queued")
	}
}

func TestMockHTTPClientDoFunc(t *testing.T) {
	client := NewMockHTTPClient()
	client.DoFunc = func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("custom handler")
	}
	if _, err := client.Get("http://example.com"); err == nil {
		t.Error("expected error from DoFunc")
	}
	if client.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", client.RequestCount())
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"count": 3})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var decoded map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response not valid JSON: %v", err)
	}
	if decoded["count"] != 3 {
		t.Errorf("count = %d, want 3", decoded["count"])
	}
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest(rec, "bad input")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	var decoded map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response not valid JSON: %v", err)
	}
	if decoded["error"] != "bad input" {
		t.Errorf("error = %q, want %q", decoded["error"], "bad input")
	}
}
