package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/database"
	"github.com/kozaktomas/faceid/internal/database/mock"
	"github.com/kozaktomas/faceid/internal/detector"
	"github.com/kozaktomas/faceid/internal/faceid"
)

// stubDetector returns faces keyed by the uploaded bytes.
type stubDetector struct {
	mu    sync.Mutex
	faces map[string][]detector.Face
	err   error
}

func (d *stubDetector) DetectFaces(_ context.Context, image []byte) ([]detector.Face, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.faces[string(image)], nil
}

type testEnv struct {
	handler *FacesHandler
	det     *stubDetector
	primary *mock.MockBackend
	local   *mock.MockBackend
}

// newTestEnv creates a FacesHandler backed by a stub detector and mock store tiers.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		det:     &stubDetector{faces: make(map[string][]detector.Face)},
		primary: mock.NewMockBackend(),
		local:   mock.NewMockBackend(),
	}
	store := database.NewStore(env.primary, env.local)
	svc := faceid.NewService(env.det, store, config.DefaultMatching(), 2)
	env.handler = NewFacesHandler(svc)
	return env
}

func (e *testEnv) face(image string, box []float64, prob float64, emb ...float32) {
	e.det.faces[image] = append(e.det.faces[image], detector.Face{Box: box, Probability: &prob, Embedding: emb})
}

// multipartRequest builds a multipart POST with form fields and files.
func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string][]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for field, contents := range files {
		for _, c := range contents {
			part, err := writer.CreateFormFile(field, "image.jpg")
			if err != nil {
				t.Fatalf("create form file: %v", err)
			}
			part.Write([]byte(c))
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
