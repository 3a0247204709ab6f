package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/faceid/internal/database"
	"github.com/kozaktomas/faceid/internal/detector"
)

func TestFacesHandler_Enroll(t *testing.T) {
	env := newTestEnv(t)
	env.face("img", []float64{0, 0, 10, 10}, 0.99, 1, 0, 0)

	req := multipartRequest(t, "/api/v1/faces/enroll",
		map[string]string{"user_id": "42"}, map[string][]string{"file": {"img"}})
	recorder := httptest.NewRecorder()

	env.handler.Enroll(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["ok"] != true {
		t.Errorf("expected ok=true, got %v", result["ok"])
	}
	if result["dim"] != float64(3) {
		t.Errorf("expected dim 3, got %v", result["dim"])
	}
	storage, _ := result["storage"].(map[string]any)
	if storage["stored"] != "primary" {
		t.Errorf("expected storage in primary tier, got %v", storage)
	}
	recs := env.primary.Records()
	if len(recs) != 1 || recs[0].Identity != "42" {
		t.Errorf("unexpected stored records: %+v", recs)
	}
}

func TestFacesHandler_Enroll_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		fields  map[string]string
		files   map[string][]string
		message string
	}{
		{"missing user_id", nil, map[string][]string{"file": {"img"}}, "user_id is required"},
		{"blank user_id", map[string]string{"user_id": "  "}, map[string][]string{"file": {"img"}}, "user_id is required"},
		{"missing file", map[string]string{"user_id": "1"}, nil, "file is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := multipartRequest(t, "/api/v1/faces/enroll", tc.fields, tc.files)
			recorder := httptest.NewRecorder()

			env.handler.Enroll(recorder, req)

			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, tc.message)
		})
	}
}

func TestFacesHandler_Enroll_NotMultipart(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/faces/enroll", strings.NewReader(`{"user_id": 1}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	env.handler.Enroll(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidMultipart)
}

func TestFacesHandler_Enroll_NoFace(t *testing.T) {
	env := newTestEnv(t)
	req := multipartRequest(t, "/api/v1/faces/enroll",
		map[string]string{"user_id": "42"}, map[string][]string{"file": {"blank"}})
	recorder := httptest.NewRecorder()

	env.handler.Enroll(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["ok"] != false || result["reason"] != "no_face_detected" {
		t.Errorf("unexpected result: %v", result)
	}
}

func TestFacesHandler_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(env *testEnv)
		expected int
	}{
		{
			name:     "detector unavailable",
			setup:    func(env *testEnv) { env.det.err = detector.ErrDetectorUnavailable },
			expected: http.StatusBadGateway,
		},
		{
			name:     "unsupported image",
			setup:    func(env *testEnv) { env.det.err = detector.ErrUnsupportedImage },
			expected: http.StatusBadRequest,
		},
		{
			name: "both tiers down",
			setup: func(env *testEnv) {
				env.face("img", []float64{0, 0, 1, 1}, 1, 1, 0)
				env.primary.AppendError = errors.New("connection refused")
				env.local.AppendError = errors.New("read-only file system")
			},
			expected: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			tc.setup(env)
			req := multipartRequest(t, "/api/v1/faces/enroll",
				map[string]string{"user_id": "42"}, map[string][]string{"file": {"img"}})
			recorder := httptest.NewRecorder()

			env.handler.Enroll(recorder, req)

			assertStatusCode(t, recorder, tc.expected)
		})
	}
}

func TestFacesHandler_EnrollBatch(t *testing.T) {
	env := newTestEnv(t)
	env.face("a", []float64{0, 0, 1, 1}, 1, 1, 0)
	env.face("c", []float64{0, 0, 1, 1}, 1, 0, 1)

	req := multipartRequest(t, "/api/v1/faces/enroll/batch",
		map[string]string{"user_id": "alice"}, map[string][]string{"files": {"a", "b", "c"}})
	recorder := httptest.NewRecorder()

	env.handler.EnrollBatch(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["enrolled"] != float64(2) || result["skipped"] != float64(1) {
		t.Errorf("unexpected counts: %v", result)
	}
}

func TestFacesHandler_EnrollBatch_NoFiles(t *testing.T) {
	env := newTestEnv(t)
	req := multipartRequest(t, "/api/v1/faces/enroll/batch", map[string]string{"user_id": "alice"}, nil)
	recorder := httptest.NewRecorder()

	env.handler.EnrollBatch(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "files is required")
}

func TestFacesHandler_Identify(t *testing.T) {
	env := newTestEnv(t)
	env.primary.AddRecord(database.EmbeddingRecord{Identity: "42", Embedding: []float32{1, 0}})
	env.primary.AddRecord(database.EmbeddingRecord{Identity: "7", Embedding: []float32{0, 1}})
	env.face("img", []float64{0, 0, 10, 10}, 0.99, 1, 0)

	req := multipartRequest(t, "/api/v1/faces/identify",
		map[string]string{"top_k": "1", "threshold": "0.5", "mode": "grouped"},
		map[string][]string{"file": {"img"}})
	recorder := httptest.NewRecorder()

	env.handler.Identify(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result struct {
		OK      bool    `json:"ok"`
		Thresh  float64 `json:"threshold"`
		Primary any     `json:"primary_user_id"`
		Results []struct {
			UserID     any     `json:"user_id"`
			Similarity float64 `json:"similarity"`
			Match      bool    `json:"match"`
		} `json:"results"`
	}
	parseJSONResponse(t, recorder, &result)
	if !result.OK || result.Thresh != 0.5 {
		t.Errorf("unexpected result header: %+v", result)
	}
	if len(result.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(result.Results))
	}
	if result.Results[0].UserID != float64(42) || result.Results[0].Similarity != 1 || !result.Results[0].Match {
		t.Errorf("unexpected top result: %+v", result.Results[0])
	}
	if result.Primary != float64(42) {
		t.Errorf("expected primary 42, got %v", result.Primary)
	}
}

func TestFacesHandler_Identify_BadParams(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		message string
	}{
		{"non-numeric top_k", map[string]string{"top_k": "three"}, `invalid top_k: "three"`},
		{"bad threshold", map[string]string{"threshold": "high"}, `invalid threshold: "high"`},
		{"bad mode", map[string]string{"mode": "hungarian"}, `invalid mode: "hungarian"`},
		{"bad bool", map[string]string{"filter_matches": "maybe"}, `invalid filter_matches: "maybe"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := multipartRequest(t, "/api/v1/faces/identify", tc.fields, map[string][]string{"file": {"img"}})
			recorder := httptest.NewRecorder()

			env.handler.Identify(recorder, req)

			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, tc.message)
		})
	}
}

func TestFacesHandler_Identify_OutOfRange(t *testing.T) {
	env := newTestEnv(t)
	req := multipartRequest(t, "/api/v1/faces/identify",
		map[string]string{"threshold": "2"}, map[string][]string{"file": {"img"}})
	recorder := httptest.NewRecorder()

	env.handler.Identify(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestFacesHandler_IdentifyMulti(t *testing.T) {
	env := newTestEnv(t)
	env.primary.AddRecord(database.EmbeddingRecord{Identity: "1", Embedding: []float32{1, 0}})
	env.face("img", []float64{0, 0, 10, 10}, 0.99, 1, 0)
	env.face("img", []float64{20, 0, 30, 10}, 0.98, 0.99, 0.1)

	req := multipartRequest(t, "/api/v1/faces/identify/multi",
		map[string]string{"exclusive_assignment": "true"}, map[string][]string{"file": {"img"}})
	recorder := httptest.NewRecorder()

	env.handler.IdentifyMulti(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result struct {
		OK        bool `json:"ok"`
		Exclusive bool `json:"exclusive_assignment"`
		Faces     []struct {
			Primary any `json:"primary_user_id"`
		} `json:"faces"`
	}
	parseJSONResponse(t, recorder, &result)
	if !result.OK || !result.Exclusive || len(result.Faces) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Faces[0].Primary != float64(1) {
		t.Errorf("stronger face should claim identity 1, got %v", result.Faces[0].Primary)
	}
	if result.Faces[1].Primary != nil {
		t.Errorf("weaker face should be unassigned, got %v", result.Faces[1].Primary)
	}
}

func TestFacesHandler_AutoEnroll(t *testing.T) {
	env := newTestEnv(t)
	env.primary.AddRecord(database.EmbeddingRecord{Identity: "42", Embedding: []float32{1, 0}})
	env.face("img", []float64{0, 0, 1, 1}, 0.99, 1, 0)
	env.face("img", []float64{0, 0, 1, 1}, 0.4, 1, 0)

	req := multipartRequest(t, "/api/v1/faces/auto-enroll",
		map[string]string{"min_similarity": "0.8"}, map[string][]string{"file": {"img"}})
	recorder := httptest.NewRecorder()
	env.handler.AutoEnroll(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["ok"] != false || result["count"] != float64(2) {
		t.Errorf("two faces should be refused: %v", result)
	}

	req = multipartRequest(t, "/api/v1/faces/auto-enroll",
		map[string]string{"min_similarity": "0.8", "min_prob": "0.9"}, map[string][]string{"file": {"img"}})
	recorder = httptest.NewRecorder()
	env.handler.AutoEnroll(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	result = nil
	parseJSONResponse(t, recorder, &result)
	if result["ok"] != true || result["enrolled_user_id"] != float64(42) {
		t.Errorf("expected enrollment of 42: %v", result)
	}
}

func TestFacesHandler_Detect(t *testing.T) {
	env := newTestEnv(t)
	env.face("img", []float64{1, 2, 3, 4}, 0.9, 1, 0)

	req := multipartRequest(t, "/api/v1/faces/detect", nil, map[string][]string{"file": {"img"}})
	recorder := httptest.NewRecorder()

	env.handler.Detect(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	body := recorder.Body.String()
	if strings.Contains(body, "embedding") {
		t.Errorf("detect response should not include embeddings: %s", body)
	}
	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["count"] != float64(1) {
		t.Errorf("expected count 1, got %v", result["count"])
	}
}

func TestFacesHandler_Stats(t *testing.T) {
	env := newTestEnv(t)
	env.local.AddRecord(database.EmbeddingRecord{Identity: "1", Embedding: []float32{1, 0}})
	env.local.AddRecord(database.EmbeddingRecord{Identity: "2", Embedding: []float32{0, 1}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faces/stats", nil)
	recorder := httptest.NewRecorder()

	env.handler.Stats(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["records"] != float64(2) || result["identities"] != float64(2) {
		t.Errorf("unexpected stats: %v", result)
	}
}
