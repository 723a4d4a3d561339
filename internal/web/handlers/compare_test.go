package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facelens/internal/controller"
	"github.com/kozaktomas/facelens/internal/database"
	"github.com/kozaktomas/facelens/internal/detector"
	"github.com/kozaktomas/facelens/internal/detector/mock"
	"github.com/kozaktomas/facelens/internal/face"
)

// sequenced answers Detect call n with results[n-1].
func sequenced(results ...[]face.DetectionResult) *mock.Detector {
	det := mock.New()
	det.DetectFn = func(ctx context.Context, call int, data []byte, opts detector.Options) ([]face.DetectionResult, error) {
		if call > len(results) {
			return nil, nil
		}
		return results[call-1], nil
	}
	return det
}

func TestCompareHandler_Live(t *testing.T) {
	// Live frame first, then the upload.
	det := sequenced(
		[]face.DetectionResult{testFace(0.6, 0, 0), testFace(0.9, 1, 1)},
		[]face.DetectionResult{testFace(0.8, 1, 1.3), testFace(0.8, 5, 5)},
	)
	env := newTestEnv(t, det)
	handler := NewCompareHandler(env.ctrl, env.validate)

	req := multipartRequest(t, "/api/v1/compare/live", map[string][]byte{"photo": testPNG(t, 30, 30)})
	recorder := httptest.NewRecorder()
	handler.Live(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		ComparisonID string `json:"comparison_id"`
		ProbeIndex   int    `json:"probe_index"`
		Results      []struct {
			CandidateIndex int    `json:"candidate_index"`
			Match          bool   `json:"match"`
			Verdict        string `json:"verdict"`
			DistanceText   string `json:"distance_text"`
		} `json:"results"`
		Image string `json:"image"`
	}
	parseJSONResponse(t, recorder, &resp)

	if resp.ProbeIndex != 1 {
		t.Errorf("expected the highest scoring live face as probe, got %d", resp.ProbeIndex)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected one outcome per uploaded face, got %d", len(resp.Results))
	}
	if !resp.Results[0].Match || resp.Results[0].Verdict != controller.VerdictLiveMatch || resp.Results[0].DistanceText != "0.30" {
		t.Errorf("unexpected first outcome %+v", resp.Results[0])
	}
	if resp.Results[1].Match || resp.Results[1].Verdict != controller.VerdictLiveNoMatch {
		t.Errorf("unexpected second outcome %+v", resp.Results[1])
	}
	if resp.Image == "" {
		t.Error("expected annotated upload")
	}
	if len(env.history.Records()) != 2 {
		t.Errorf("expected 2 stored records, got %d", len(env.history.Records()))
	}
}

func TestCompareHandler_LiveNoFace(t *testing.T) {
	env := newTestEnv(t, sequenced(nil, []face.DetectionResult{testFace(0.9, 1)}))
	handler := NewCompareHandler(env.ctrl, env.validate)

	recorder := httptest.NewRecorder()
	handler.Live(recorder, multipartRequest(t, "/api/v1/compare/live", map[string][]byte{"photo": testPNG(t, 10, 10)}))

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	assertJSONError(t, recorder, "No face detected in the video feed.")
}

func TestCompareHandler_Photos(t *testing.T) {
	det := sequenced(
		[]face.DetectionResult{testFace(0.9, 0, 0), testFace(0.9, 3, 3)},
		[]face.DetectionResult{testFace(0.9, 0, 0.6)},
	)
	env := newTestEnv(t, det)
	handler := NewCompareHandler(env.ctrl, env.validate)

	req := multipartRequest(t, "/api/v1/compare/photos", map[string][]byte{
		"photo1": testPNG(t, 20, 20),
		"photo2": testPNG(t, 20, 20),
	})
	recorder := httptest.NewRecorder()
	handler.Photos(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Results []struct {
			ProbeIndex     int    `json:"probe_index"`
			CandidateIndex int    `json:"candidate_index"`
			Verdict        string `json:"verdict"`
			DistanceText   string `json:"distance_text"`
		} `json:"results"`
		Image1 string `json:"image1"`
		Image2 string `json:"image2"`
	}
	parseJSONResponse(t, recorder, &resp)

	if len(resp.Results) != 2 {
		t.Fatalf("expected 2x1 outcomes, got %d", len(resp.Results))
	}
	// A distance of exactly 0.6 is a different person.
	if resp.Results[0].Verdict != controller.VerdictPhotoNoMatch || resp.Results[0].DistanceText != "0.6000" {
		t.Errorf("unexpected boundary outcome %+v", resp.Results[0])
	}
	if resp.Results[1].ProbeIndex != 1 || resp.Results[1].CandidateIndex != 0 {
		t.Errorf("expected probe-major order, got %+v", resp.Results[1])
	}
	if resp.Image1 == "" || resp.Image2 == "" {
		t.Error("expected both annotated photos")
	}
}

func TestCompareHandler_PhotosPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		det     *mock.Detector
		files   map[string][]byte
		status  int
		message string
	}{
		{
			name:    "second photo missing",
			det:     mock.New(),
			files:   map[string][]byte{"photo1": {1}},
			status:  http.StatusBadRequest,
			message: "Please upload both photos to compare.",
		},
		{
			name:    "no faces in photo 2",
			det:     sequenced([]face.DetectionResult{testFace(0.9, 1)}, nil),
			files:   map[string][]byte{"photo1": nil, "photo2": nil},
			status:  http.StatusUnprocessableEntity,
			message: "No faces detected in Photo 2.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.det)
			handler := NewCompareHandler(env.ctrl, env.validate)

			files := make(map[string][]byte, len(tc.files))
			for field, data := range tc.files {
				if data == nil {
					data = testPNG(t, 12, 12)
				}
				files[field] = data
			}

			recorder := httptest.NewRecorder()
			handler.Photos(recorder, multipartRequest(t, "/api/v1/compare/photos", files))

			assertStatusCode(t, recorder, tc.status)
			assertJSONError(t, recorder, tc.message)
		})
	}
}

func TestCompareHandler_History(t *testing.T) {
	env := newTestEnv(t, mock.New())
	handler := NewCompareHandler(env.ctrl, env.validate)

	records := database.RecordsFromOutcomes("c1", database.ModePhotos, []face.ComparisonOutcome{
		{ProbeIndex: 0, CandidateIndex: 0, Distance: 0.2, Match: true},
		{ProbeIndex: 0, CandidateIndex: 1, Distance: 0.9},
	})
	if err := env.history.Save(context.Background(), records); err != nil {
		t.Fatalf("failed to seed history: %v", err)
	}

	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{"default limit", "", http.StatusOK, 2},
		{"explicit limit", "?limit=1", http.StatusOK, 1},
		{"zero", "?limit=0", http.StatusBadRequest, 0},
		{"too large", "?limit=501", http.StatusBadRequest, 0},
		{"not a number", "?limit=ten", http.StatusBadRequest, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.History(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/comparisons"+tc.query, nil))

			assertStatusCode(t, recorder, tc.status)
			if tc.status != http.StatusOK {
				return
			}
			var resp HistoryResponse
			parseJSONResponse(t, recorder, &resp)
			if len(resp.Records) != tc.count || resp.Total != 2 {
				t.Errorf("expected %d records of 2, got %d of %d", tc.count, len(resp.Records), resp.Total)
			}
		})
	}

	t.Run("store failure", func(t *testing.T) {
		env.history.RecentError = errors.New("connection reset")
		defer func() { env.history.RecentError = nil }()

		recorder := httptest.NewRecorder()
		handler.History(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/comparisons", nil))
		assertStatusCode(t, recorder, http.StatusInternalServerError)
	})
}

func TestCompareHandler_HistoryDisabled(t *testing.T) {
	ctrl := controller.New(context.Background(), controller.Options{Detector: mock.New()})
	t.Cleanup(func() { ctrl.Close() })
	env := newTestEnv(t, mock.New())
	handler := NewCompareHandler(ctrl, env.validate)

	recorder := httptest.NewRecorder()
	handler.History(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/comparisons", nil))
	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "comparison history is disabled")
}
