package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/facelens/internal/analyzer"
	"github.com/kozaktomas/facelens/internal/analyzer/analyzertest"
	"github.com/kozaktomas/facelens/internal/cache"
	"github.com/kozaktomas/facelens/internal/capture"
	"github.com/kozaktomas/facelens/internal/controller"
	dbmock "github.com/kozaktomas/facelens/internal/database/mock"
	"github.com/kozaktomas/facelens/internal/detector/mock"
	"github.com/kozaktomas/facelens/internal/face"
)

// testEnv wires a controller to a mock detector, a manual clock and an in-memory history.
type testEnv struct {
	ctrl     *controller.Controller
	clock    *analyzertest.Clock
	detector *mock.Detector
	history  *dbmock.MockComparisonStore
	validate *validator.Validate
}

func newTestEnv(t *testing.T, det *mock.Detector) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:    analyzertest.NewClock(),
		detector: det,
		history:  dbmock.NewMockComparisonStore(),
		validate: validator.New(),
	}
	live := testPNG(t, 40, 40)
	env.ctrl = controller.New(context.Background(), controller.Options{
		Detector: det,
		Cache:    cache.NewMemory(),
		History:  env.history,
		OpenSource: func() (capture.Source, error) {
			return capture.NewStatic(live), nil
		},
		Analyzer: analyzer.Options{Clock: env.clock},
		Defaults: face.DefaultConfig(),
	})
	t.Cleanup(func() { env.ctrl.Close() })
	return env
}

// testPNG encodes a blank PNG of the given size.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// testFace builds a fully analysed face with the given descriptor.
func testFace(score float64, descriptor ...float32) face.DetectionResult {
	return face.DetectionResult{
		Box:         face.Box{X: 4, Y: 4, Width: 12, Height: 12},
		Score:       score,
		Age:         face.Some(31.0),
		Gender:      face.Some("female"),
		Expressions: face.Some(face.Expressions{"happy": 0.9, "neutral": 0.1}),
		Descriptor:  face.Some(face.Descriptor(descriptor)),
	}
}

// multipartRequest builds a POST request with one file part per field.
func multipartRequest(t *testing.T, path string, files map[string][]byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, data := range files {
		part, err := writer.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(data)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
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
