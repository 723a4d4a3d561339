// Package mock provides a scriptable detector for tests.
package mock

import (
	"context"
	"sync"

	"github.com/kozaktomas/facelens/internal/detector"
	"github.com/kozaktomas/facelens/internal/face"
)

// DetectFunc lets a test decide the result per call. call starts at 1.
type DetectFunc func(ctx context.Context, call int, imageData []byte, opts detector.Options) ([]face.DetectionResult, error)

// Detector is a mock implementation of detector.Detector
type Detector struct {
	mu      sync.Mutex
	calls   int
	options []detector.Options

	// Results are returned by Detect when DetectFn is nil.
	Results []face.DetectionResult
	// DetectFn overrides Results.
	DetectFn DetectFunc

	ModelList []detector.ModelStatus

	// Error injection
	DetectError error
	ModelsError error
}

// New creates a mock detector reporting every model of the default HTTP backend as loaded.
func New(results ...face.DetectionResult) *Detector {
	return &Detector{
		Results: results,
		ModelList: []detector.ModelStatus{
			{Name: "ssd_mobilenetv1", Loaded: true},
			{Name: "face_landmark_68", Loaded: true},
			{Name: "age_gender", Loaded: true},
			{Name: "face_expression", Loaded: true},
			{Name: "face_recognition", Loaded: true},
		},
	}
}

// Name returns the backend name.
func (d *Detector) Name() string {
	return "mock"
}

// Detect records the call and returns the scripted result.
func (d *Detector) Detect(ctx context.Context, imageData []byte, opts detector.Options) ([]face.DetectionResult, error) {
	d.mu.Lock()
	d.calls++
	call := d.calls
	d.options = append(d.options, opts)
	fn := d.DetectFn
	d.mu.Unlock()

	if fn != nil {
		return fn(ctx, call, imageData, opts)
	}
	if d.DetectError != nil {
		return nil, d.DetectError
	}
	out := make([]face.DetectionResult, len(d.Results))
	copy(out, d.Results)
	return out, nil
}

// Models returns ModelList.
func (d *Detector) Models(ctx context.Context) ([]detector.ModelStatus, error) {
	if d.ModelsError != nil {
		return nil, d.ModelsError
	}
	return d.ModelList, nil
}

// Calls returns the number of Detect calls.
func (d *Detector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Options returns the options of every Detect call in order.
func (d *Detector) Options() []detector.Options {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]detector.Options, len(d.options))
	copy(out, d.options)
	return out
}
