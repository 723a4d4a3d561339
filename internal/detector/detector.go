// Package detector talks to the face detection and recognition backends.
package detector

import (
	"context"

	"github.com/kozaktomas/facelens/internal/face"
)

// Options selects the detection variant. With every attribute flag off the
// backend runs its bare detection-only variant.
type Options struct {
	MinConfidence float64
	Landmarks     bool
	AgeGender     bool
	Expressions   bool
	Descriptors   bool
}

// Bare reports whether only boxes and scores are requested.
func (o Options) Bare() bool {
	return !o.Landmarks && !o.AgeGender && !o.Expressions && !o.Descriptors
}

// OptionsFor maps the live analysis toggles to a detection request.
// No enabled sub-analysis means detection only.
func OptionsFor(cfg face.AnalysisConfig) Options {
	cfg = cfg.Normalize()
	return Options{
		MinConfidence: cfg.ConfidenceThreshold,
		Landmarks:     cfg.Landmarks,
		AgeGender:     cfg.AgeGender,
		Expressions:   cfg.Emotions,
	}
}

// FullOptions requests every attribute and the descriptor, as used for photo
// analysis and comparison.
func FullOptions(minConfidence float64) Options {
	return Options{
		MinConfidence: face.ClampConfidence(minConfidence),
		Landmarks:     true,
		AgeGender:     true,
		Expressions:   true,
		Descriptors:   true,
	}
}

// ModelStatus reports whether one backend model is loaded.
type ModelStatus struct {
	Name   string `json:"name"`
	Loaded bool   `json:"loaded"`
}

// Detector runs face detection over an encoded image.
type Detector interface {
	Name() string
	Detect(ctx context.Context, imageData []byte, opts Options) ([]face.DetectionResult, error)
	Models(ctx context.Context) ([]ModelStatus, error)
}
