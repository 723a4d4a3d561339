//go:build dlib

package detector

import (
	"context"
	"fmt"
	"sync"

	goface "github.com/Kagami/go-face"
	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/imaging"
)

// dlibModel is the single model name reported by the dlib backend.
const dlibModel = "dlib_face_recognition"

// Dlib runs detection and recognition in-process with dlib models.
// It produces boxes and 128-d descriptors; age, gender, expressions and
// landmarks are not available and stay absent.
type Dlib struct {
	mu  sync.Mutex
	rec *goface.Recognizer
}

// NewDlib loads the dlib models from modelDir.
func NewDlib(modelDir string) (Detector, error) {
	rec, err := goface.NewRecognizer(modelDir)
	if err != nil {
		return nil, fmt.Errorf("loading dlib models from %s: %w", modelDir, err)
	}
	return &Dlib{rec: rec}, nil
}

// Name returns the backend name.
func (d *Dlib) Name() string {
	return "dlib"
}

// Detect recognizes every face. dlib reports no score, so every face gets 1.
func (d *Dlib) Detect(ctx context.Context, imageData []byte, opts Options) ([]face.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jpg, err := imaging.ToJPEG(imageData)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	faces, err := d.rec.Recognize(jpg)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}

	results := make([]face.DetectionResult, 0, len(faces))
	for _, f := range faces {
		r := face.DetectionResult{Box: face.BoxFromRect(f.Rectangle), Score: 1}
		if opts.Descriptors {
			desc := make(face.Descriptor, len(f.Descriptor))
			copy(desc, f.Descriptor[:])
			r.Descriptor = face.Some(desc)
		}
		results = append(results, r)
	}
	return results, nil
}

// Models reports the recognizer as loaded.
func (d *Dlib) Models(ctx context.Context) ([]ModelStatus, error) {
	return []ModelStatus{{Name: dlibModel, Loaded: d.rec != nil}}, nil
}

// Close frees the recognizer.
func (d *Dlib) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rec != nil {
		d.rec.Close()
		d.rec = nil
	}
}
