// Package face holds the data model shared by the detector, analyzer, renderer and comparator.
package face

import (
	"image"
	"math"
	"time"

	"github.com/google/uuid"
)

// DescriptorSize is the length of descriptors produced by the default recognition model.
const DescriptorSize = 128

// Descriptor is a face identity embedding. Two descriptors are only comparable
// when produced by the same recognition model.
type Descriptor []float32

// Point is a landmark position in input pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is a face bounding box in input pixel space.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DetectionResult is one detected face from a single detection pass.
type DetectionResult struct {
	Box   Box     `json:"box"`
	Score float64 `json:"score"`

	Landmarks         Optional[[]Point]     `json:"landmarks,omitzero"`
	Age               Optional[float64]     `json:"age,omitzero"`
	Gender            Optional[string]      `json:"gender,omitzero"`
	GenderProbability Optional[float64]     `json:"gender_probability,omitzero"`
	Expressions       Optional[Expressions] `json:"expressions,omitzero"`
	Descriptor        Optional[Descriptor]  `json:"descriptor,omitzero"`
}

// AnalysisFrame is the ordered result of one analysis pass. Frames are never
// mutated after construction; each pass builds a new one.
type AnalysisFrame struct {
	ID         string            `json:"id"`
	CapturedAt time.Time         `json:"captured_at"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Config     AnalysisConfig    `json:"config"`
	Results    []DetectionResult `json:"results"`
	Err        string            `json:"error,omitempty"`

	// Image is the encoded input the results refer to. It is not part of the JSON form.
	Image []byte `json:"-"`
}

// NewFrame builds a frame with a fresh ID.
func NewFrame(width, height int, cfg AnalysisConfig, results []DetectionResult, img []byte) *AnalysisFrame {
	if results == nil {
		results = []DetectionResult{}
	}
	return &AnalysisFrame{
		ID:         uuid.NewString(),
		CapturedAt: time.Now().UTC(),
		Width:      width,
		Height:     height,
		Config:     cfg,
		Results:    results,
		Image:      img,
	}
}

// EmptyFrame builds a zero-face frame recording why the pass produced nothing.
func EmptyFrame(cfg AnalysisConfig, cause error) *AnalysisFrame {
	f := NewFrame(0, 0, cfg, nil, nil)
	if cause != nil {
		f.Err = cause.Error()
	}
	return f
}

// Len returns the number of detected faces.
func (f *AnalysisFrame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Results)
}

// ComparisonOutcome is the verdict for one probe/candidate descriptor pair.
type ComparisonOutcome struct {
	ProbeIndex     int        `json:"probe_index"`
	CandidateIndex int        `json:"candidate_index"`
	Distance       float64    `json:"distance"`
	Match          bool       `json:"match"`
	Probe          Descriptor `json:"-"`
	Candidate      Descriptor `json:"-"`
}

// BoxFromCorners converts [x1, y1, x2, y2] to a Box. Malformed input yields a zero Box.
func BoxFromCorners(bbox []float64) Box {
	if len(bbox) != 4 {
		return Box{}
	}
	return Box{X: bbox[0], Y: bbox[1], Width: bbox[2] - bbox[0], Height: bbox[3] - bbox[1]}
}

// BoxFromRect converts an integer rectangle.
func BoxFromRect(r image.Rectangle) Box {
	return Box{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())}
}

// Rect returns the box rounded to integer pixels.
func (b Box) Rect() image.Rectangle {
	x0 := int(math.Round(b.X))
	y0 := int(math.Round(b.Y))
	return image.Rect(x0, y0, x0+int(math.Round(b.Width)), y0+int(math.Round(b.Height)))
}

// Scale maps the box from input space into a display of a different size.
func (b Box) Scale(sx, sy float64) Box {
	return Box{X: b.X * sx, Y: b.Y * sy, Width: b.Width * sx, Height: b.Height * sy}
}

// Scale maps every coordinate of the result into display space.
// Attributes other than geometry are carried over unchanged.
func (r DetectionResult) Scale(sx, sy float64) DetectionResult {
	out := r
	out.Box = r.Box.Scale(sx, sy)
	if pts, ok := r.Landmarks.Get(); ok {
		scaled := make([]Point, len(pts))
		for i, p := range pts {
			scaled[i] = Point{X: p.X * sx, Y: p.Y * sy}
		}
		out.Landmarks = Some(scaled)
	}
	return out
}
