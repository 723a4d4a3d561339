package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/kozaktomas/facelens/internal/face"
)

func blankImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func sameImage(a, b *image.RGBA) bool {
	return a.Bounds() == b.Bounds() && bytes.Equal(a.Pix, b.Pix)
}

func TestHueColor(t *testing.T) {
	tests := []struct {
		index    int
		offset   int
		expected color.RGBA
	}{
		{0, 0, color.RGBA{255, 0, 0, 255}},
		{1, 0, color.RGBA{255, 255, 0, 255}},
		{2, 0, color.RGBA{0, 255, 0, 255}},
		{3, 0, color.RGBA{0, 255, 255, 255}},
		{4, 0, color.RGBA{0, 0, 255, 255}},
		{5, 0, color.RGBA{255, 0, 255, 255}},
		{6, 0, color.RGBA{255, 0, 0, 255}},
		{0, 180, color.RGBA{0, 255, 255, 255}},
		{1, 180, color.RGBA{0, 0, 255, 255}},
	}
	for _, tc := range tests {
		if got := HueColor(tc.index, tc.offset); got != tc.expected {
			t.Errorf("HueColor(%d, %d) = %v, expected %v", tc.index, tc.offset, got, tc.expected)
		}
	}
}

func TestLabel(t *testing.T) {
	full := face.DetectionResult{
		Age:         face.Some(27.6),
		Gender:      face.Some("female"),
		Expressions: face.Some(face.Expressions{"happy": 0.9, "sad": 0.1}),
	}
	empty := face.DetectionResult{}

	tests := []struct {
		name     string
		result   face.DetectionResult
		cfg      face.AnalysisConfig
		expected string
	}{
		{"all enabled", full, face.AnalysisConfig{AgeGender: true, Emotions: true}, "Gender: Female | Age: 28 | Emotion: Happy"},
		{"emotions only", full, face.AnalysisConfig{Emotions: true}, "Emotion: Happy"},
		{"nothing enabled", full, face.AnalysisConfig{}, ""},
		{"missing attributes", empty, face.AnalysisConfig{AgeGender: true, Emotions: true}, "Gender: N/A | Age: N/A | Emotion: N/A"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Label(tc.result, tc.cfg); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestResultsList(t *testing.T) {
	cfg := face.AnalysisConfig{Emotions: true}

	if got := ResultsList(face.NewFrame(10, 10, cfg, nil, nil), cfg); len(got) != 1 || got[0] != NoFaceText {
		t.Errorf("expected [%q], got %v", NoFaceText, got)
	}
	if got := ResultsList(nil, cfg); len(got) != 1 || got[0] != NoFaceText {
		t.Errorf("expected [%q] for nil frame, got %v", NoFaceText, got)
	}

	frame := face.NewFrame(10, 10, cfg, []face.DetectionResult{
		{Score: 0.9, Expressions: face.Some(face.Expressions{"sad": 0.8})},
		{Score: 0.75},
	}, nil)
	got := ResultsList(frame, cfg)
	expected := []string{"Face 1: Emotion: Sad", "Face 2: Emotion: N/A"}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("line %d: expected %q, got %q", i, expected[i], got[i])
		}
	}

	got = ResultsList(frame, face.AnalysisConfig{})
	if got[0] != "Face 1 (score 0.90)" {
		t.Errorf("unexpected detection-only line %q", got[0])
	}
}

func TestRender_ZeroFaces(t *testing.T) {
	src := blankImage(64, 48)
	out := Render(src, face.NewFrame(64, 48, face.DefaultConfig(), nil, nil), Options{})
	if !sameImage(src, out) {
		t.Error("expected zero-face render to leave the image untouched")
	}
	if &out.Pix[0] == &src.Pix[0] {
		t.Error("expected a fresh canvas")
	}
}

func TestRender_DrawsBoxes(t *testing.T) {
	src := blankImage(100, 100)
	frame := face.NewFrame(100, 100, face.DefaultConfig(), []face.DetectionResult{
		{Box: face.Box{X: 10, Y: 10, Width: 30, Height: 30}, Score: 0.9},
		{Box: face.Box{X: 50, Y: 50, Width: 30, Height: 30}, Score: 0.8},
	}, nil)

	out := Render(src, frame, Options{})
	if got := out.RGBAAt(10, 20); got != HueColor(0, 0) {
		t.Errorf("expected first box edge in %v, got %v", HueColor(0, 0), got)
	}
	if got := out.RGBAAt(50, 60); got != HueColor(1, 0) {
		t.Errorf("expected second box edge in %v, got %v", HueColor(1, 0), got)
	}
	if got := out.RGBAAt(25, 25); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("expected box interior untouched, got %v", got)
	}

	shifted := Render(src, frame, Options{HueOffset: 180})
	if got := shifted.RGBAAt(10, 20); got != HueColor(0, 180) {
		t.Errorf("expected offset color %v, got %v", HueColor(0, 180), got)
	}
}

func TestRender_ScalesToImage(t *testing.T) {
	src := blankImage(200, 200)
	// Results were computed on a 100x100 downscaled copy.
	frame := face.NewFrame(100, 100, face.DefaultConfig(), []face.DetectionResult{
		{Box: face.Box{X: 10, Y: 10, Width: 20, Height: 20}, Score: 0.9},
	}, nil)
	out := Render(src, frame, Options{})
	if got := out.RGBAAt(20, 40); got != HueColor(0, 0) {
		t.Errorf("expected scaled box edge at x=20, got %v", got)
	}
}

func TestAnnotate(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, blankImage(80, 80)); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	frame := face.NewFrame(80, 80, face.DefaultConfig(), []face.DetectionResult{
		{Box: face.Box{X: 20, Y: 20, Width: 30, Height: 30}, Score: 0.9},
	}, nil)

	out, err := Annotate(buf.Bytes(), frame, Options{Position: LabelAbove, Labels: FaceLabels(1)}, FormatPNG)
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 80 {
		t.Errorf("expected width 80, got %d", img.Bounds().Dx())
	}

	if _, err := Annotate([]byte("nope"), frame, Options{}, FormatPNG); err == nil {
		t.Error("expected decode error")
	}
	if err := Encode(&bytes.Buffer{}, blankImage(1, 1), "tiff"); err == nil {
		t.Error("expected unsupported format error")
	}
}

func TestLabelHelpers(t *testing.T) {
	labels := FaceLabels(2)
	if len(labels) != 2 || labels[0] != "Face 1" || labels[1] != "Face 2" {
		t.Errorf("unexpected face labels %v", labels)
	}
	r := face.DetectionResult{Age: face.Some(31.2), Gender: face.Some("male")}
	if got := PersonLabel(0, r); got != "Person 1 - Age: 31, Gender: Male" {
		t.Errorf("unexpected person label %q", got)
	}
}
