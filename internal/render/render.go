// Package render draws detection results onto images and formats them as text.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NoFaceText is the results list entry for a frame without faces.
const NoFaceText = "No face detected."

const (
	boxThickness = 2
	landmarkSize = 3
	labelPadding = 2
)

// LabelPosition selects where the label goes relative to the box.
type LabelPosition int

const (
	// LabelBelow is used for live analysis.
	LabelBelow LabelPosition = iota
	// LabelAbove is used in comparison mode.
	LabelAbove
)

// Options controls how a frame is drawn.
type Options struct {
	// HueOffset shifts every box color; 180 distinguishes the second photo of a comparison.
	HueOffset int
	Position  LabelPosition
	// Config selects which attributes appear in labels and whether landmarks are drawn.
	Config face.AnalysisConfig
	// Labels overrides the per-face label text when set (e.g. "Face 1").
	Labels []string
}

var titleCaser = cases.Title(language.English)

// HueColor returns the fully saturated color for a face index: hue
// (index*60 + offset) mod 360, saturation 100%, lightness 50%.
func HueColor(index, offset int) color.RGBA {
	h := float64(((index*60+offset)%360 + 360) % 360)
	return hslToRGB(h, 1, 0.5)
}

func hslToRGB(h, s, l float64) color.RGBA {
	c := (1 - math.Abs(2*l-1)) * s
	hp := h / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := l - c/2
	to8 := func(v float64) uint8 {
		return uint8(math.Round((v + m) * 255))
	}
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}

func display(v string) string {
	if v == face.NotAvailable {
		return v
	}
	return titleCaser.String(v)
}

// Label builds the single-line label of a result from the enabled attributes,
// joined with " | ". Disabled attributes are omitted and enabled but missing
// ones read N/A. It returns "" when no attribute is enabled.
func Label(r face.DetectionResult, cfg face.AnalysisConfig) string {
	var parts []string
	if cfg.AgeGender {
		parts = append(parts, "Gender: "+display(r.GenderText()), "Age: "+r.AgeText())
	}
	if cfg.Emotions {
		parts = append(parts, "Emotion: "+display(r.EmotionText()))
	}
	return strings.Join(parts, " | ")
}

// FaceLabels returns "Face 1".."Face n", as used in comparison mode.
func FaceLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("Face %d", i+1)
	}
	return labels
}

// PersonLabel is the caption of one person in photo analysis.
func PersonLabel(index int, r face.DetectionResult) string {
	return fmt.Sprintf("Person %d - Age: %s, Gender: %s", index+1, r.AgeText(), display(r.GenderText()))
}

// ResultsList returns the textual results list of a frame.
func ResultsList(frame *face.AnalysisFrame, cfg face.AnalysisConfig) []string {
	if frame.Len() == 0 {
		return []string{NoFaceText}
	}
	lines := make([]string, 0, frame.Len())
	for i, r := range frame.Results {
		label := Label(r, cfg)
		if label == "" {
			lines = append(lines, fmt.Sprintf("Face %d (score %.2f)", i+1, r.Score))
			continue
		}
		lines = append(lines, fmt.Sprintf("Face %d: %s", i+1, label))
	}
	return lines
}

// Render copies src into a fresh canvas and draws every result of frame on it.
// A frame without results produces an unmodified copy.
func Render(src image.Image, frame *face.AnalysisFrame, opts Options) *image.RGBA {
	canvas := imaging.ToRGBA(src)
	if frame.Len() == 0 {
		return canvas
	}

	sx, sy := 1.0, 1.0
	b := canvas.Bounds()
	if frame.Width > 0 && frame.Height > 0 && (frame.Width != b.Dx() || frame.Height != b.Dy()) {
		sx = float64(b.Dx()) / float64(frame.Width)
		sy = float64(b.Dy()) / float64(frame.Height)
	}

	for i, r := range frame.Results {
		r = r.Scale(sx, sy)
		col := HueColor(i, opts.HueOffset)
		rect := r.Box.Rect()

		drawBox(canvas, rect, col)

		if opts.Config.Landmarks {
			if pts, ok := r.Landmarks.Get(); ok {
				for _, p := range pts {
					drawDot(canvas, int(math.Round(p.X)), int(math.Round(p.Y)), col)
				}
			}
		}

		label := Label(r, opts.Config)
		if i < len(opts.Labels) {
			label = opts.Labels[i]
		}
		if label != "" {
			drawLabel(canvas, rect, label, col, opts.Position)
		}
	}
	return canvas
}

func fill(dst *image.RGBA, r image.Rectangle, col color.Color) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(col), image.Point{}, draw.Src)
}

func drawBox(dst *image.RGBA, r image.Rectangle, col color.RGBA) {
	t := boxThickness
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), col)
	fill(dst, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), col)
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), col)
	fill(dst, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), col)
}

func drawDot(dst *image.RGBA, x, y int, col color.RGBA) {
	h := landmarkSize / 2
	fill(dst, image.Rect(x-h, y-h, x+h+1, y+h+1), col)
}

func drawLabel(dst *image.RGBA, box image.Rectangle, text string, col color.RGBA, pos LabelPosition) {
	fontFace := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: fontFace}

	width := d.MeasureString(text).Ceil()
	metrics := fontFace.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := ascent + metrics.Descent.Ceil()

	b := dst.Bounds()
	x := box.Min.X
	var top int
	if pos == LabelAbove {
		top = box.Min.Y - height - 2*labelPadding
	} else {
		top = box.Max.Y + labelPadding
	}
	// Keep the label inside the canvas.
	x = max(b.Min.X, min(x, b.Max.X-width-2*labelPadding))
	top = max(b.Min.Y, min(top, b.Max.Y-height-2*labelPadding))

	bg := image.Rect(x, top, x+width+2*labelPadding, top+height+2*labelPadding)
	fill(dst, bg, color.RGBA{A: 200})

	d.Dot = fixed.P(x+labelPadding, top+labelPadding+ascent)
	d.DrawString(text)
}

// Format is an output image encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG, "":
		return png.Encode(w, img)
	case FormatJPEG, "jpg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// Annotate decodes data, renders frame on it and returns the encoded result.
func Annotate(data []byte, frame *face.AnalysisFrame, opts Options, format Format) ([]byte, error) {
	src, _, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, Render(src, frame, opts), format); err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}
