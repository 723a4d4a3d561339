package controller

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facelens/internal/detector"
	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/faceerr"
	"github.com/kozaktomas/facelens/internal/render"
)

// Person is the analysis of one face in an uploaded photo.
type Person struct {
	Index            int      `json:"index"`
	Label            string   `json:"label"`
	Box              face.Box `json:"box"`
	Score            float64  `json:"score"`
	Age              string   `json:"age"`
	Gender           string   `json:"gender"`
	Emotion          string   `json:"emotion"`
	SmileProbability string   `json:"smile_probability"`
}

// PhotoAnalysis is the full analysis of an uploaded photo.
type PhotoAnalysis struct {
	Frame  *face.AnalysisFrame `json:"frame"`
	People []Person            `json:"people"`
	Image  []byte              `json:"-"`
}

// smileProbability is the happy expression probability to two decimals.
func smileProbability(r face.DetectionResult) string {
	e, _ := r.Expressions.Get()
	return fmt.Sprintf("%.2f", e.Probability("happy"))
}

// AnalyzePhoto runs every sub-analysis on an upload at the configured
// confidence threshold.
func (c *Controller) AnalyzePhoto(ctx context.Context, data []byte) (*PhotoAnalysis, error) {
	data, err := uploaded(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := c.loader.Wait(ctx); err != nil {
		return nil, err
	}

	cfg := c.Config()
	frame, err := c.detect(ctx, data, cfg, detector.FullOptions(cfg.ConfidenceThreshold))
	if err != nil {
		return nil, err
	}
	if frame.Len() == 0 {
		return nil, faceerr.Precondition("controller.analyze_photo", "No faces detected.", faceerr.ErrNoFaces)
	}

	people := make([]Person, len(frame.Results))
	labels := make([]string, len(frame.Results))
	for i, r := range frame.Results {
		labels[i] = render.PersonLabel(i, r)
		people[i] = Person{
			Index:            i + 1,
			Label:            labels[i],
			Box:              r.Box,
			Score:            r.Score,
			Age:              r.AgeText(),
			Gender:           r.GenderText(),
			Emotion:          r.EmotionText(),
			SmileProbability: smileProbability(r),
		}
	}

	img, err := render.Annotate(data, frame, render.Options{
		Position: render.LabelAbove,
		Labels:   labels,
		Config:   face.AnalysisConfig{Landmarks: true},
	}, render.FormatPNG)
	if err != nil {
		return nil, err
	}
	return &PhotoAnalysis{Frame: frame, People: people, Image: img}, nil
}

// Describe detects every face in data with descriptors at the configured
// confidence threshold. Nothing is rendered or recorded.
func (c *Controller) Describe(ctx context.Context, data []byte) (*face.AnalysisFrame, error) {
	data, err := uploaded(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := c.loader.Wait(ctx); err != nil {
		return nil, err
	}
	cfg := c.Config()
	return c.detect(ctx, data, cfg, detector.FullOptions(cfg.ConfidenceThreshold))
}
