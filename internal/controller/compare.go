package controller

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/facelens/internal/compare"
	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/database"
	"github.com/kozaktomas/facelens/internal/detector"
	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/faceerr"
	"github.com/kozaktomas/facelens/internal/logging"
	"github.com/kozaktomas/facelens/internal/render"
)

// Verdict texts.
const (
	VerdictLiveMatch    = "Match Found: Same Person"
	VerdictLiveNoMatch  = "No Match: Different Person"
	VerdictPhotoMatch   = "Same Person"
	VerdictPhotoNoMatch = "Different People"
)

// Verdict is one comparator outcome with its display text.
type Verdict struct {
	face.ComparisonOutcome
	Verdict      string `json:"verdict"`
	DistanceText string `json:"distance_text"`
}

// LiveComparison compares the primary live face with every face of an upload.
type LiveComparison struct {
	ComparisonID string              `json:"comparison_id"`
	Live         *face.AnalysisFrame `json:"live"`
	ProbeIndex   int                 `json:"probe_index"`
	Upload       *face.AnalysisFrame `json:"upload"`
	Results      []Verdict           `json:"results"`
	Image        []byte              `json:"-"`
}

// PhotoComparison compares every face of one photo with every face of another.
type PhotoComparison struct {
	ComparisonID string              `json:"comparison_id"`
	Photo1       *face.AnalysisFrame `json:"photo1"`
	Photo2       *face.AnalysisFrame `json:"photo2"`
	Results      []Verdict           `json:"results"`
	Image1       []byte              `json:"-"`
	Image2       []byte              `json:"-"`
}

func verdicts(outcomes []face.ComparisonOutcome, match, noMatch string, decimals int) []Verdict {
	out := make([]Verdict, len(outcomes))
	for i, o := range outcomes {
		text := noMatch
		if o.Match {
			text = match
		}
		out[i] = Verdict{
			ComparisonOutcome: o,
			Verdict:           text,
			DistanceText:      fmt.Sprintf("%.*f", decimals, o.Distance),
		}
	}
	return out
}

// CompareWithLive grabs a fresh live frame, takes its primary face as the
// probe and compares it with every face in the upload.
func (c *Controller) CompareWithLive(ctx context.Context, data []byte) (*LiveComparison, error) {
	const op = "controller.compare_live"
	data, err := uploaded(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := c.loader.Wait(ctx); err != nil {
		return nil, err
	}

	src, err := c.liveSource()
	if err != nil {
		return nil, err
	}
	liveData, err := src.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture live frame: %w", err)
	}

	opts := detector.FullOptions(constants.LiveProbeConfidence)
	cfg := c.Config()

	live, err := c.detect(ctx, liveData, cfg, opts)
	if err != nil {
		return nil, err
	}
	if live.Len() == 0 {
		return nil, faceerr.Precondition(op, "No face detected in the video feed.", faceerr.ErrNoFaces)
	}
	probe := face.Primary(live.Results)

	upload, err := c.detect(ctx, data, cfg, opts)
	if err != nil {
		return nil, err
	}

	outcomes, err := compare.Faces(live.Results[probe:probe+1], upload.Results, "the video feed", "the uploaded image")
	if err != nil {
		return nil, err
	}
	for i := range outcomes {
		outcomes[i].ProbeIndex = probe
	}

	img, err := render.Annotate(data, upload, render.Options{
		Position: render.LabelAbove,
		Labels:   render.FaceLabels(upload.Len()),
	}, render.FormatPNG)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	c.record(ctx, id, database.ModeLive, outcomes)

	return &LiveComparison{
		ComparisonID: id,
		Live:         live,
		ProbeIndex:   probe,
		Upload:       upload,
		Results:      verdicts(outcomes, VerdictLiveMatch, VerdictLiveNoMatch, 2),
		Image:        img,
	}, nil
}

// ComparePhotos compares every face in photo1 with every face in photo2.
func (c *Controller) ComparePhotos(ctx context.Context, photo1, photo2 []byte) (*PhotoComparison, error) {
	const op = "controller.compare_photos"
	if len(photo1) == 0 || len(photo2) == 0 {
		return nil, faceerr.Precondition(op, "Please upload both photos to compare.", faceerr.ErrNoUpload)
	}
	if err := c.loader.Wait(ctx); err != nil {
		return nil, err
	}

	cfg := c.Config()
	opts := detector.FullOptions(cfg.ConfidenceThreshold)

	first, err := c.detect(ctx, photo1, cfg, opts)
	if err != nil {
		return nil, err
	}
	second, err := c.detect(ctx, photo2, cfg, opts)
	if err != nil {
		return nil, err
	}

	outcomes, err := compare.Faces(first.Results, second.Results, "Photo 1", "Photo 2")
	if err != nil {
		return nil, err
	}

	img1, err := render.Annotate(photo1, first, render.Options{
		Position: render.LabelAbove,
		Labels:   render.FaceLabels(first.Len()),
	}, render.FormatPNG)
	if err != nil {
		return nil, err
	}
	img2, err := render.Annotate(photo2, second, render.Options{
		HueOffset: constants.SecondPhotoHueOffset,
		Position:  render.LabelAbove,
		Labels:    render.FaceLabels(second.Len()),
	}, render.FormatPNG)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	c.record(ctx, id, database.ModePhotos, outcomes)

	return &PhotoComparison{
		ComparisonID: id,
		Photo1:       first,
		Photo2:       second,
		Results:      verdicts(outcomes, VerdictPhotoMatch, VerdictPhotoNoMatch, 4),
		Image1:       img1,
		Image2:       img2,
	}, nil
}

// record stores outcomes in the history. Failures are logged only.
func (c *Controller) record(ctx context.Context, id, mode string, outcomes []face.ComparisonOutcome) {
	if c.history == nil || len(outcomes) == 0 {
		return
	}
	if err := c.history.Save(context.WithoutCancel(ctx), database.RecordsFromOutcomes(id, mode, outcomes)); err != nil {
		logging.WithRequestID(ctx).WithFields(logging.Fields{
			"comparison_id": id,
			"error":         err,
		}).Error("failed to store comparison")
	}
}

// History returns recent comparison records.
func (c *Controller) History(ctx context.Context, limit int) ([]database.ComparisonRecord, int, error) {
	if c.history == nil {
		return nil, 0, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	records, err := c.history.Recent(ctx, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := c.history.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	if records == nil {
		records = []database.ComparisonRecord{}
	}
	return records, total, nil
}

// HistoryEnabled reports whether comparisons are stored.
func (c *Controller) HistoryEnabled() bool {
	return c.history != nil
}

