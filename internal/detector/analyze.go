package detector

import (
	"context"

	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/imaging"
)

// Image is the outcome of detecting faces on one encoded image.
type Image struct {
	Width   int
	Height  int
	Results []face.DetectionResult
}

// DetectImage downsizes data when it exceeds the detector input limit, runs
// detection and maps the results back into the original pixel space.
func DetectImage(ctx context.Context, d Detector, data []byte, opts Options) (*Image, error) {
	prepared, err := imaging.Prepare(data, constants.MaxImageSize)
	if err != nil {
		return nil, err
	}

	results, err := d.Detect(ctx, prepared.Data, opts)
	if err != nil {
		return nil, err
	}

	if prepared.Scale != 1 {
		for i := range results {
			results[i] = results[i].Scale(prepared.Scale, prepared.Scale)
		}
	}
	return &Image{Width: prepared.Width, Height: prepared.Height, Results: results}, nil
}
