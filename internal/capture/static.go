package capture

import (
	"context"

	"github.com/kozaktomas/facelens/internal/faceerr"
)

// Static serves one uploaded image.
type Static struct {
	data []byte
}

// NewStatic wraps uploaded image bytes.
func NewStatic(data []byte) *Static {
	return &Static{data: data}
}

// Frame returns the uploaded image.
func (s *Static) Frame(ctx context.Context) ([]byte, error) {
	if len(s.data) == 0 {
		return nil, faceerr.Precondition("capture.static", "Please upload an image first!", faceerr.ErrNoUpload)
	}
	return s.data, nil
}

// Close is a no-op.
func (s *Static) Close() error {
	return nil
}
