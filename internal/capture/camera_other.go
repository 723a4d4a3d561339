//go:build !(linux && (amd64 || arm64))

package capture

import (
	"context"
	"errors"

	"github.com/kozaktomas/facelens/internal/faceerr"
)

var errCameraUnsupported = errors.New("camera capture requires linux on amd64 or arm64")

// Camera is unavailable on this platform.
type Camera struct{}

// OpenCamera always fails on this platform.
func OpenCamera(device string, width, height int) (*Camera, error) {
	return nil, faceerr.Setup("capture.open", MsgCameraNotFound,
		errors.Join(faceerr.ErrCameraNotFound, errCameraUnsupported))
}

func (c *Camera) Frame(ctx context.Context) ([]byte, error) {
	return nil, errCameraUnsupported
}

func (c *Camera) Err() error {
	return errCameraUnsupported
}

func (c *Camera) Close() error {
	return nil
}
