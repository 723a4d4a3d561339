// Package capture provides the image sources used by live analysis and uploads.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/kozaktomas/facelens/internal/config"
	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/faceerr"
)

// User-facing messages for camera setup failures.
const (
	MsgCameraDenied   = "Camera access was denied. Please enable camera permissions."
	MsgCameraNotFound = "No camera found. Please ensure your camera is connected."
)

// Source yields the current still image as encoded bytes (JPEG or PNG).
type Source interface {
	Frame(ctx context.Context) ([]byte, error)
	Close() error
}

// Stopped returns the error of a source that can no longer deliver frames and
// has to be reopened. Sources without such a state always return nil.
func Stopped(src Source) error {
	if s, ok := src.(interface{ Err() error }); ok {
		return s.Err()
	}
	return nil
}

// Open creates the live source described by cfg. Setup failures are returned
// as faceerr setup errors and are not retried.
func Open(cfg config.CameraConfig) (Source, error) {
	switch cfg.Source {
	case config.SourceCamera, "":
		device := cfg.Device
		if device == "" {
			device = constants.DefaultCameraDevice
		}
		width, height := cfg.Width, cfg.Height
		if width <= 0 || height <= 0 {
			width, height = constants.DefaultCameraWidth, constants.DefaultCameraHeight
		}
		cam, err := OpenCamera(device, width, height)
		if err != nil {
			return nil, err
		}
		return cam, nil
	case config.SourceSnapshot:
		if cfg.SnapshotURL == "" {
			return nil, faceerr.Setup("capture.open", MsgCameraNotFound, faceerr.ErrCameraNotFound)
		}
		return NewSnapshot(cfg.SnapshotURL, 0), nil
	default:
		return nil, fmt.Errorf("unknown capture source %q", cfg.Source)
	}
}

// classifyOpenError maps an OS error from opening a device to a setup failure.
func classifyOpenError(device string, err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return faceerr.Setup("capture.open", MsgCameraDenied,
			fmt.Errorf("%w: %s: %w", faceerr.ErrCameraDenied, device, err))
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO):
		return faceerr.Setup("capture.open", MsgCameraNotFound,
			fmt.Errorf("%w: %s: %w", faceerr.ErrCameraNotFound, device, err))
	default:
		return faceerr.Setup("capture.open", "Failed to open camera.", fmt.Errorf("%s: %w", device, err))
	}
}
