//go:build !dlib

package detector

import "errors"

// ErrDlibUnavailable is returned when the binary was built without the dlib tag.
var ErrDlibUnavailable = errors.New("dlib backend not compiled in (build with -tags dlib)")

// NewDlib is unavailable without the dlib build tag.
func NewDlib(modelDir string) (Detector, error) {
	return nil, ErrDlibUnavailable
}
