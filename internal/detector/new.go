package detector

import (
	"fmt"

	"github.com/kozaktomas/facelens/internal/config"
)

// New creates the detector selected by cfg.Backend.
func New(cfg config.DetectorConfig) (Detector, error) {
	switch cfg.Backend {
	case config.BackendHTTP, "":
		return NewHTTPClient(cfg.URL, cfg.Timeout), nil
	case config.BackendDlib:
		return NewDlib(cfg.ModelDir)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}
}

// RequiredModels returns the models the loader must see for the configured backend.
// The dlib backend reports a single model of its own.
func RequiredModels(cfg config.DetectorConfig) []string {
	if cfg.Backend == config.BackendDlib {
		return nil
	}
	return cfg.RequiredModels
}
