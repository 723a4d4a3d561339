package detector

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/faceerr"
)

// LoaderStatus is a snapshot of model readiness.
type LoaderStatus struct {
	Ready   bool          `json:"ready"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
	Models  []ModelStatus `json:"models"`
}

// Loader checks that the backend has every required model loaded and exposes
// the outcome as a ready signal. A failed load is not retried automatically;
// calling Load again starts a new attempt. The check runs detached from the
// caller, so a caller that gives up does not fail the load for everyone else.
type Loader struct {
	detector Detector
	required []string
	timeout  time.Duration

	mu      sync.RWMutex
	done    chan struct{}
	loading bool
	ready   bool
	err     error
	models  []ModelStatus
}

// NewLoader creates a loader. With no required names every reported model must
// be loaded. timeout bounds one check; zero uses the default.
func NewLoader(d Detector, required []string, timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = constants.DefaultModelLoadTimeout
	}
	return &Loader{detector: d, required: required, timeout: timeout}
}

// Load starts a readiness check unless one is already running or has succeeded.
// The returned channel closes when the check finishes.
func (l *Loader) Load(ctx context.Context) <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loading || l.ready {
		return l.done
	}

	done := make(chan struct{})
	l.done = done
	l.loading = true
	l.err = nil

	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	go func() {
		defer cancel()
		models, err := l.check(checkCtx)

		l.mu.Lock()
		l.models = models
		l.err = err
		l.ready = err == nil
		l.loading = false
		l.mu.Unlock()

		close(done)
	}()

	return done
}

// Ensure starts the first load. Unlike Load it never retries a failed attempt.
func (l *Loader) Ensure(ctx context.Context) {
	l.mu.RLock()
	started := l.done != nil
	l.mu.RUnlock()
	if !started {
		l.Load(ctx)
	}
}

// Wait starts a load if needed and blocks until it finishes.
func (l *Loader) Wait(ctx context.Context) error {
	done := l.Load(ctx)
	select {
	case <-done:
		return l.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether the last load succeeded.
func (l *Loader) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ready
}

// Err returns the error of the last finished load.
func (l *Loader) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Status returns a snapshot for display.
func (l *Loader) Status() LoaderStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := LoaderStatus{
		Ready:   l.ready,
		Loading: l.loading,
		Models:  slices.Clone(l.models),
	}
	if s.Models == nil {
		s.Models = []ModelStatus{}
	}
	if l.err != nil {
		s.Error = faceerr.UserMessage(l.err)
	}
	return s
}

func (l *Loader) check(ctx context.Context) ([]ModelStatus, error) {
	models, err := l.detector.Models(ctx)
	if err != nil {
		return nil, faceerr.Setup("models.load", "Failed to load face models.",
			fmt.Errorf("%w: %w", faceerr.ErrModelsUnavailable, err))
	}

	loaded := make(map[string]bool, len(models))
	for _, m := range models {
		loaded[m.Name] = m.Loaded
	}

	required := l.required
	if len(required) == 0 {
		for _, m := range models {
			required = append(required, m.Name)
		}
	}
	if len(required) == 0 {
		return models, faceerr.Setup("models.load", "The face backend reported no models.", faceerr.ErrModelsUnavailable)
	}

	var missing []string
	for _, name := range required {
		if !loaded[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return models, faceerr.Setup("models.load",
			"Face models not loaded: "+strings.Join(missing, ", "), faceerr.ErrModelsUnavailable)
	}
	return models, nil
}
