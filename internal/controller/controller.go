// Package controller adapts user commands to the analyzer, detector and comparator.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/facelens/internal/analyzer"
	"github.com/kozaktomas/facelens/internal/cache"
	"github.com/kozaktomas/facelens/internal/capture"
	"github.com/kozaktomas/facelens/internal/database"
	"github.com/kozaktomas/facelens/internal/detector"
	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/faceerr"
	"github.com/kozaktomas/facelens/internal/logging"
	"github.com/kozaktomas/facelens/internal/render"
)

var (
	// ErrHistoryDisabled is returned when no comparison store is configured.
	ErrHistoryDisabled = errors.New("comparison history is disabled")
	// ErrNoFrameImage is returned when the cached frame has no image to annotate.
	ErrNoFrameImage = errors.New("last frame has no image")
)

// SourceOpener opens the live capture source.
type SourceOpener func() (capture.Source, error)

// Options wires a Controller. History is optional.
type Options struct {
	Detector   detector.Detector
	Loader     *detector.Loader
	Cache      cache.FrameCache
	History    database.ComparisonStore
	OpenSource SourceOpener
	Analyzer   analyzer.Options
	Defaults   face.AnalysisConfig
}

// Controller holds the analysis configuration and owns the live source.
type Controller struct {
	ctx      context.Context
	detector detector.Detector
	loader   *detector.Loader
	analyzer *analyzer.Analyzer
	cache    cache.FrameCache
	history  database.ComparisonStore
	open     SourceOpener

	cfgMu sync.RWMutex
	cfg   face.AnalysisConfig

	srcMu  sync.Mutex
	source capture.Source
}

// New creates a controller. ctx bounds the live analysis loop.
func New(ctx context.Context, opts Options) *Controller {
	c := opts.Cache
	if c == nil {
		c = cache.NewMemory()
	}
	loader := opts.Loader
	if loader == nil {
		loader = detector.NewLoader(opts.Detector, nil, 0)
	}
	return &Controller{
		ctx:      ctx,
		detector: opts.Detector,
		loader:   loader,
		analyzer: analyzer.New(opts.Detector, c, opts.Analyzer),
		cache:    c,
		history:  opts.History,
		open:     opts.OpenSource,
		cfg:      opts.Defaults.Normalize(),
	}
}

// Analyzer exposes the live analyzer for subscribing to frames.
func (c *Controller) Analyzer() *analyzer.Analyzer {
	return c.analyzer
}

// Configure applies toggle changes. They take effect on the next pass.
func (c *Controller) Configure(update face.ConfigUpdate) face.AnalysisConfig {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	c.cfg = update.Apply(c.cfg)
	logging.Info(logging.Fields{
		"confidence": c.cfg.ConfidenceThreshold,
		"landmarks":  c.cfg.Landmarks,
		"age_gender": c.cfg.AgeGender,
		"emotions":   c.cfg.Emotions,
	}, "analysis config updated")
	return c.cfg
}

// Config returns the current configuration.
func (c *Controller) Config() face.AnalysisConfig {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg
}

// Status is a snapshot of the live analysis.
type Status struct {
	State    analyzer.State      `json:"state"`
	CanStart bool                `json:"can_start"`
	Busy     bool                `json:"busy"`
	Interval string              `json:"interval"`
	Stats    analyzer.Stats      `json:"stats"`
	Config   face.AnalysisConfig `json:"config"`
}

// Status returns the current state.
func (c *Controller) Status() Status {
	state := c.analyzer.State()
	return Status{
		State:    state,
		CanStart: state == analyzer.Idle,
		Busy:     c.analyzer.Busy(),
		Interval: c.analyzer.Interval().String(),
		Stats:    c.analyzer.Stats(),
		Config:   c.Config(),
	}
}

// CanStart is false while running and true when idle, including after a
// start that failed.
func (c *Controller) CanStart() bool {
	return c.analyzer.State() == analyzer.Idle
}

// Models returns model readiness, starting a load if none happened yet.
func (c *Controller) Models() detector.LoaderStatus {
	c.loader.Ensure(c.ctx)
	return c.loader.Status()
}

// WaitForModels blocks until the models are loaded or the load failed.
func (c *Controller) WaitForModels(ctx context.Context) error {
	return c.loader.Wait(ctx)
}

// Start begins live analysis. It fails with analyzer.ErrAlreadyRunning while
// running and with a setup error when models or the camera are unavailable.
func (c *Controller) Start(ctx context.Context) error {
	if !c.CanStart() {
		return analyzer.ErrAlreadyRunning
	}
	if err := c.loader.Wait(ctx); err != nil {
		return err
	}
	src, err := c.liveSource()
	if err != nil {
		return err
	}
	return c.analyzer.Start(c.ctx, src, c.Config)
}

// Stop ends live analysis. The live source stays open for comparisons.
func (c *Controller) Stop() bool {
	return c.analyzer.Stop()
}

// Close stops analysis and releases the live source.
func (c *Controller) Close() error {
	c.analyzer.Stop()
	c.analyzer.Wait()

	c.srcMu.Lock()
	defer c.srcMu.Unlock()
	if c.source == nil {
		return nil
	}
	err := c.source.Close()
	c.source = nil
	return err
}

// liveSource returns the open live source. A source whose stream has stopped
// is replaced on the next user command; nothing reopens it in the background.
func (c *Controller) liveSource() (capture.Source, error) {
	c.srcMu.Lock()
	defer c.srcMu.Unlock()

	if c.source != nil {
		err := capture.Stopped(c.source)
		if err == nil {
			return c.source, nil
		}
		logging.Warn(logging.Fields{"error": err}, "live source stopped, reopening")
		if cerr := c.source.Close(); cerr != nil {
			logging.Warn(logging.Fields{"error": cerr}, "failed to close stopped live source")
		}
		c.source = nil
	}
	if c.open == nil {
		return nil, faceerr.Setup("capture.open", capture.MsgCameraNotFound, faceerr.ErrCameraNotFound)
	}
	src, err := c.open()
	if err != nil {
		logging.Error(logging.Fields{"error": err}, "failed to open live source")
		return nil, err
	}
	c.source = src
	return src, nil
}

// LastFrame returns the cached frame of the most recent pass.
func (c *Controller) LastFrame(ctx context.Context) (*face.AnalysisFrame, error) {
	return c.cache.Load(ctx)
}

// FixedResults is the inline summary of the last analysis.
type FixedResults struct {
	Available bool          `json:"available"`
	Message   string        `json:"message,omitempty"`
	Summary   *face.Summary `json:"summary,omitempty"`
	Lines     []string      `json:"lines"`
	FrameID   string        `json:"frame_id,omitempty"`
}

// FixedResults summarises the first face of the cached frame.
func (c *Controller) FixedResults(ctx context.Context) (FixedResults, error) {
	frame, err := c.cache.Load(ctx)
	if err != nil && !errors.Is(err, cache.ErrEmpty) {
		return FixedResults{}, err
	}

	summary, ok := face.Summarize(frame)
	if !ok {
		out := FixedResults{Message: face.NoFaceSummary, Lines: []string{face.NoFaceSummary}}
		if frame != nil {
			out.FrameID = frame.ID
		}
		return out, nil
	}
	return FixedResults{
		Available: true,
		Summary:   &summary,
		Lines:     summary.Lines(),
		FrameID:   frame.ID,
	}, nil
}

// LastFrameImage renders the cached frame as PNG with live-mode labels.
func (c *Controller) LastFrameImage(ctx context.Context) ([]byte, error) {
	frame, err := c.cache.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(frame.Image) == 0 {
		return nil, ErrNoFrameImage
	}
	return render.Annotate(frame.Image, frame, render.Options{
		Position: render.LabelBelow,
		Config:   frame.Config,
	}, render.FormatPNG)
}

// Mode selects how Annotate labels faces.
type Mode string

const (
	ModeLive    Mode = "live"
	ModeCompare Mode = "compare"
)

// Annotated is an annotated image with its textual results list.
type Annotated struct {
	Frame *face.AnalysisFrame `json:"frame"`
	Lines []string            `json:"lines"`
	Image []byte              `json:"-"`
}

// Annotate runs detection on an uploaded image and draws the results. Live
// mode uses the current toggles with labels below the boxes; compare mode
// numbers the faces above them.
func (c *Controller) Annotate(ctx context.Context, data []byte, mode Mode) (*Annotated, error) {
	data, err := uploaded(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := c.loader.Wait(ctx); err != nil {
		return nil, err
	}

	cfg := c.Config()
	opts := detector.OptionsFor(cfg)
	ropts := render.Options{Position: render.LabelBelow, Config: cfg}
	if mode == ModeCompare {
		opts = detector.FullOptions(cfg.ConfidenceThreshold)
		ropts.Position = render.LabelAbove
	}

	frame, err := c.detect(ctx, data, cfg, opts)
	if err != nil {
		return nil, err
	}
	if mode == ModeCompare {
		ropts.Labels = render.FaceLabels(frame.Len())
	}

	img, err := render.Annotate(data, frame, ropts, render.FormatPNG)
	if err != nil {
		return nil, err
	}
	return &Annotated{Frame: frame, Lines: render.ResultsList(frame, cfg), Image: img}, nil
}

func (c *Controller) detect(ctx context.Context, data []byte, cfg face.AnalysisConfig, opts detector.Options) (*face.AnalysisFrame, error) {
	img, err := detector.DetectImage(ctx, c.detector, data, opts)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	return face.NewFrame(img.Width, img.Height, cfg, img.Results, data), nil
}

// uploaded reads an upload through a static source. A missing upload is a
// precondition failure.
func uploaded(ctx context.Context, data []byte) ([]byte, error) {
	return capture.NewStatic(data).Frame(ctx)
}
