// Package analyzer runs the periodic live analysis loop.
package analyzer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facelens/internal/cache"
	"github.com/kozaktomas/facelens/internal/capture"
	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/detector"
	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/faceerr"
	"github.com/kozaktomas/facelens/internal/logging"
)

// ErrAlreadyRunning is returned by Start while a loop is active.
var ErrAlreadyRunning = errors.New("analysis is already running")

// State is the lifecycle state of the loop.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Sink receives every published frame, including empty ones from failed passes.
type Sink func(frame *face.AnalysisFrame)

// ConfigFunc returns the configuration for the next pass.
type ConfigFunc func() face.AnalysisConfig

// Stats counts loop activity since the analyzer was created.
type Stats struct {
	Passes           uint64        `json:"passes"`
	Dropped          uint64        `json:"dropped"`
	Failed           uint64        `json:"failed"`
	LastPassDuration time.Duration `json:"last_pass_duration"`
}

// Options configures an analyzer. Zero values use the defaults.
type Options struct {
	Interval    time.Duration
	PassTimeout time.Duration
	Clock       Clock
}

// run is one Start..Stop cycle.
type run struct {
	source capture.Source
	config ConfigFunc
	ticker Ticker
	stop   chan struct{}
}

// Analyzer samples a capture source on a fixed interval and runs detection.
// A tick that arrives while the previous pass is still in flight is dropped,
// not queued. Instances share no state.
type Analyzer struct {
	detector    detector.Detector
	cache       cache.FrameCache
	clock       Clock
	interval    time.Duration
	passTimeout time.Duration

	mu      sync.Mutex
	current *run

	busy     atomic.Bool
	inflight sync.WaitGroup

	passes   atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
	lastPass atomic.Int64

	sinksMu  sync.RWMutex
	sinks    map[int]Sink
	nextSink int
}

// New creates an idle analyzer publishing into c.
func New(det detector.Detector, c cache.FrameCache, opts Options) *Analyzer {
	interval := opts.Interval
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}
	interval = min(max(interval, constants.MinPollInterval), constants.MaxPollInterval)

	passTimeout := opts.PassTimeout
	if passTimeout <= 0 {
		passTimeout = constants.DefaultPassTimeout
	}

	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &Analyzer{
		detector:    det,
		cache:       c,
		clock:       clock,
		interval:    interval,
		passTimeout: passTimeout,
		sinks:       make(map[int]Sink),
	}
}

// Interval returns the tick interval.
func (a *Analyzer) Interval() time.Duration {
	return a.interval
}

// State returns the current lifecycle state.
func (a *Analyzer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		return Running
	}
	return Idle
}

// Busy reports whether a pass is in flight.
func (a *Analyzer) Busy() bool {
	return a.busy.Load()
}

// Stats returns a snapshot of the counters.
func (a *Analyzer) Stats() Stats {
	return Stats{
		Passes:           a.passes.Load(),
		Dropped:          a.dropped.Load(),
		Failed:           a.failed.Load(),
		LastPassDuration: time.Duration(a.lastPass.Load()),
	}
}

// Subscribe registers a sink and returns a function removing it.
func (a *Analyzer) Subscribe(fn Sink) func() {
	a.sinksMu.Lock()
	id := a.nextSink
	a.nextSink++
	a.sinks[id] = fn
	a.sinksMu.Unlock()

	return func() {
		a.sinksMu.Lock()
		delete(a.sinks, id)
		a.sinksMu.Unlock()
	}
}

// Start moves Idle to Running and schedules passes every interval. ctx bounds
// the whole loop; when it is cancelled the analyzer returns to Idle.
func (a *Analyzer) Start(ctx context.Context, source capture.Source, cfg ConfigFunc) error {
	if source == nil || cfg == nil {
		return errors.New("analyzer needs a source and a config function")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil {
		return ErrAlreadyRunning
	}

	r := &run{
		source: source,
		config: cfg,
		ticker: a.clock.NewTicker(a.interval),
		stop:   make(chan struct{}),
	}
	a.current = r

	go a.loop(ctx, r)

	logging.Info(logging.Fields{"interval": a.interval.String()}, "analysis started")
	return nil
}

// Stop moves Running to Idle and revokes the ticker, so no pass starts after
// it returns. An in-flight pass finishes and its frame is still published.
// It reports whether the analyzer was running.
func (a *Analyzer) Stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return false
	}
	a.stopLocked()
	logging.Info(logging.Fields{}, "analysis stopped")
	return true
}

func (a *Analyzer) stopLocked() {
	a.current.ticker.Stop()
	close(a.current.stop)
	a.current = nil
}

// Wait blocks until every in-flight pass has published its frame.
func (a *Analyzer) Wait() {
	a.inflight.Wait()
}

func (a *Analyzer) loop(ctx context.Context, r *run) {
	for {
		select {
		case <-r.stop:
			return
		case <-ctx.Done():
			a.mu.Lock()
			if a.current == r {
				a.stopLocked()
				logging.Info(logging.Fields{"reason": ctx.Err()}, "analysis stopped")
			}
			a.mu.Unlock()
			return
		case <-r.ticker.C():
			a.tick(ctx, r)
		}
	}
}

func (a *Analyzer) tick(ctx context.Context, r *run) {
	a.mu.Lock()
	if a.current != r {
		a.mu.Unlock()
		return
	}
	if !a.busy.CompareAndSwap(false, true) {
		a.mu.Unlock()
		a.dropped.Add(1)
		logging.Debug(logging.Fields{}, "analysis tick dropped, previous pass still running")
		return
	}
	a.inflight.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.inflight.Done()
		defer a.busy.Store(false)
		a.publish(ctx, a.pass(ctx, r))
	}()
}

// pass runs one capture and detection. Failures are logged and yield an
// empty frame so the loop keeps going.
func (a *Analyzer) pass(ctx context.Context, r *run) *face.AnalysisFrame {
	start := time.Now()
	cfg := r.config().Normalize()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.passTimeout)
	defer cancel()

	frame, err := a.analyze(ctx, r.source, cfg)

	elapsed := time.Since(start)
	a.lastPass.Store(int64(elapsed))
	a.passes.Add(1)

	if err != nil {
		a.failed.Add(1)
		perr := faceerr.Pass("analysis.pass", err)
		logging.Warn(logging.Fields{"error": perr, "duration": elapsed.String()}, "analysis pass failed")
		return face.EmptyFrame(cfg, err)
	}

	logging.Debug(logging.Fields{"faces": frame.Len(), "duration": elapsed.String()}, "analysis pass finished")
	return frame
}

func (a *Analyzer) analyze(ctx context.Context, source capture.Source, cfg face.AnalysisConfig) (*face.AnalysisFrame, error) {
	data, err := source.Frame(ctx)
	if err != nil {
		return nil, err
	}

	img, err := detector.DetectImage(ctx, a.detector, data, detector.OptionsFor(cfg))
	if err != nil {
		return nil, err
	}
	return face.NewFrame(img.Width, img.Height, cfg, img.Results, data), nil
}

func (a *Analyzer) publish(ctx context.Context, frame *face.AnalysisFrame) {
	if err := a.cache.Store(context.WithoutCancel(ctx), frame); err != nil {
		logging.Error(logging.Fields{"error": err, "frame": frame.ID}, "failed to cache analysis frame")
	}

	a.sinksMu.RLock()
	sinks := make([]Sink, 0, len(a.sinks))
	for _, s := range a.sinks {
		sinks = append(sinks, s)
	}
	a.sinksMu.RUnlock()

	for _, s := range sinks {
		s(frame)
	}
}
