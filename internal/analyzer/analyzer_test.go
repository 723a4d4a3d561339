package analyzer_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/facelens/internal/analyzer"
	"github.com/kozaktomas/facelens/internal/analyzer/analyzertest"
	"github.com/kozaktomas/facelens/internal/cache"
	"github.com/kozaktomas/facelens/internal/capture"
	"github.com/kozaktomas/facelens/internal/detector"
	"github.com/kozaktomas/facelens/internal/detector/mock"
	"github.com/kozaktomas/facelens/internal/face"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30))); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type fixture struct {
	analyzer *analyzer.Analyzer
	clock    *analyzertest.Clock
	detector *mock.Detector
	cache    *cache.Memory
	source   capture.Source
}

func newFixture(t *testing.T, det *mock.Detector) *fixture {
	t.Helper()
	clock := analyzertest.NewClock()
	c := cache.NewMemory()
	f := &fixture{
		analyzer: analyzer.New(det, c, analyzer.Options{Clock: clock}),
		clock:    clock,
		detector: det,
		cache:    c,
		source:   capture.NewStatic(testPNG(t)),
	}
	t.Cleanup(func() {
		f.analyzer.Stop()
		f.analyzer.Wait()
	})
	return f
}

func (f *fixture) start(t *testing.T, cfg face.AnalysisConfig) {
	t.Helper()
	if err := f.analyzer.Start(context.Background(), f.source, func() face.AnalysisConfig { return cfg }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, mock.New())

	if f.analyzer.State() != analyzer.Idle {
		t.Fatalf("expected Idle, got %v", f.analyzer.State())
	}
	if f.analyzer.Stop() {
		t.Error("expected Stop on idle analyzer to report false")
	}

	f.start(t, face.DefaultConfig())
	if f.analyzer.State() != analyzer.Running {
		t.Fatalf("expected Running, got %v", f.analyzer.State())
	}

	err := f.analyzer.Start(context.Background(), f.source, face.DefaultConfig)
	if !errors.Is(err, analyzer.ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	if !f.analyzer.Stop() {
		t.Error("expected Stop to report true")
	}
	if f.analyzer.State() != analyzer.Idle {
		t.Errorf("expected Idle after Stop, got %v", f.analyzer.State())
	}
	if f.clock.Active() != 0 {
		t.Error("expected ticker to be revoked")
	}

	f.clock.Tick()
	f.analyzer.Wait()
	if f.detector.Calls() != 0 {
		t.Errorf("expected no pass after Stop, got %d", f.detector.Calls())
	}

	// Restart after stop is allowed.
	f.start(t, face.DefaultConfig())
	if f.analyzer.State() != analyzer.Running {
		t.Error("expected Running after restart")
	}
}

func TestPassPublishesFrame(t *testing.T) {
	det := mock.New(face.DetectionResult{
		Box:         face.Box{X: 1, Y: 2, Width: 10, Height: 10},
		Score:       0.9,
		Expressions: face.Some(face.Expressions{"happy": 0.9}),
	})
	f := newFixture(t, det)

	var mu sync.Mutex
	var received []*face.AnalysisFrame
	unsubscribe := f.analyzer.Subscribe(func(frame *face.AnalysisFrame) {
		mu.Lock()
		received = append(received, frame)
		mu.Unlock()
	})
	defer unsubscribe()

	f.start(t, face.AnalysisConfig{ConfidenceThreshold: 1.7, Emotions: true})
	f.clock.Tick()
	waitFor(t, "first pass", func() bool { return f.analyzer.Stats().Passes == 1 })
	f.analyzer.Wait()

	frame, err := f.cache.Load(context.Background())
	if err != nil {
		t.Fatalf("expected cached frame: %v", err)
	}
	if frame.Len() != 1 || frame.Width != 40 || frame.Height != 30 {
		t.Errorf("unexpected frame %+v", frame)
	}
	if len(frame.Image) == 0 {
		t.Error("expected frame to carry its input image")
	}

	mu.Lock()
	if len(received) != 1 || received[0].ID != frame.ID {
		t.Errorf("expected sink to receive the cached frame, got %d frames", len(received))
	}
	mu.Unlock()

	opts := det.Options()[0]
	if opts.MinConfidence != 1 {
		t.Errorf("expected clamped min confidence 1, got %v", opts.MinConfidence)
	}
	if !opts.Expressions || opts.AgeGender || opts.Landmarks || opts.Descriptors {
		t.Errorf("expected only expressions requested, got %+v", opts)
	}
}

func TestDetectionOnlyWithoutFlags(t *testing.T) {
	f := newFixture(t, mock.New())
	f.start(t, face.DefaultConfig())
	f.clock.Tick()
	waitFor(t, "pass", func() bool { return f.detector.Calls() == 1 })

	if opts := f.detector.Options()[0]; !opts.Bare() {
		t.Errorf("expected detection-only request, got %+v", opts)
	}
}

func TestBusyTickIsDropped(t *testing.T) {
	release := make(chan struct{})
	det := mock.New()
	det.DetectFn = func(ctx context.Context, call int, data []byte, opts detector.Options) ([]face.DetectionResult, error) {
		if call == 1 {
			<-release
		}
		return nil, nil
	}
	f := newFixture(t, det)
	f.start(t, face.DefaultConfig())

	f.clock.Tick()
	waitFor(t, "first pass to block", func() bool { return det.Calls() == 1 })
	if !f.analyzer.Busy() {
		t.Fatal("expected analyzer to be busy")
	}

	f.clock.Tick()
	f.clock.Tick()
	waitFor(t, "dropped ticks", func() bool { return f.analyzer.Stats().Dropped == 2 })
	if det.Calls() != 1 {
		t.Errorf("expected no overlapping pass, got %d calls", det.Calls())
	}

	close(release)
	f.analyzer.Wait()
	if f.analyzer.Busy() {
		t.Error("expected busy flag cleared after pass")
	}

	f.clock.Tick()
	waitFor(t, "pass after release", func() bool { return det.Calls() == 2 })
}

func TestPassErrorDoesNotStopLoop(t *testing.T) {
	det := mock.New()
	det.DetectFn = func(ctx context.Context, call int, data []byte, opts detector.Options) ([]face.DetectionResult, error) {
		if call == 1 {
			return nil, errors.New("backend hiccup")
		}
		return []face.DetectionResult{{Score: 0.8}}, nil
	}
	f := newFixture(t, det)
	f.start(t, face.DefaultConfig())

	f.clock.Tick()
	waitFor(t, "failed pass", func() bool { return f.analyzer.Stats().Failed == 1 })
	f.analyzer.Wait()

	frame, err := f.cache.Load(context.Background())
	if err != nil {
		t.Fatalf("expected empty frame to be cached: %v", err)
	}
	if frame.Len() != 0 || frame.Err != "backend hiccup" {
		t.Errorf("expected empty frame with error, got %+v", frame)
	}
	if f.analyzer.State() != analyzer.Running {
		t.Fatal("expected loop to keep running after a failed pass")
	}

	f.clock.Tick()
	waitFor(t, "second pass", func() bool { return f.analyzer.Stats().Passes == 2 })
	f.analyzer.Wait()

	frame, _ = f.cache.Load(context.Background())
	if frame.Len() != 1 {
		t.Errorf("expected successful frame to replace the empty one, got %d faces", frame.Len())
	}
	if f.analyzer.Stats().Failed != 1 {
		t.Errorf("expected 1 failure, got %d", f.analyzer.Stats().Failed)
	}
}

func TestStopDuringPassStillPublishes(t *testing.T) {
	release := make(chan struct{})
	det := mock.New()
	det.DetectFn = func(ctx context.Context, call int, data []byte, opts detector.Options) ([]face.DetectionResult, error) {
		<-release
		return []face.DetectionResult{{Score: 0.7}}, nil
	}
	f := newFixture(t, det)
	f.start(t, face.DefaultConfig())

	f.clock.Tick()
	waitFor(t, "pass in flight", func() bool { return det.Calls() == 1 })
	f.analyzer.Stop()
	close(release)
	f.analyzer.Wait()

	frame, err := f.cache.Load(context.Background())
	if err != nil || frame.Len() != 1 {
		t.Errorf("expected in-flight pass to publish, got %v / %v", frame, err)
	}
}

func TestContextCancelStops(t *testing.T) {
	f := newFixture(t, mock.New())
	ctx, cancel := context.WithCancel(context.Background())
	if err := f.analyzer.Start(ctx, f.source, face.DefaultConfig); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()
	waitFor(t, "idle after cancel", func() bool { return f.analyzer.State() == analyzer.Idle })
}

func TestConfigAppliesOnNextPass(t *testing.T) {
	det := mock.New()
	f := newFixture(t, det)

	var mu sync.Mutex
	cfg := face.DefaultConfig()
	if err := f.analyzer.Start(context.Background(), f.source, func() face.AnalysisConfig {
		mu.Lock()
		defer mu.Unlock()
		return cfg
	}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.clock.Tick()
	waitFor(t, "first pass", func() bool { return det.Calls() == 1 })
	f.analyzer.Wait()

	mu.Lock()
	cfg.AgeGender = true
	mu.Unlock()

	f.clock.Tick()
	waitFor(t, "second pass", func() bool { return det.Calls() == 2 })

	opts := det.Options()
	if opts[0].AgeGender || !opts[1].AgeGender {
		t.Errorf("expected toggle to apply on the next pass, got %+v", opts)
	}
}

func TestNewClampsInterval(t *testing.T) {
	if got := analyzer.New(mock.New(), cache.NewMemory(), analyzer.Options{}).Interval(); got != 500*time.Millisecond {
		t.Errorf("expected default interval, got %v", got)
	}
	if got := analyzer.New(mock.New(), cache.NewMemory(), analyzer.Options{Interval: time.Millisecond}).Interval(); got != 50*time.Millisecond {
		t.Errorf("expected minimum interval, got %v", got)
	}
	if got := analyzer.New(mock.New(), cache.NewMemory(), analyzer.Options{Interval: time.Minute}).Interval(); got != 10*time.Second {
		t.Errorf("expected maximum interval, got %v", got)
	}
}
