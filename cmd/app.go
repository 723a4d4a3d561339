package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facelens/internal/analyzer"
	"github.com/kozaktomas/facelens/internal/cache"
	"github.com/kozaktomas/facelens/internal/capture"
	"github.com/kozaktomas/facelens/internal/config"
	"github.com/kozaktomas/facelens/internal/controller"
	"github.com/kozaktomas/facelens/internal/database"
	"github.com/kozaktomas/facelens/internal/database/postgres"
	"github.com/kozaktomas/facelens/internal/detector"
)

// app holds the wired components shared by the commands.
type app struct {
	controller *controller.Controller
	closers    []func() error
}

// Close releases the controller, the cache and the history store.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			fmt.Printf("Warning: cleanup failed: %v\n", err)
		}
	}
}

// buildApp wires the detector, model loader, frame cache, comparison history
// and live source into a controller. Redis and PostgreSQL are optional and
// only used when configured.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	det, err := detector.New(cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}
	a := &app{}
	if closer, ok := det.(interface{ Close() }); ok {
		a.closers = append(a.closers, func() error {
			closer.Close()
			return nil
		})
	}

	var frameCache cache.FrameCache = cache.NewMemory()
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		frameCache = redisCache
		a.closers = append(a.closers, redisCache.Close)
	}

	var history database.ComparisonStore
	if cfg.Database.URL != "" {
		fmt.Println("Connecting to PostgreSQL...")
		repo, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			a.Close()
			return nil, err
		}
		history = repo
		a.closers = append(a.closers, repo.Close)
	}

	camera := cfg.Camera
	a.controller = controller.New(ctx, controller.Options{
		Detector: det,
		Loader:   detector.NewLoader(det, detector.RequiredModels(cfg.Detector), cfg.Detector.Timeout),
		Cache:    frameCache,
		History:  history,
		OpenSource: func() (capture.Source, error) {
			return capture.Open(camera)
		},
		Analyzer: analyzer.Options{Interval: cfg.Analysis.Interval},
		Defaults: cfg.Analysis.Defaults(),
	})
	a.closers = append(a.closers, a.controller.Close)

	return a, nil
}
