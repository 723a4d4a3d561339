// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Analysis loop constants
const (
	// DefaultPollInterval is the delay between analysis ticks
	DefaultPollInterval = 500 * time.Millisecond

	// MinPollInterval is the shortest accepted tick interval
	MinPollInterval = 50 * time.Millisecond

	// MaxPollInterval is the longest accepted tick interval
	MaxPollInterval = 10 * time.Second

	// DefaultPassTimeout bounds a single detection pass
	DefaultPassTimeout = 30 * time.Second

	// DefaultModelLoadTimeout bounds one model readiness check
	DefaultModelLoadTimeout = 30 * time.Second
)

// Comparison constants
const (
	// LiveProbeConfidence is the minimum detector score for the live face used as comparison probe
	LiveProbeConfidence = 0.5

	// SecondPhotoHueOffset shifts box colors of the second photo in photo-vs-photo mode
	SecondPhotoHueOffset = 180

	// DefaultHistoryLimit is the number of comparison records returned by default
	DefaultHistoryLimit = 50
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) sent to the detector
	MaxImageSize = 1920

	// DefaultConcurrency is the default number of parallel workers for batch commands
	DefaultConcurrency = 4
)

// Camera constants
const (
	// DefaultCameraDevice is the V4L2 device used when none is configured
	DefaultCameraDevice = "/dev/video0"

	// DefaultCameraWidth and DefaultCameraHeight are the requested capture dimensions
	DefaultCameraWidth  = 640
	DefaultCameraHeight = 480
)

// Cache constants
const (
	// DefaultFrameCacheKey is the Redis key holding the last analysis frame
	DefaultFrameCacheKey = "facelens:last-frame"

	// DefaultFrameCacheTTL expires a cached frame that is no longer refreshed
	DefaultFrameCacheTTL = 10 * time.Minute
)
