// Package cache holds the most recent analysis frame.
package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/kozaktomas/facelens/internal/face"
)

// ErrEmpty is returned by Load before the first frame was stored.
var ErrEmpty = errors.New("no analysis frame cached")

// FrameCache keeps a single frame. Store replaces the previous frame wholesale.
type FrameCache interface {
	Store(ctx context.Context, frame *face.AnalysisFrame) error
	Load(ctx context.Context) (*face.AnalysisFrame, error)
}

// Memory is an in-process FrameCache.
type Memory struct {
	mu    sync.RWMutex
	frame *face.AnalysisFrame
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Store(ctx context.Context, frame *face.AnalysisFrame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = frame
	return nil
}

func (m *Memory) Load(ctx context.Context) (*face.AnalysisFrame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.frame == nil {
		return nil, ErrEmpty
	}
	return m.frame, nil
}
