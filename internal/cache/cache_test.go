package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kozaktomas/facelens/internal/face"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	if _, err := c.Load(ctx); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}

	first := face.NewFrame(10, 10, face.DefaultConfig(), nil, nil)
	second := face.NewFrame(20, 20, face.DefaultConfig(), []face.DetectionResult{{Score: 0.9}}, nil)

	if err := c.Store(ctx, first); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := c.Store(ctx, second); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("expected the latest frame %s, got %s", second.ID, got.ID)
	}
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Store(ctx, face.NewFrame(i, i, face.DefaultConfig(), nil, nil))
		}()
		go func() {
			defer wg.Done()
			c.Load(ctx)
		}()
	}
	wg.Wait()

	if _, err := c.Load(ctx); err != nil {
		t.Errorf("expected a frame after concurrent stores, got %v", err)
	}
}
