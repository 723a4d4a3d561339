//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/facelens/internal/face"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Skipping integration test: Docker not available: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(ctx)
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedis_StoreLoad(t *testing.T) {
	ctx := context.Background()
	c := NewRedisFromClient(setupRedis(t), "test:frame", time.Minute)

	if _, err := c.Load(ctx); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}

	frame := face.NewFrame(640, 480, face.AnalysisConfig{ConfidenceThreshold: 0.5, Emotions: true},
		[]face.DetectionResult{{
			Box:         face.Box{X: 1, Y: 2, Width: 3, Height: 4},
			Score:       0.9,
			Expressions: face.Some(face.Expressions{"happy": 0.8}),
		}}, []byte{0xFF, 0xD8, 0xFF})

	if err := c.Store(ctx, frame); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.ID != frame.ID || got.Len() != 1 {
		t.Errorf("unexpected frame %+v", got)
	}
	if got.Results[0].EmotionText() != "happy" {
		t.Errorf("expected happy, got %s", got.Results[0].EmotionText())
	}
	if len(got.Image) != 3 {
		t.Errorf("expected image to round trip, got %d bytes", len(got.Image))
	}

	empty := face.EmptyFrame(frame.Config, errors.New("camera unplugged"))
	if err := c.Store(ctx, empty); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	got, err = c.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Len() != 0 || got.Image != nil || got.Err != "camera unplugged" {
		t.Errorf("expected empty frame to replace the previous one, got %+v", got)
	}
}
