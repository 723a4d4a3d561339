//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/facelens/internal/config"
	"github.com/kozaktomas/facelens/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func descriptor(seed float32) []float32 {
	d := make([]float32, 128)
	for i := range d {
		d[i] = seed + float32(i)/128.0
	}
	return d
}

func TestComparisonRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewComparisonRepository(pool)

	first := uuid.NewString()
	second := uuid.NewString()

	t.Run("SaveAndRecent", func(t *testing.T) {
		err := repo.Save(ctx, []database.ComparisonRecord{
			{ComparisonID: first, Mode: database.ModeLive, ProbeIndex: 0, CandidateIndex: 0, Distance: 0.42, Match: true,
				ProbeDescriptor: descriptor(0), CandidateDescriptor: descriptor(0.01)},
			{ComparisonID: first, Mode: database.ModeLive, ProbeIndex: 0, CandidateIndex: 1, Distance: 0.81, Match: false,
				ProbeDescriptor: descriptor(0), CandidateDescriptor: descriptor(0.5)},
		})
		if err != nil {
			t.Fatalf("Failed to save comparison: %v", err)
		}

		err = repo.Save(ctx, []database.ComparisonRecord{
			{ComparisonID: second, Mode: database.ModePhotos, Distance: 0.6, Match: false,
				ProbeDescriptor: descriptor(1), CandidateDescriptor: descriptor(2)},
		})
		if err != nil {
			t.Fatalf("Failed to save comparison: %v", err)
		}

		recent, err := repo.Recent(ctx, 10)
		if err != nil {
			t.Fatalf("Failed to list comparisons: %v", err)
		}
		if len(recent) != 3 {
			t.Fatalf("Expected 3 records, got %d", len(recent))
		}
		if recent[0].ComparisonID != second || recent[0].Mode != database.ModePhotos {
			t.Errorf("Expected newest record first, got %+v", recent[0])
		}
		if len(recent[0].ProbeDescriptor) != 128 {
			t.Errorf("Expected 128-d descriptor, got %d", len(recent[0].ProbeDescriptor))
		}
		if recent[0].CreatedAt.IsZero() {
			t.Error("Expected created_at to be set")
		}

		limited, err := repo.Recent(ctx, 1)
		if err != nil {
			t.Fatalf("Failed to list comparisons: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("Expected 1 record, got %d", len(limited))
		}
	})

	t.Run("Count", func(t *testing.T) {
		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 3 {
			t.Errorf("Expected 3, got %d", count)
		}
	})

	t.Run("DuplicatePairRollsBack", func(t *testing.T) {
		err := repo.Save(ctx, []database.ComparisonRecord{
			{ComparisonID: uuid.NewString(), Mode: database.ModeLive,
				ProbeDescriptor: descriptor(0), CandidateDescriptor: descriptor(0)},
			{ComparisonID: first, Mode: database.ModeLive, ProbeIndex: 0, CandidateIndex: 0,
				ProbeDescriptor: descriptor(0), CandidateDescriptor: descriptor(0)},
		})
		if err == nil {
			t.Fatal("Expected unique violation")
		}
		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 3 {
			t.Errorf("Expected failed save to roll back, got %d records", count)
		}
	})

	t.Run("MigrationsApplied", func(t *testing.T) {
		versions, err := pool.MigrationsApplied(ctx)
		if err != nil {
			t.Fatalf("Failed to list migrations: %v", err)
		}
		if len(versions) == 0 || versions[0] != "001_comparisons.sql" {
			t.Errorf("Unexpected migrations %v", versions)
		}
		// Running again is a no-op.
		if err := pool.Migrate(ctx); err != nil {
			t.Errorf("Second migrate failed: %v", err)
		}
	})
}
