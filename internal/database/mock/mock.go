// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/facelens/internal/database"
)

// MockComparisonStore is an in-memory implementation of database.ComparisonStore
type MockComparisonStore struct {
	mu      sync.RWMutex
	records []database.ComparisonRecord
	nextID  int64

	// Error injection
	SaveError   error
	RecentError error
	CountError  error
}

// NewMockComparisonStore creates a new mock comparison store
func NewMockComparisonStore() *MockComparisonStore {
	return &MockComparisonStore{}
}

// Save appends the records, assigning IDs and timestamps
func (m *MockComparisonStore) Save(ctx context.Context, records []database.ComparisonRecord) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, r := range records {
		m.nextID++
		r.ID = m.nextID
		r.CreatedAt = now
		m.records = append(m.records, r)
	}
	return nil
}

// Recent returns the newest records first
func (m *MockComparisonStore) Recent(ctx context.Context, limit int) ([]database.ComparisonRecord, error) {
	if m.RecentError != nil {
		return nil, m.RecentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.ComparisonRecord, 0, min(limit, len(m.records)))
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

// Count returns the number of stored records
func (m *MockComparisonStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Records returns a copy of every stored record in insertion order
func (m *MockComparisonStore) Records() []database.ComparisonRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.ComparisonRecord, len(m.records))
	copy(out, m.records)
	return out
}
