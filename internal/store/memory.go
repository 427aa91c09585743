package store

import (
	"context"
	"sync"
	"time"

	"github.com/poolwatch/poolwatch/internal/occupancy"
)

// MemoryStore is a concurrency-safe in-memory SampleStore. It honors the
// same contract as the SQLite store (append-only, duplicate-timestamp
// rejection) and backs tests that do not need durability.
type MemoryStore struct {
	mu      sync.RWMutex
	samples []occupancy.Sample
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert appends a sample, rejecting duplicates at second precision.
func (m *MemoryStore) Insert(_ context.Context, sample occupancy.Sample) error {
	ts := sample.Timestamp.UTC().Truncate(time.Second)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.samples {
		if existing.Timestamp.Equal(ts) {
			return occupancy.ErrDuplicateSample
		}
	}

	sample.Timestamp = ts
	m.samples = append(m.samples, sample)
	return nil
}

// Latest returns the most recently inserted sample.
func (m *MemoryStore) Latest(_ context.Context) (occupancy.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.samples) == 0 {
		return occupancy.Sample{}, occupancy.ErrNoData
	}
	return m.samples[len(m.samples)-1], nil
}

// Range returns all samples with timestamp >= since, oldest first.
func (m *MemoryStore) Range(_ context.Context, since time.Time) ([]occupancy.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []occupancy.Sample
	for _, sample := range m.samples {
		if !sample.Timestamp.Before(since) {
			result = append(result, sample)
		}
	}
	return result, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
