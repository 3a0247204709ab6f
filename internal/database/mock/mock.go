// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/kozaktomas/faceid/internal/database"
)

// MockBackend is an in-memory database.Backend with error injection.
type MockBackend struct {
	mu      sync.RWMutex
	records []database.EmbeddingRecord

	// Error injection
	AppendError  error
	LoadAllError error

	// Call counters
	AppendCalls  int
	LoadAllCalls int
}

// NewMockBackend creates a new empty mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// AddRecord seeds a record without going through Append.
func (m *MockBackend) AddRecord(rec database.EmbeddingRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

// Append stores a record.
func (m *MockBackend) Append(ctx context.Context, rec database.EmbeddingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	if m.AppendError != nil {
		return m.AppendError
	}
	m.records = append(m.records, rec)
	return nil
}

// LoadAll returns copies of all records in insertion order.
func (m *MockBackend) LoadAll(ctx context.Context) ([]database.EmbeddingRecord, error) {
	m.mu.Lock()
	m.LoadAllCalls++
	m.mu.Unlock()
	if m.LoadAllError != nil {
		return nil, m.LoadAllError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.EmbeddingRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

// Records returns the stored records.
func (m *MockBackend) Records() []database.EmbeddingRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.EmbeddingRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of stored records.
func (m *MockBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
