package database

import (
	"context"
)

// EmbeddingAppender persists a single embedding record.
type EmbeddingAppender interface {
	// Append inserts one record. It never overwrites existing records.
	Append(ctx context.Context, rec EmbeddingRecord) error
}

// EmbeddingLoader scans every persisted record.
type EmbeddingLoader interface {
	// LoadAll returns every record in insertion order.
	LoadAll(ctx context.Context) ([]EmbeddingRecord, error)
}

// Backend is one storage tier of the embedding store.
type Backend interface {
	EmbeddingAppender
	EmbeddingLoader
}

// EmbeddingStore is the engine's view of the tiered store.
type EmbeddingStore interface {
	Append(ctx context.Context, identity Identity, embedding []float32) (*StorageOutcome, error)
	LoadAll(ctx context.Context) ([]EmbeddingRecord, error)
}
