package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Store is the tiered embedding store: a primary backend with a local
// fallback. The primary is optional; without it every call goes to the local tier.
type Store struct {
	primary Backend
	local   Backend
	now     func() time.Time
}

// NewStore creates a tiered store. primary may be nil.
func NewStore(primary, local Backend) *Store {
	return &Store{
		primary: primary,
		local:   local,
		now:     time.Now,
	}
}

// Append durably adds one record. A primary failure is recovered by writing to
// the local tier; the outcome reports where the record landed and what the
// primary returned. ErrStoreUnavailable is returned only when no tier accepted it.
func (s *Store) Append(ctx context.Context, identity Identity, embedding []float32) (*StorageOutcome, error) {
	if identity.IsZero() {
		return nil, errors.New("identity is required")
	}
	if len(embedding) == 0 {
		return nil, errors.New("embedding is empty")
	}

	rec := EmbeddingRecord{
		ID:        uuid.NewString(),
		Identity:  identity,
		Embedding: append([]float32(nil), embedding...),
		CreatedAt: s.now().UTC(),
	}
	outcome := &StorageOutcome{RecordID: rec.ID}

	if s.primary != nil {
		err := s.primary.Append(ctx, rec)
		if err == nil {
			outcome.Tier = TierPrimary
			return outcome, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("appending embedding: %w", ctx.Err())
		}
		log.Printf("[store] primary append failed, falling back to local: %v", err)
		outcome.PrimaryError = err.Error()
	}

	if err := s.local.Append(ctx, rec); err != nil {
		log.Printf("[store] local append failed: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	outcome.Tier = TierLocal
	return outcome, nil
}

// LoadAll returns every record the store knows about. The primary is queried
// first; on error or an empty result the local tier's contents are returned instead.
func (s *Store) LoadAll(ctx context.Context) ([]EmbeddingRecord, error) {
	if s.primary != nil {
		records, err := s.primary.LoadAll(ctx)
		switch {
		case err == nil && len(records) > 0:
			return records, nil
		case err != nil:
			if ctx.Err() != nil {
				return nil, fmt.Errorf("loading embeddings: %w", ctx.Err())
			}
			log.Printf("[store] primary load failed, using local tier: %v", err)
		}
	}

	records, err := s.local.LoadAll(ctx)
	if err != nil {
		// The local tier is best-effort on read; an unreadable file means no records.
		log.Printf("[store] local load failed: %v", err)
		return nil, nil
	}
	return records, nil
}
