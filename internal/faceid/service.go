// Package faceid is the face identification and enrollment engine. It ties
// the detector, the ranking in facematch and the tiered embedding store
// together behind the operations exposed over HTTP and the CLI.
package faceid

import (
	"context"
	"fmt"

	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/database"
	"github.com/kozaktomas/faceid/internal/detector"
	"github.com/kozaktomas/faceid/internal/facematch"
)

const defaultConcurrency = 4

// Service runs identification and enrollment against one store.
type Service struct {
	detector    detector.Detector
	store       database.EmbeddingStore
	defaults    config.MatchingConfig
	concurrency int
}

// NewService creates the engine. concurrency bounds parallel detector calls
// during batch enrollment; values below 1 fall back to a default.
func NewService(det detector.Detector, store database.EmbeddingStore, defaults config.MatchingConfig, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Service{
		detector:    det,
		store:       store,
		defaults:    defaults,
		concurrency: concurrency,
	}
}

// largestFace detects faces and returns the one with the largest box among
// those that carry an embedding.
func (s *Service) largestFace(ctx context.Context, image []byte) (*detector.Face, error) {
	faces, err := s.detector.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}
	withEmbedding := make([]detector.Face, 0, len(faces))
	for _, f := range faces {
		if len(f.Embedding) > 0 {
			withEmbedding = append(withEmbedding, f)
		}
	}
	boxes := make([][]float64, len(withEmbedding))
	for i := range withEmbedding {
		boxes[i] = withEmbedding[i].Box
	}
	idx := facematch.LargestBox(boxes)
	if idx < 0 {
		return nil, nil
	}
	return &withEmbedding[idx], nil
}

// allFaces detects every face with an embedding whose probability clears minProb.
func (s *Service) allFaces(ctx context.Context, image []byte, minProb float64) ([]detector.Face, error) {
	faces, err := s.detector.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}
	kept := make([]detector.Face, 0, len(faces))
	for _, f := range detector.FilterByProbability(faces, minProb) {
		if len(f.Embedding) > 0 {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

func (s *Service) loadAll(ctx context.Context) ([]database.EmbeddingRecord, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading embeddings: %w", err)
	}
	return records, nil
}

func (s *Service) appendEmbedding(ctx context.Context, identity database.Identity, embedding []float32) (*database.StorageOutcome, error) {
	outcome, err := s.store.Append(ctx, identity, embedding)
	if err != nil {
		return nil, fmt.Errorf("storing embedding for %s: %w", identity, err)
	}
	return outcome, nil
}
