package faceid

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/faceid/internal/database"
)

// Enroll embeds the largest face of image and stores it under identity.
// An image without a face yields OK=false, not an error.
func (s *Service) Enroll(ctx context.Context, identity database.Identity, image []byte) (*EnrollResult, error) {
	if identity.IsZero() {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidOptions)
	}

	face, err := s.largestFace(ctx, image)
	if err != nil {
		return nil, err
	}
	if face == nil {
		return &EnrollResult{OK: false, Reason: ReasonNoFaceDetected}, nil
	}

	outcome, err := s.appendEmbedding(ctx, identity, face.Embedding)
	if err != nil {
		return nil, err
	}
	return &EnrollResult{OK: true, Dim: len(face.Embedding), Storage: outcome}, nil
}

// EnrollBatch enrolls every image under identity. Images are embedded
// concurrently and stored in input order; images without a face are skipped.
func (s *Service) EnrollBatch(ctx context.Context, identity database.Identity, images [][]byte, onProgress func()) (*BatchEnrollResult, error) {
	if identity.IsZero() {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidOptions)
	}

	embeddings := make([][]float32, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, img := range images {
		g.Go(func() error {
			face, err := s.largestFace(gctx, img)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			if face != nil {
				embeddings[i] = face.Embedding
			}
			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BatchEnrollResult{OK: true, Storage: []database.StorageOutcome{}}
	for i, emb := range embeddings {
		if emb == nil {
			result.Skipped++
			continue
		}
		outcome, err := s.appendEmbedding(ctx, identity, emb)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		result.Enrolled++
		result.Storage = append(result.Storage, *outcome)
	}

	log.Printf("Batch enrollment for %s: enrolled=%d skipped=%d", identity, result.Enrolled, result.Skipped)
	return result, nil
}
