package faceid

import (
	"context"
	"fmt"
	"slices"

	"github.com/kozaktomas/faceid/internal/database"
	"github.com/kozaktomas/faceid/internal/detector"
)

// Detect returns face boxes and probabilities without matching.
func (s *Service) Detect(ctx context.Context, image []byte) (*DetectResult, error) {
	faces, err := s.detector.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}
	out := make([]detector.Face, 0, len(faces))
	for _, f := range faces {
		if len(f.Box) != 4 {
			continue
		}
		out = append(out, detector.Face{Box: f.Box, Probability: f.Probability})
	}
	return &DetectResult{OK: true, Count: len(out), Faces: out}, nil
}

// Stats counts stored records, distinct identities and vector dimensions.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	identities := make(map[database.Identity]struct{})
	dims := make(map[int]struct{})
	for i := range records {
		identities[records[i].Identity] = struct{}{}
		dims[records[i].Dim()] = struct{}{}
	}
	st := &Stats{Records: len(records), Identities: len(identities), Dims: make([]int, 0, len(dims))}
	for d := range dims {
		st.Dims = append(st.Dims, d)
	}
	slices.Sort(st.Dims)
	return st, nil
}
