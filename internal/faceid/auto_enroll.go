package faceid

import (
	"context"

	"github.com/kozaktomas/faceid/internal/facematch"
)

// AutoEnrollIfConfident enrolls the face of an image only when exactly one
// face is detected and its best grouped match reaches MinSimilarity.
func (s *Service) AutoEnrollIfConfident(ctx context.Context, image []byte, opts AutoEnrollOptions) (*AutoEnrollResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	faces, err := s.allFaces(ctx, image, opts.MinProbability)
	if err != nil {
		return nil, err
	}
	if len(faces) != 1 {
		count := len(faces)
		return &AutoEnrollResult{OK: false, Reason: multipleOrZeroFaces(count), Count: &count}, nil
	}
	query := faces[0].Embedding

	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	grouped := facematch.GroupByIdentityMax(facematch.Score(query, records))
	if len(grouped) == 0 {
		return &AutoEnrollResult{OK: false, Reason: ReasonNoReferenceEmbeddings}, nil
	}

	best := grouped[0]
	if best.Similarity < opts.MinSimilarity {
		return &AutoEnrollResult{OK: false, Reason: ReasonLowSimilarity, Similarity: scorePtr(best.Similarity)}, nil
	}

	outcome, err := s.appendEmbedding(ctx, best.Identity, query)
	if err != nil {
		return nil, err
	}
	return &AutoEnrollResult{
		OK:               true,
		EnrolledIdentity: identityPtr(best.Identity),
		Similarity:       scorePtr(best.Similarity),
		Storage:          outcome,
	}, nil
}
