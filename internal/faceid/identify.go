package faceid

import (
	"context"
	"fmt"

	"github.com/kozaktomas/faceid/internal/facematch"
)

// Identify ranks stored identities against the largest face in image.
func (s *Service) Identify(ctx context.Context, image []byte, opts IdentifyOptions) (*IdentifyResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	face, err := s.largestFace(ctx, image)
	if err != nil {
		return nil, err
	}
	if face == nil {
		return &IdentifyResult{OK: false, Reason: ReasonNoFaceDetected, Results: []facematch.Candidate{}, Threshold: opts.Threshold}, nil
	}

	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	candidates := facematch.Rank(face.Embedding, records, opts.rank())
	result := &IdentifyResult{
		OK:          true,
		Box:         face.Box,
		Probability: face.Probability,
		Results:     candidates,
		Threshold:   opts.Threshold,
	}

	primary := facematch.Primary(candidates)
	if !primary.Assigned {
		return result, nil
	}
	result.PrimaryIdentity = identityPtr(primary.Identity)
	result.PrimarySimilarity = scorePtr(primary.Similarity)

	if opts.AutoEnroll && primary.Similarity >= opts.AutoEnrollMinSimilarity {
		outcome, err := s.appendEmbedding(ctx, primary.Identity, face.Embedding)
		if err != nil {
			return nil, fmt.Errorf("auto-enroll: %w", err)
		}
		result.AutoEnrolledIdentity = identityPtr(primary.Identity)
		result.Storage = outcome
	}
	return result, nil
}

// IdentifyMulti ranks stored identities against every face in image and
// picks a primary identity per face. With ExclusiveAssignment no identity is
// given to more than one face; more confident faces choose first.
func (s *Service) IdentifyMulti(ctx context.Context, image []byte, opts MultiIdentifyOptions) (*MultiIdentifyResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	faces, err := s.allFaces(ctx, image, opts.MinProbability)
	if err != nil {
		return nil, err
	}
	result := &MultiIdentifyResult{
		Faces:               []ResolvedFace{},
		Threshold:           opts.Threshold,
		ExclusiveAssignment: opts.ExclusiveAssignment,
	}
	if len(faces) == 0 {
		result.Reason = ReasonNoFaceDetected
		return result, nil
	}

	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	// Rank every face before assigning any of them.
	rankOpts := opts.rank()
	ranked := make([][]facematch.Candidate, len(faces))
	for i := range faces {
		ranked[i] = facematch.Rank(faces[i].Embedding, records, rankOpts)
	}
	assignments := facematch.Resolve(ranked, facematch.ResolveOptions{
		Exclusive:     opts.ExclusiveAssignment,
		FilterMatches: opts.FilterMatches,
	})

	result.OK = true
	result.Faces = make([]ResolvedFace, len(faces))
	for i := range faces {
		rf := ResolvedFace{
			Box:         faces[i].Box,
			Probability: faces[i].Probability,
			Results:     ranked[i],
			embedding:   faces[i].Embedding,
		}
		if a := assignments[i]; a.Assigned {
			rf.PrimaryIdentity = identityPtr(a.Identity)
			rf.PrimarySimilarity = scorePtr(a.Similarity)
		}
		result.Faces[i] = rf
	}

	if opts.AutoEnroll {
		for i := range result.Faces {
			if err := s.autoEnrollFace(ctx, &result.Faces[i], assignments[i], opts.AutoEnrollMinSimilarity); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func (s *Service) autoEnrollFace(ctx context.Context, rf *ResolvedFace, a facematch.Assignment, minSim float64) error {
	if !a.Assigned || a.Similarity < minSim {
		return nil
	}
	outcome, err := s.appendEmbedding(ctx, a.Identity, rf.embedding)
	if err != nil {
		return fmt.Errorf("auto-enroll: %w", err)
	}
	rf.AutoEnrolledIdentity = identityPtr(a.Identity)
	rf.Storage = outcome
	return nil
}
