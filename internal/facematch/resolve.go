package facematch

import (
	"cmp"
	"slices"

	"github.com/kozaktomas/faceid/internal/database"
)

// ResolveOptions controls multi-face identity assignment.
type ResolveOptions struct {
	// Exclusive forbids assigning one identity to more than one face.
	Exclusive bool
	// FilterMatches additionally requires an exclusively assigned candidate to be a match.
	FilterMatches bool
}

// Primary picks a face's identity without regard to other faces: the first
// matching candidate, or the best candidate when none match.
func Primary(candidates []Candidate) Assignment {
	for _, c := range candidates {
		if c.IsMatch {
			return Assignment{Identity: c.Identity, Similarity: c.Similarity, Assigned: true}
		}
	}
	if len(candidates) > 0 {
		c := candidates[0]
		return Assignment{Identity: c.Identity, Similarity: c.Similarity, Assigned: true}
	}
	return Assignment{}
}

// ResolutionOrder returns face indexes ordered by their best candidate's
// similarity, descending. Faces without candidates come last; ties keep input order.
func ResolutionOrder(faces [][]Candidate) []int {
	order := make([]int, len(faces))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		ca, cb := faces[a], faces[b]
		switch {
		case len(ca) == 0 && len(cb) == 0:
			return 0
		case len(ca) == 0:
			return 1
		case len(cb) == 0:
			return -1
		}
		return cmp.Compare(cb[0].Similarity, ca[0].Similarity)
	})
	return order
}

// Resolve assigns at most one identity to each face. Every face's ranked
// candidates must be known up front: in exclusive mode faces claim identities
// greedily in ResolutionOrder, so a confident face is never preempted by a weaker
// one that happens to come first. Results are indexed like faces.
func Resolve(faces [][]Candidate, opts ResolveOptions) []Assignment {
	assignments := make([]Assignment, len(faces))
	if !opts.Exclusive {
		for i, candidates := range faces {
			assignments[i] = Primary(candidates)
		}
		return assignments
	}

	claimed := make(map[database.Identity]struct{})
	for _, idx := range ResolutionOrder(faces) {
		for _, c := range faces[idx] {
			if _, taken := claimed[c.Identity]; taken {
				continue
			}
			if opts.FilterMatches && !c.IsMatch {
				continue
			}
			claimed[c.Identity] = struct{}{}
			assignments[idx] = Assignment{Identity: c.Identity, Similarity: c.Similarity, Assigned: true}
			break
		}
	}
	return assignments
}
