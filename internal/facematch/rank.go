package facematch

import (
	"cmp"
	"slices"

	"github.com/kozaktomas/faceid/internal/database"
)

// Rank scores query against records and ranks according to opts.
func Rank(query []float32, records []database.EmbeddingRecord, opts RankOptions) []Candidate {
	scored := Score(query, records)
	if opts.Mode == ModeGrouped {
		return RankGrouped(scored, opts)
	}
	return RankFlat(scored, opts)
}

// RankFlat ranks individual stored embeddings by similarity, descending.
// Ties keep store insertion order.
func RankFlat(scored []Scored, opts RankOptions) []Candidate {
	sorted := slices.Clone(scored)
	slices.SortStableFunc(sorted, func(a, b Scored) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	return finalize(sorted, opts)
}

// RankGrouped collapses each identity to its best similarity before ranking.
// Identities with equal similarity are ordered lowest identity first.
func RankGrouped(scored []Scored, opts RankOptions) []Candidate {
	return finalize(GroupByIdentityMax(scored), opts)
}

// GroupByIdentityMax reduces scored pairs to one per identity holding the
// maximum similarity, sorted descending.
func GroupByIdentityMax(scored []Scored) []Scored {
	best := make(map[database.Identity]float64, len(scored))
	for _, s := range scored {
		if cur, ok := best[s.Identity]; !ok || s.Similarity > cur {
			best[s.Identity] = s.Similarity
		}
	}

	grouped := make([]Scored, 0, len(best))
	for id, sim := range best {
		grouped = append(grouped, Scored{Identity: id, Similarity: sim})
	}
	slices.SortFunc(grouped, func(a, b Scored) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return a.Identity.Compare(b.Identity)
	})
	return grouped
}

// finalize truncates to top-k (at least 1), marks matches, and applies the match filter.
func finalize(sorted []Scored, opts RankOptions) []Candidate {
	k := max(1, opts.TopK)
	if len(sorted) > k {
		sorted = sorted[:k]
	}

	candidates := make([]Candidate, 0, len(sorted))
	for _, s := range sorted {
		c := Candidate{
			Identity:   s.Identity,
			Similarity: s.Similarity,
			IsMatch:    s.Similarity >= opts.Threshold,
		}
		if opts.FilterMatches && !c.IsMatch {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}
