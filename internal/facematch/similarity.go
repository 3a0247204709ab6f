package facematch

import (
	"math"

	"github.com/kozaktomas/faceid/internal/database"
)

// Cosine computes the cosine similarity between two vectors.
// Returns a value between -1 and 1; 0 when either vector has zero norm or the
// lengths differ. Inputs need not be unit-normalized.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dotProduct / math.Sqrt(normA*normB)
	// Clamp to [-1, 1] to handle floating point errors
	return max(-1, min(1, similarity))
}

// Score computes the similarity of query against every record, preserving
// store order. Records without an identity or with a different
// dimensionality than the query are skipped.
func Score(query []float32, records []database.EmbeddingRecord) []Scored {
	scored := make([]Scored, 0, len(records))
	for i := range records {
		rec := &records[i]
		if rec.Identity.IsZero() || len(rec.Embedding) != len(query) {
			continue
		}
		scored = append(scored, Scored{
			Identity:   rec.Identity,
			Similarity: Cosine(query, rec.Embedding),
		})
	}
	return scored
}
