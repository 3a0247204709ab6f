// Package facematch scores query embeddings against stored ones, ranks the
// resulting candidates, and assigns identities to the faces of one image.
package facematch

import (
	"encoding/json"
	"math"

	"github.com/kozaktomas/faceid/internal/database"
)

// Mode selects how stored embeddings are ranked.
type Mode string

const (
	ModeFlat    Mode = "flat"    // one candidate per stored embedding
	ModeGrouped Mode = "grouped" // one candidate per identity, scored by its best embedding
)

// ParseMode converts a request value into a Mode. Empty input means flat.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeFlat:
		return ModeFlat, true
	case ModeGrouped:
		return ModeGrouped, true
	}
	return "", false
}

// Candidate is one ranked match for a query embedding.
type Candidate struct {
	Identity   database.Identity `json:"user_id"`
	Similarity float64           `json:"similarity"`
	IsMatch    bool              `json:"match"`
}

// MarshalJSON reports the similarity rounded to 4 decimals.
func (c Candidate) MarshalJSON() ([]byte, error) {
	type candidate Candidate
	out := candidate(c)
	out.Similarity = Round(c.Similarity)
	return json.Marshal(out)
}

// Round rounds a similarity to 4 decimals for presentation.
func Round(sim float64) float64 {
	return math.Round(sim*10000) / 10000
}

// Scored is a raw (identity, similarity) pair before ranking.
type Scored struct {
	Identity   database.Identity
	Similarity float64
}

// RankOptions controls candidate ranking.
type RankOptions struct {
	Mode          Mode
	TopK          int
	Threshold     float64
	FilterMatches bool
}

// Assignment is the identity chosen for one face.
type Assignment struct {
	Identity   database.Identity
	Similarity float64
	Assigned   bool
}
