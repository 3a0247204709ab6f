package facematch

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/kozaktomas/faceid/internal/database"
)

func scoredOf(pairs ...any) []Scored {
	out := make([]Scored, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Scored{
			Identity:   database.Identity(pairs[i].(string)),
			Similarity: pairs[i+1].(float64),
		})
	}
	return out
}

func identities(cands []Candidate) []database.Identity {
	ids := make([]database.Identity, len(cands))
	for i, c := range cands {
		ids[i] = c.Identity
	}
	return ids
}

func TestRankFlat(t *testing.T) {
	scored := scoredOf("1", 0.5, "2", 0.9, "3", 0.7, "4", 0.9, "5", 0.1)

	tests := []struct {
		name     string
		opts     RankOptions
		expected []database.Identity
	}{
		{
			name:     "top 2 keeps insertion order on ties",
			opts:     RankOptions{TopK: 2, Threshold: 0.6},
			expected: []database.Identity{"2", "4"},
		},
		{
			name:     "top k larger than input",
			opts:     RankOptions{TopK: 10, Threshold: 0.6},
			expected: []database.Identity{"2", "4", "3", "1", "5"},
		},
		{
			name:     "top k zero behaves as one",
			opts:     RankOptions{TopK: 0, Threshold: 0.6},
			expected: []database.Identity{"2"},
		},
		{
			name:     "filter drops non matches",
			opts:     RankOptions{TopK: 5, Threshold: 0.6, FilterMatches: true},
			expected: []database.Identity{"2", "4", "3"},
		},
		{
			name:     "filter applied after truncation",
			opts:     RankOptions{TopK: 4, Threshold: 0.8, FilterMatches: true},
			expected: []database.Identity{"2", "4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := identities(RankFlat(scored, tt.opts))
			if len(got) != len(tt.expected) {
				t.Fatalf("RankFlat() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("RankFlat()[%d] = %s, want %s", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestRankFlatDoesNotReorderInput(t *testing.T) {
	scored := scoredOf("1", 0.1, "2", 0.9)
	RankFlat(scored, RankOptions{TopK: 2})
	if scored[0].Identity != "1" {
		t.Error("RankFlat reordered its input")
	}
}

func TestRankMarksMatches(t *testing.T) {
	cands := RankFlat(scoredOf("1", 0.6, "2", 0.59999), RankOptions{TopK: 2, Threshold: 0.6})
	if !cands[0].IsMatch {
		t.Error("similarity equal to threshold should match")
	}
	if cands[1].IsMatch {
		t.Error("similarity below threshold should not match")
	}
}

func TestRankFilterNeverReturnsBelowThreshold(t *testing.T) {
	scored := scoredOf("1", 0.2, "2", 0.45, "3", 0.61, "4", 0.99, "5", -0.3, "6", 0.6)
	for _, mode := range []Mode{ModeFlat, ModeGrouped} {
		opts := RankOptions{Mode: mode, TopK: 10, Threshold: 0.6, FilterMatches: true}
		var cands []Candidate
		if mode == ModeGrouped {
			cands = RankGrouped(scored, opts)
		} else {
			cands = RankFlat(scored, opts)
		}
		for _, c := range cands {
			if c.Similarity < opts.Threshold || !c.IsMatch {
				t.Errorf("mode %s returned %+v below threshold", mode, c)
			}
		}
	}
}

func TestRankGroupedUsesMaxPerIdentity(t *testing.T) {
	scored := scoredOf("7", 0.3, "7", 0.9, "7", 0.5, "8", 0.8)
	cands := RankGrouped(scored, RankOptions{TopK: 5, Threshold: 0.6})
	if len(cands) != 2 {
		t.Fatalf("expected 2 grouped candidates, got %d", len(cands))
	}
	if cands[0].Identity != "7" || math.Abs(cands[0].Similarity-0.9) > 1e-9 {
		t.Errorf("expected identity 7 at 0.9, got %+v", cands[0])
	}
	if cands[1].Identity != "8" {
		t.Errorf("expected identity 8 second, got %+v", cands[1])
	}
}

func TestRankGroupedTieBreak(t *testing.T) {
	scored := scoredOf("10", 0.7, "9", 0.7, "bob", 0.7, "alice", 0.7)
	got := identities(RankGrouped(scored, RankOptions{TopK: 4}))
	expected := []database.Identity{"9", "10", "alice", "bob"}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("RankGrouped()[%d] = %s, want %s", i, got[i], expected[i])
		}
	}
}

func TestGroupByIdentityMaxTieBreakIsDeterministic(t *testing.T) {
	scored := scoredOf("+42", 0.9, "042", 0.9, "42", 0.9, "-0", 0.9, "0", 0.9)
	expected := []database.Identity{"0", "42", "+42", "-0", "042"}

	// Map iteration order differs between runs; the result must not.
	for range 200 {
		got := GroupByIdentityMax(scored)
		if len(got) != len(expected) {
			t.Fatalf("expected %d identities, got %d", len(expected), len(got))
		}
		for i := range expected {
			if got[i].Identity != expected[i] {
				t.Fatalf("GroupByIdentityMax()[%d] = %s, want %s", i, got[i].Identity, expected[i])
			}
		}
	}
}

func TestRank(t *testing.T) {
	records := []database.EmbeddingRecord{
		{Identity: "1", Embedding: []float32{1, 0}},
		{Identity: "1", Embedding: []float32{0.9, 0.1}},
		{Identity: "2", Embedding: []float32{0, 1}},
	}

	flat := Rank([]float32{1, 0}, records, RankOptions{Mode: ModeFlat, TopK: 3})
	if len(flat) != 3 {
		t.Errorf("flat rank: expected 3 candidates, got %d", len(flat))
	}

	grouped := Rank([]float32{1, 0}, records, RankOptions{Mode: ModeGrouped, TopK: 3})
	if len(grouped) != 2 {
		t.Errorf("grouped rank: expected 2 candidates, got %d", len(grouped))
	}

	if empty := Rank([]float32{1, 0}, nil, RankOptions{TopK: 3}); len(empty) != 0 {
		t.Errorf("expected no candidates for empty store, got %d", len(empty))
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		mode Mode
		ok   bool
	}{
		{"", ModeFlat, true},
		{"flat", ModeFlat, true},
		{"grouped", ModeGrouped, true},
		{"GROUPED", "", false},
		{"hungarian", "", false},
	}
	for _, tt := range tests {
		mode, ok := ParseMode(tt.in)
		if mode != tt.mode || ok != tt.ok {
			t.Errorf("ParseMode(%q) = (%q, %v), want (%q, %v)", tt.in, mode, ok, tt.mode, tt.ok)
		}
	}
}

func TestCandidateMarshalRoundsSimilarity(t *testing.T) {
	data, err := json.Marshal(Candidate{Identity: "42", Similarity: 0.123456789, IsMatch: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	expected := `{"user_id":42,"similarity":0.1235,"match":true}`
	if string(data) != expected {
		t.Errorf("got %s, want %s", data, expected)
	}
}
