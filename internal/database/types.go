package database

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Identity is the key an embedding is enrolled under. It may be an integer
// user ID or an arbitrary string; both are carried as their canonical text.
type Identity string

// NewIdentity normalizes raw input into an Identity (NFC, surrounding space trimmed).
func NewIdentity(raw string) Identity {
	return Identity(norm.NFC.String(strings.TrimSpace(raw)))
}

// IsZero reports whether the identity is empty.
func (id Identity) IsZero() bool {
	return id == ""
}

func (id Identity) String() string {
	return string(id)
}

// numeric returns the integer value of the identity when its text is the
// canonical decimal form of that integer. "007", "+42" and "-0" are strings.
func (id Identity) numeric() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != string(id) {
		return 0, false
	}
	return n, true
}

// Compare orders integer identities numerically and before any string
// identity; string identities compare lexicographically. It returns 0 only
// for identical identities.
func (id Identity) Compare(other Identity) int {
	a, aok := id.numeric()
	b, bok := other.numeric()
	switch {
	case aok && bok:
		return cmp.Compare(a, b)
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(string(id), string(other))
}

// MarshalJSON writes integer identities as JSON numbers so that files and
// payloads keyed by numeric user IDs keep their original shape. Anything
// that would not read back as the same text stays a JSON string.
func (id Identity) MarshalJSON() ([]byte, error) {
	if n, ok := id.numeric(); ok {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *Identity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding identity: %w", err)
		}
		*id = NewIdentity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding identity: %w", err)
	}
	*id = Identity(n.String())
	return nil
}

// EmbeddingRecord is one persisted (identity, vector) pair. Records are never
// mutated once written.
type EmbeddingRecord struct {
	ID        string    `json:"id,omitempty"`
	Identity  Identity  `json:"user_id"`
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}

// Dim returns the dimensionality of the record's vector.
func (r *EmbeddingRecord) Dim() int {
	return len(r.Embedding)
}

// Tier names where a write landed.
type Tier string

// Storage tiers.
const (
	TierPrimary Tier = "primary"
	TierLocal   Tier = "local"
)

// StorageOutcome reports which tier accepted an append and, if the primary
// tier was tried and refused, the error it returned.
type StorageOutcome struct {
	RecordID     string `json:"record_id"`
	Tier         Tier   `json:"stored"`
	PrimaryError string `json:"primary_error,omitempty"`
}

// ErrStoreUnavailable is returned by Store.Append when no tier accepted the write.
var ErrStoreUnavailable = errors.New("embedding store unavailable: no tier accepted the write")
