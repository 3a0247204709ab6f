package faceid

import (
	"encoding/json"
	"fmt"

	"github.com/kozaktomas/faceid/internal/database"
	"github.com/kozaktomas/faceid/internal/detector"
	"github.com/kozaktomas/faceid/internal/facematch"
)

// Reasons reported with OK=false results.
const (
	ReasonNoFaceDetected        = "no_face_detected"
	ReasonNoReferenceEmbeddings = "no_reference_embeddings"
	ReasonLowSimilarity         = "low_similarity"
	ReasonMultipleOrZeroFaces   = "multiple_or_zero_faces"
)

func multipleOrZeroFaces(n int) string {
	return fmt.Sprintf("%s: %d faces detected", ReasonMultipleOrZeroFaces, n)
}

// Score is a similarity reported to callers, serialized rounded to 4 decimals.
type Score float64

func (s Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(facematch.Round(float64(s)))
}

func scorePtr(v float64) *Score {
	s := Score(v)
	return &s
}

func identityPtr(id database.Identity) *database.Identity {
	return &id
}

// EnrollResult is the outcome of a single enrollment.
type EnrollResult struct {
	OK      bool                     `json:"ok"`
	Reason  string                   `json:"reason,omitempty"`
	Dim     int                      `json:"dim,omitempty"`
	Storage *database.StorageOutcome `json:"storage,omitempty"`
}

// BatchEnrollResult counts enrolled and skipped images.
type BatchEnrollResult struct {
	OK       bool                      `json:"ok"`
	Enrolled int                       `json:"enrolled"`
	Skipped  int                       `json:"skipped"`
	Storage  []database.StorageOutcome `json:"storage"`
}

// IdentifyResult is the outcome of identifying the largest face of an image.
type IdentifyResult struct {
	OK                   bool                     `json:"ok"`
	Reason               string                   `json:"reason,omitempty"`
	Box                  []float64                `json:"box,omitempty"`
	Probability          *float64                 `json:"prob,omitempty"`
	Results              []facematch.Candidate    `json:"results"`
	Threshold            float64                  `json:"threshold"`
	PrimaryIdentity      *database.Identity       `json:"primary_user_id"`
	PrimarySimilarity    *Score                   `json:"primary_similarity"`
	AutoEnrolledIdentity *database.Identity       `json:"auto_enrolled_user_id"`
	Storage              *database.StorageOutcome `json:"storage,omitempty"`
}

// ResolvedFace is one face of a multi-face identification.
type ResolvedFace struct {
	Box                  []float64                `json:"box"`
	Probability          *float64                 `json:"prob"`
	Results              []facematch.Candidate    `json:"results"`
	PrimaryIdentity      *database.Identity       `json:"primary_user_id"`
	PrimarySimilarity    *Score                   `json:"primary_similarity"`
	AutoEnrolledIdentity *database.Identity       `json:"auto_enrolled_user_id"`
	Storage              *database.StorageOutcome `json:"storage,omitempty"`

	embedding []float32
}

// MultiIdentifyResult holds one ResolvedFace per detected face, in detection order.
type MultiIdentifyResult struct {
	OK                  bool           `json:"ok"`
	Reason              string         `json:"reason,omitempty"`
	Faces               []ResolvedFace `json:"faces"`
	Threshold           float64        `json:"threshold"`
	ExclusiveAssignment bool           `json:"exclusive_assignment"`
}

// AutoEnrollResult is the outcome of confidence-gated enrollment.
type AutoEnrollResult struct {
	OK               bool                     `json:"ok"`
	Reason           string                   `json:"reason,omitempty"`
	Count            *int                     `json:"count,omitempty"`
	EnrolledIdentity *database.Identity       `json:"enrolled_user_id,omitempty"`
	Similarity       *Score                   `json:"similarity,omitempty"`
	Storage          *database.StorageOutcome `json:"storage,omitempty"`
}

// DetectResult lists detected faces without embeddings.
type DetectResult struct {
	OK    bool            `json:"ok"`
	Count int             `json:"count"`
	Faces []detector.Face `json:"faces"`
}

// Stats summarizes the store contents.
type Stats struct {
	Records    int   `json:"records"`
	Identities int   `json:"identities"`
	Dims       []int `json:"dims"`
}
