// Package detector talks to the external face detection and embedding
// service and adapts its output to the engine's face type.
package detector

import (
	"context"
	"errors"
)

// Face is one detected face. Box is [x1, y1, x2, y2] in the coordinates of
// the submitted image. Probability is nil when the detector did not report one.
type Face struct {
	Box         []float64 `json:"box"`
	Probability *float64  `json:"prob"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Prob returns the detection probability, treating a missing value as 0.
func (f *Face) Prob() float64 {
	if f.Probability == nil {
		return 0
	}
	return *f.Probability
}

// Detector finds faces in an encoded image and embeds each of them.
type Detector interface {
	DetectFaces(ctx context.Context, image []byte) ([]Face, error)
}

var (
	// ErrUnsupportedImage means the image could not be decoded.
	ErrUnsupportedImage = errors.New("unsupported or corrupted image format")
	// ErrDetectorUnavailable means the detection service failed or could not be reached.
	ErrDetectorUnavailable = errors.New("face detector unavailable")
)

// FilterByProbability keeps the faces whose probability is at least minProb.
// A minProb of 0 or less keeps every face.
func FilterByProbability(faces []Face, minProb float64) []Face {
	if minProb <= 0 {
		return faces
	}
	kept := make([]Face, 0, len(faces))
	for _, f := range faces {
		if f.Prob() >= minProb {
			kept = append(kept, f)
		}
	}
	return kept
}
