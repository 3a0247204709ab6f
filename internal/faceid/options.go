package faceid

import (
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/faceid/internal/facematch"
)

// ErrInvalidOptions is returned when call parameters are out of range.
var ErrInvalidOptions = errors.New("invalid options")

// IdentifyOptions controls single- and multi-face identification.
type IdentifyOptions struct {
	TopK          int
	Threshold     float64
	Mode          facematch.Mode
	FilterMatches bool

	// AutoEnroll appends the query embedding under the primary identity when
	// its similarity reaches AutoEnrollMinSimilarity.
	AutoEnroll              bool
	AutoEnrollMinSimilarity float64
}

// MultiIdentifyOptions adds the multi-face parameters.
type MultiIdentifyOptions struct {
	IdentifyOptions
	MinProbability      float64
	ExclusiveAssignment bool
}

// AutoEnrollOptions controls confidence-gated enrollment.
type AutoEnrollOptions struct {
	MinSimilarity  float64
	MinProbability float64
}

// IdentifyOptions returns options populated from the service defaults.
func (s *Service) IdentifyOptions() IdentifyOptions {
	return IdentifyOptions{
		TopK:                    s.defaults.TopK,
		Threshold:               s.defaults.Threshold,
		Mode:                    facematch.ModeFlat,
		AutoEnrollMinSimilarity: s.defaults.AutoEnrollMinSimilarity,
	}
}

// MultiIdentifyOptions returns options populated from the service defaults.
func (s *Service) MultiIdentifyOptions() MultiIdentifyOptions {
	return MultiIdentifyOptions{
		IdentifyOptions: s.IdentifyOptions(),
		MinProbability:  s.defaults.MinProbability,
	}
}

// AutoEnrollOptions returns options populated from the service defaults.
func (s *Service) AutoEnrollOptions() AutoEnrollOptions {
	return AutoEnrollOptions{
		MinSimilarity:  s.defaults.ConfidentMinSimilarity,
		MinProbability: s.defaults.MinProbability,
	}
}

func (o *IdentifyOptions) rank() facematch.RankOptions {
	return facematch.RankOptions{
		Mode:          o.Mode,
		TopK:          o.TopK,
		Threshold:     o.Threshold,
		FilterMatches: o.FilterMatches,
	}
}

// Validate checks parameter ranges.
func (o *IdentifyOptions) Validate() error {
	if o.TopK < 0 {
		return fmt.Errorf("%w: top_k must not be negative, got %d", ErrInvalidOptions, o.TopK)
	}
	if err := checkSimilarity("threshold", o.Threshold); err != nil {
		return err
	}
	if _, ok := facematch.ParseMode(string(o.Mode)); !ok {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidOptions, o.Mode)
	}
	if o.AutoEnroll {
		if err := checkSimilarity("auto_enroll_min_similarity", o.AutoEnrollMinSimilarity); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks parameter ranges.
func (o *MultiIdentifyOptions) Validate() error {
	if err := o.IdentifyOptions.Validate(); err != nil {
		return err
	}
	return checkProbability(o.MinProbability)
}

// Validate checks parameter ranges.
func (o *AutoEnrollOptions) Validate() error {
	if err := checkSimilarity("min_similarity", o.MinSimilarity); err != nil {
		return err
	}
	return checkProbability(o.MinProbability)
}

func checkSimilarity(name string, v float64) error {
	if math.IsNaN(v) || v < -1 || v > 1 {
		return fmt.Errorf("%w: %s must be within [-1, 1], got %v", ErrInvalidOptions, name, v)
	}
	return nil
}

func checkProbability(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: min_prob must be within [0, 1], got %v", ErrInvalidOptions, v)
	}
	return nil
}
