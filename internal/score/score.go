// Package score reduces a quality-bucket distribution to its mean rating.
package score

import (
	"errors"
	"fmt"
	"math"
)

// Buckets is the number of quality ratings (1 through 10) a distribution covers.
const Buckets = 10

var (
	// ErrZeroSum is returned when a distribution cannot be normalized because its weights sum to zero.
	ErrZeroSum = errors.New("division by zero: distribution sums to zero")
	// ErrBucketCount is returned when a distribution does not have exactly Buckets entries.
	ErrBucketCount = errors.New("unexpected number of quality buckets")
	// ErrNegativeWeight is returned when a distribution holds a weight below zero.
	ErrNegativeWeight = errors.New("negative weight in distribution")
	// ErrNonFinite is returned when a distribution holds a NaN or infinite weight.
	ErrNonFinite = errors.New("non-finite weight in distribution")
)

// Normalize divides every weight by the sum of all weights.
func Normalize(dist []float64) ([]float64, error) {
	var sum float64
	for i, w := range dist {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("bucket %d: %w", i+1, ErrNonFinite)
		}
		if w < 0 {
			return nil, fmt.Errorf("bucket %d (%g): %w", i+1, w, ErrNegativeWeight)
		}
		sum += w
	}
	if sum == 0 {
		return nil, ErrZeroSum
	}

	out := make([]float64, len(dist))
	for i, w := range dist {
		out[i] = w / sum
	}
	return out, nil
}

// MeanScore returns the expected rating of the normalized distribution,
// where position i carries rating i+1. The result is not rounded.
func MeanScore(dist []float64) (float64, error) {
	if len(dist) != Buckets {
		return 0, fmt.Errorf("got %d, want %d: %w", len(dist), Buckets, ErrBucketCount)
	}

	norm, err := Normalize(dist)
	if err != nil {
		return 0, err
	}

	var mean float64
	for i, p := range norm {
		mean += p * float64(i+1)
	}
	return mean, nil
}

// Round rounds v to the given number of decimal places, breaking ties to
// the even neighbour.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.RoundToEven(v*pow) / pow
}

// FromFloat32 widens model output to float64.
func FromFloat32(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
