// Package vector provides pure math over embedding vectors.
//
// All functions are side-effect free. Dimension violations are fatal input
// errors, never retryable.
package vector

import (
	"errors"
	"fmt"
	"math"
)

// DefaultDimensions is the embedding width of the default provider model.
// It is a default, not a protocol constant; callers with a different
// provider pass their own expected dimension to ValidateDimensions.
const DefaultDimensions = 1536

// Sentinel errors for vector math failures. Wrapped errors carry the
// offending lengths; match with errors.Is.
var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrZeroVector        = errors.New("cannot normalize zero vector")
	ErrInvalidDimensions = errors.New("invalid vector dimensions")
)

// DotProduct returns the dot product of a and b.
func DotProduct(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot, nil
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine similarity of a and b.
//
// The result is mathematically in [-1,1]. Embeddings from one provider
// cluster in [0,1] in practice, but no clamping is applied here and callers
// must not assume a hard floor of 0.
func CosineSimilarity(a, b []float64) (float64, error) {
	dot, err := DotProduct(a, b)
	if err != nil {
		return 0, err
	}
	magA := Magnitude(a)
	magB := Magnitude(b)
	if magA == 0 || magB == 0 {
		return 0, fmt.Errorf("%w: cosine similarity undefined", ErrZeroVector)
	}
	return dot / (magA * magB), nil
}

// Normalize returns v scaled to unit length. A vector that is already unit
// length is returned unchanged (same slice, not a copy).
func Normalize(v []float64) ([]float64, error) {
	mag := Magnitude(v)
	if mag == 0 {
		return nil, ErrZeroVector
	}
	if mag == 1 {
		return v, nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / mag
	}
	return out, nil
}

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// ValidateDimensions checks that v has exactly expected components.
// When expected <= 0, DefaultDimensions is used.
func ValidateDimensions(v []float64, expected int) error {
	if expected <= 0 {
		expected = DefaultDimensions
	}
	if len(v) != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimensions, expected, len(v))
	}
	return nil
}
