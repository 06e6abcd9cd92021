package vector

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-5

func TestDotProduct(t *testing.T) {
	got, err := DotProduct([]float64{1, 2, 3}, []float64{4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	if got != 32 {
		t.Errorf("DotProduct = %f, want 32", got)
	}
}

func TestDotProduct_DimensionMismatch(t *testing.T) {
	_, err := DotProduct([]float64{1, 2}, []float64{1, 2, 3})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestMagnitude(t *testing.T) {
	if got := Magnitude([]float64{3, 4}); got != 5 {
		t.Errorf("Magnitude = %f, want 5", got)
	}
	if got := Magnitude(nil); got != 0 {
		t.Errorf("Magnitude(nil) = %f, want 0", got)
	}
}

func TestCosineSimilarity_Identity(t *testing.T) {
	v := []float64{0.2, 0.5, 0.1, 0.8}
	got, err := CosineSimilarity(v, v)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1.0) > tolerance {
		t.Errorf("cosine(v, v) = %f, want ~1.0", got)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	got, err := CosineSimilarity([]float64{1, 0, 0}, []float64{0, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("cosine of orthogonal vectors = %f, want 0", got)
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	a := make([]float64, 1536)
	b := make([]float64, 512)
	a[0], b[0] = 1, 1
	_, err := CosineSimilarity(a, b)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	_, err := CosineSimilarity([]float64{0, 0}, []float64{1, 0})
	if !errors.Is(err, ErrZeroVector) {
		t.Errorf("expected ErrZeroVector, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize([]float64{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.6, 0.8}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tolerance {
			t.Errorf("Normalize[%d] = %f, want %f", i, got[i], want[i])
		}
	}
	if m := Magnitude(got); math.Abs(m-1.0) > tolerance {
		t.Errorf("normalized magnitude = %f, want 1.0", m)
	}
}

func TestNormalize_UnitVectorIdentity(t *testing.T) {
	v := []float64{1, 0, 0}
	got, err := Normalize(v)
	if err != nil {
		t.Fatal(err)
	}
	if &got[0] != &v[0] {
		t.Error("unit vector should be returned unchanged, not copied")
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	_, err := Normalize([]float64{0, 0, 0})
	if !errors.Is(err, ErrZeroVector) {
		t.Errorf("expected ErrZeroVector, got %v", err)
	}
}

func TestEuclideanDistance(t *testing.T) {
	got, err := EuclideanDistance([]float64{0, 0, 0}, []float64{3, 4, 0})
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("EuclideanDistance = %f, want 5", got)
	}
}

func TestEuclideanDistance_DimensionMismatch(t *testing.T) {
	_, err := EuclideanDistance([]float64{1}, []float64{1, 2})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestValidateDimensions(t *testing.T) {
	if err := ValidateDimensions(make([]float64, 1536), 0); err != nil {
		t.Errorf("1536-dim vector should pass default check: %v", err)
	}
	if err := ValidateDimensions(make([]float64, 384), 384); err != nil {
		t.Errorf("matching explicit dimension should pass: %v", err)
	}
	err := ValidateDimensions(make([]float64, 512), 1536)
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}
