// Package scoring combines semantic and keyword evidence into one ranked score.
package scoring

import (
	"errors"
	"fmt"
	"math"
)

// weightTolerance is the numeric slack allowed when checking that weights sum to 1.
const weightTolerance = 1e-6

// Sentinel errors for weight validation.
var (
	ErrNegativeWeight = errors.New("weight must not be negative")
	ErrWeightSum      = errors.New("weights must sum to 1.0")
)

// Weights are the relative contributions of the semantic and keyword lanes.
// Both must be in [0,1] and sum to 1.0 within tolerance.
type Weights struct {
	Semantic float64 `json:"semantic" yaml:"semantic"`
	Keyword  float64 `json:"keyword" yaml:"keyword"`
}

// DefaultWeights returns the standard 70/30 semantic/keyword split.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.7, Keyword: 0.3}
}

// ValidateWeights checks that w is a legal weight pair.
func ValidateWeights(w Weights) error {
	if w.Semantic < 0 || w.Keyword < 0 {
		return fmt.Errorf("%w: semantic=%g keyword=%g", ErrNegativeWeight, w.Semantic, w.Keyword)
	}
	if math.Abs(w.Semantic+w.Keyword-1.0) > weightTolerance {
		return fmt.Errorf("%w: semantic=%g keyword=%g sum=%g", ErrWeightSum, w.Semantic, w.Keyword, w.Semantic+w.Keyword)
	}
	return nil
}

// ScoredMatch is the outcome of combining the two retrieval lanes for one match.
// Nil component scores mean the lane did not find the match.
type ScoredMatch struct {
	FinalScore    float64  `json:"final_score"`
	SemanticScore *float64 `json:"semantic_score,omitempty"`
	KeywordScore  *float64 `json:"keyword_score,omitempty"`
	Weights       Weights  `json:"weights"`
}

// CalculateHybridScore combines the lane scores under weights. A nil weights
// pointer selects DefaultWeights.
//
// When only one lane found the match, its score is used verbatim rather than
// weighted down; a match should not be penalized for being found by a single
// lane. When neither lane found it, the final score is zero.
func CalculateHybridScore(semantic, keyword *float64, weights *Weights) (ScoredMatch, error) {
	w := DefaultWeights()
	if weights != nil {
		w = *weights
	}
	if err := ValidateWeights(w); err != nil {
		return ScoredMatch{}, err
	}

	match := ScoredMatch{SemanticScore: semantic, KeywordScore: keyword, Weights: w}
	switch {
	case semantic != nil && keyword != nil:
		match.FinalScore = w.Semantic**semantic + w.Keyword**keyword
	case semantic != nil:
		match.FinalScore = *semantic
	case keyword != nil:
		match.FinalScore = *keyword
	}
	return match, nil
}
