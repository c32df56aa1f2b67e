// Package scoring compares a user's syllable features against reference
// features and turns the comparison into a similarity in [0, 1].
package scoring

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/nudiguru/nudiguru-api/internal/feature"
)

// Default decision thresholds.
const (
	DefaultSequenceThreshold = 700.0
	DefaultVectorThreshold   = 0.70
)

// ErrShapeMismatch is returned when user and reference features do not share
// a coefficient count or dimension.
var ErrShapeMismatch = errors.New("feature shape mismatch")

// Result is the outcome of scoring one syllable.
type Result struct {
	// Score is the raw comparison value: the best DTW distance for sequence
	// scoring, the best cosine for vector scoring.
	Score float64
	// Similarity is the normalized score in [0, 1].
	Similarity float64
	// Correct reports whether the threshold was met.
	Correct bool
}

// Scorer scores one user feature against a syllable's references.
type Scorer[T any] interface {
	Score(user T, refs []T) (Result, error)
}

// DTW returns the dynamic time warping distance between u and r using a
// Euclidean local cost and no warping window. Every frame of both matrices
// must have the same width. Two empty inputs are at distance 0; one empty
// input is infinitely far from anything non-empty.
func DTW(u, r feature.Matrix) float64 {
	n, m := len(u), len(r)
	if n == 0 && m == 0 {
		return 0
	}
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	inf := math.Inf(1)
	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := range prev {
		prev[j] = inf
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		curr[0] = inf
		for j := 1; j <= m; j++ {
			cost := floats.Distance(u[i-1], r[j-1], 2)
			curr[j] = cost + math.Min(prev[j], math.Min(curr[j-1], prev[j-1]))
		}
		prev, curr = curr, prev
	}

	return prev[m]
}

// Cosine returns (u·r) / (‖u‖‖r‖ + 1e-8). u and r must have equal length.
func Cosine(u, r feature.Vector) float64 {
	return floats.Dot(u, r) / (floats.Norm(u, 2)*floats.Norm(r, 2) + 1e-8)
}

// SequenceScorer scores frame sequences by minimum DTW distance over the
// references. Both sides are normalized before alignment.
type SequenceScorer struct {
	Threshold float64
}

// NewSequenceScorer returns a SequenceScorer, falling back to the default
// threshold when threshold is not positive.
func NewSequenceScorer(threshold float64) *SequenceScorer {
	if threshold <= 0 {
		threshold = DefaultSequenceThreshold
	}
	return &SequenceScorer{Threshold: threshold}
}

// Score implements Scorer. With no references the syllable is incorrect with
// similarity 0 and the threshold is reported as the distance.
func (s *SequenceScorer) Score(user feature.Matrix, refs []feature.Matrix) (Result, error) {
	if len(refs) == 0 {
		return Result{Score: s.Threshold}, nil
	}

	_, width := user.Shape()
	for i, ref := range refs {
		if _, w := ref.Shape(); w != width && len(ref) > 0 && len(user) > 0 {
			return Result{}, fmt.Errorf("%w: reference %d has %d coefficients, user has %d", ErrShapeMismatch, i, w, width)
		}
	}

	u := feature.NormalizeMatrix(user)
	best := math.Inf(1)
	for _, ref := range refs {
		if d := DTW(u, feature.NormalizeMatrix(ref)); d < best {
			best = d
		}
	}

	if math.IsInf(best, 1) {
		return Result{Score: s.Threshold}, nil
	}

	return Result{
		Score:      best,
		Similarity: 1 - math.Min(best/s.Threshold, 1),
		Correct:    best < s.Threshold,
	}, nil
}

// VectorScorer scores embeddings by maximum cosine similarity over the
// references.
type VectorScorer struct {
	Threshold float64
}

// NewVectorScorer returns a VectorScorer, falling back to the default
// threshold when threshold is not positive.
func NewVectorScorer(threshold float64) *VectorScorer {
	if threshold <= 0 {
		threshold = DefaultVectorThreshold
	}
	return &VectorScorer{Threshold: threshold}
}

// Score implements Scorer. With no references the result is 0 and incorrect.
func (s *VectorScorer) Score(user feature.Vector, refs []feature.Vector) (Result, error) {
	if len(refs) == 0 {
		return Result{}, nil
	}

	for i, ref := range refs {
		if len(ref) != len(user) {
			return Result{}, fmt.Errorf("%w: reference %d has %d dimensions, user has %d", ErrShapeMismatch, i, len(ref), len(user))
		}
	}

	u := feature.NormalizeVector(user)
	best := math.Inf(-1)
	for _, ref := range refs {
		if c := Cosine(u, feature.NormalizeVector(ref)); c > best {
			best = c
		}
	}

	return Result{
		Score:      best,
		Similarity: math.Max(0, math.Min(best, 1)),
		Correct:    best >= s.Threshold,
	}, nil
}

// Compile-time interface assertions.
var (
	_ Scorer[feature.Matrix] = (*SequenceScorer)(nil)
	_ Scorer[feature.Vector] = (*VectorScorer)(nil)
)
