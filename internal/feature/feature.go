// Package feature defines the numeric representations that scoring operates
// on, their normalization rules, and the client for the external feature
// extraction service.
package feature

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// epsilon guards divisions during normalization.
const epsilon = 1e-8

// Matrix is a frame sequence of shape (frames x coefficients), as produced by
// a sequence extractor such as a log-mel spectrogram.
type Matrix [][]float64

// Vector is a fixed-length embedding as produced by an embedding extractor.
type Vector []float64

// Placeholder shapes returned by extractors for clips that are too short or
// silent to yield real features.
const (
	PlaceholderFrames       = 10
	PlaceholderCoefficients = 40
	PlaceholderDimensions   = 768
)

// PlaceholderMatrix returns the designated all-zero matrix for degenerate clips.
func PlaceholderMatrix() Matrix {
	m := make(Matrix, PlaceholderFrames)
	for i := range m {
		m[i] = make([]float64, PlaceholderCoefficients)
	}
	return m
}

// PlaceholderVector returns the designated all-zero embedding for degenerate clips.
func PlaceholderVector() Vector {
	return make(Vector, PlaceholderDimensions)
}

// Extractor maps an audio clip on disk to a feature representation.
// Implementations must be deterministic for identical input and must return
// the placeholder representation, not an error, for clips that are too short.
type Extractor[T any] interface {
	Extract(ctx context.Context, clipPath string) (T, error)
}

// Shape returns the (frames, coefficients) shape of the matrix.
func (m Matrix) Shape() (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// NormalizeMatrix returns a copy of m scaled to zero mean and unit variance,
// with statistics taken over every element of the matrix.
func NormalizeMatrix(m Matrix) Matrix {
	flat := make([]float64, 0, len(m)*cols(m))
	for _, row := range m {
		flat = append(flat, row...)
	}
	if len(flat) == 0 {
		return Matrix{}
	}

	mean, std := stat.PopMeanStdDev(flat, nil)
	scale := 1 / (std + epsilon)

	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
		floats.AddConst(-mean, out[i])
		floats.Scale(scale, out[i])
	}
	return out
}

// NormalizeVector returns a copy of v scaled to unit L2 norm.
// The zero vector stays zero.
func NormalizeVector(v Vector) Vector {
	out := make(Vector, len(v))
	copy(out, v)
	norm := floats.Norm(out, 2)
	floats.Scale(1/(norm+epsilon), out)
	return out
}

func cols(m Matrix) int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}
