package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func TestPlaceholders(t *testing.T) {
	frames, coeffs := PlaceholderMatrix().Shape()
	assert.Equal(t, PlaceholderFrames, frames)
	assert.Equal(t, PlaceholderCoefficients, coeffs)
	assert.Len(t, PlaceholderVector(), PlaceholderDimensions)
}

func TestNormalizeMatrix(t *testing.T) {
	m := Matrix{{1, 2, 3}, {4, 5, 6}}
	out := NormalizeMatrix(m)

	var flat []float64
	for _, row := range out {
		flat = append(flat, row...)
	}
	mean, std := stat.PopMeanStdDev(flat, nil)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, std, 1e-6)

	// input untouched
	assert.Equal(t, 1.0, m[0][0])
}

func TestNormalizeMatrix_Constant(t *testing.T) {
	out := NormalizeMatrix(Matrix{{3, 3}, {3, 3}})
	for _, row := range out {
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
			assert.InDelta(t, 0, v, 1e-9)
		}
	}
}

func TestNormalizeMatrix_Empty(t *testing.T) {
	assert.Empty(t, NormalizeMatrix(nil))
}

func TestNormalizeVector(t *testing.T) {
	v := Vector{3, 4}
	out := NormalizeVector(v)
	assert.InDelta(t, 1, floats.Norm(out, 2), 1e-6)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.Equal(t, 3.0, v[0])

	zero := NormalizeVector(Vector{0, 0})
	assert.Equal(t, Vector{0, 0}, zero)
}
