package scoring

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudiguru/nudiguru-api/internal/feature"
)

func randomMatrix(rng *rand.Rand, frames, coeffs int) feature.Matrix {
	m := make(feature.Matrix, frames)
	for i := range m {
		m[i] = make([]float64, coeffs)
		for j := range m[i] {
			m[i][j] = rng.NormFloat64()
		}
	}
	return m
}

func randomVector(rng *rand.Rand, dims int) feature.Vector {
	v := make(feature.Vector, dims)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	return v
}

func TestDTW_Identity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	u := randomMatrix(rng, 12, 5)
	assert.InDelta(t, 0, DTW(u, u), 1e-12)
}

func TestDTW_Symmetric(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 10 {
		u := randomMatrix(rng, 1+rng.IntN(15), 4)
		r := randomMatrix(rng, 1+rng.IntN(15), 4)
		assert.InDelta(t, DTW(u, r), DTW(r, u), 1e-9)
		assert.GreaterOrEqual(t, DTW(u, r), 0.0)
	}
}

func TestDTW_KnownValue(t *testing.T) {
	u := feature.Matrix{{0}, {1}, {2}}
	r := feature.Matrix{{0}, {2}}
	// best path: (0,0)=0, (1,0)=1 or (1,1)=1, (2,1)=0
	assert.InDelta(t, 1, DTW(u, r), 1e-12)
}

func TestDTW_TimeStretchInvariant(t *testing.T) {
	u := feature.Matrix{{1, 0}, {0, 1}}
	r := feature.Matrix{{1, 0}, {1, 0}, {0, 1}, {0, 1}}
	assert.InDelta(t, 0, DTW(u, r), 1e-12)
}

func TestDTW_Empty(t *testing.T) {
	assert.Equal(t, 0.0, DTW(nil, nil))
	assert.True(t, math.IsInf(DTW(nil, feature.Matrix{{1}}), 1))
}

func TestCosine(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for range 10 {
		u := randomVector(rng, 16)
		r := randomVector(rng, 16)
		c := Cosine(u, r)
		assert.GreaterOrEqual(t, c, -1.0)
		assert.LessOrEqual(t, c, 1.0)
		assert.InDelta(t, c, Cosine(r, u), 1e-12)
		assert.InDelta(t, 1, Cosine(u, u), 1e-6)
	}
	assert.Equal(t, 0.0, Cosine(feature.Vector{0, 0}, feature.Vector{1, 0}))
}

func TestSequenceScorer_Self(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	u := randomMatrix(rng, 20, 40)

	res, err := NewSequenceScorer(0).Score(u, []feature.Matrix{u})
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Score, 1e-9)
	assert.InDelta(t, 1, res.Similarity, 1e-9)
	assert.True(t, res.Correct)
}

func TestSequenceScorer_BestReferenceWins(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	s := NewSequenceScorer(DefaultSequenceThreshold)
	u := randomMatrix(rng, 15, 8)
	r1 := randomMatrix(rng, 15, 8)
	r2 := randomMatrix(rng, 10, 8)

	one, err := s.Score(u, []feature.Matrix{r1})
	require.NoError(t, err)
	both, err := s.Score(u, []feature.Matrix{r1, r2})
	require.NoError(t, err)

	assert.LessOrEqual(t, both.Score, one.Score)
	assert.GreaterOrEqual(t, both.Similarity, one.Similarity)
	assert.GreaterOrEqual(t, both.Similarity, 0.0)
	assert.LessOrEqual(t, both.Similarity, 1.0)
}

func TestSequenceScorer_ThresholdBoundary(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	u := randomMatrix(rng, 10, 4)
	r := randomMatrix(rng, 10, 4)

	d := DTW(feature.NormalizeMatrix(u), feature.NormalizeMatrix(r))
	require.Greater(t, d, 0.0)

	atThreshold, err := NewSequenceScorer(d).Score(u, []feature.Matrix{r})
	require.NoError(t, err)
	assert.False(t, atThreshold.Correct)
	assert.InDelta(t, 0, atThreshold.Similarity, 1e-9)

	loose, err := NewSequenceScorer(2*d).Score(u, []feature.Matrix{r})
	require.NoError(t, err)
	assert.True(t, loose.Correct)
	assert.InDelta(t, 0.5, loose.Similarity, 1e-9)
}

func TestSequenceScorer_NoReferences(t *testing.T) {
	res, err := NewSequenceScorer(700).Score(feature.Matrix{{1}}, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Score: 700}, res)
}

func TestSequenceScorer_ShapeMismatch(t *testing.T) {
	_, err := NewSequenceScorer(700).Score(feature.Matrix{{1, 2}}, []feature.Matrix{{{1, 2, 3}}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestVectorScorer(t *testing.T) {
	s := NewVectorScorer(0)
	assert.Equal(t, DefaultVectorThreshold, s.Threshold)

	res, err := s.Score(feature.Vector{1, 0}, []feature.Vector{{0, 1}, {2, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 1, res.Score, 1e-6)
	assert.InDelta(t, 1, res.Similarity, 1e-6)
	assert.True(t, res.Correct)

	res, err = s.Score(feature.Vector{1, 0}, []feature.Vector{{-1, 0}})
	require.NoError(t, err)
	assert.InDelta(t, -1, res.Score, 1e-6)
	assert.Equal(t, 0.0, res.Similarity)
	assert.False(t, res.Correct)
}

func TestVectorScorer_NoReferences(t *testing.T) {
	res, err := NewVectorScorer(0.7).Score(feature.Vector{1}, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestVectorScorer_ShapeMismatch(t *testing.T) {
	_, err := NewVectorScorer(0.7).Score(feature.Vector{1, 2}, []feature.Vector{{1}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
