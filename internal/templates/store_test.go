package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudiguru/nudiguru-api/internal/feature"
)

func testBank() Bank[feature.Vector] {
	return Bank[feature.Vector]{
		"w01": {
			"ಅ":  {{1, 0}, {0, 1}},
			"ಮ್ಮ": {{1, 1}},
		},
		"w02": {
			"ಅ": {},
		},
	}
}

func TestStore_References(t *testing.T) {
	s := NewStore("vector", testBank())

	refs, err := s.References("w01", "ಅ")
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Equal(t, feature.Vector{0, 1}, refs[1])
}

func TestStore_References_MissingSyllable(t *testing.T) {
	s := NewStore("vector", testBank())

	refs, err := s.References("w01", "ನ")
	require.NoError(t, err)
	assert.Empty(t, refs)

	refs, err = s.References("w02", "ಅ")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestStore_References_MissingLesson(t *testing.T) {
	s := NewStore("vector", testBank())

	_, err := s.References("w99", "ಅ")
	assert.ErrorIs(t, err, ErrLessonMissing)
	assert.False(t, s.HasLesson("w99"))
	assert.True(t, s.HasLesson("w01"))
}

func TestStore_Stats(t *testing.T) {
	s := NewStore("vector", testBank())

	assert.Equal(t, Stats{Lessons: 2, Syllables: 3, References: 3, Empty: 1}, s.Stats())
	assert.Equal(t, []string{"w01", "w02"}, s.Lessons())
	assert.Equal(t, "vector", s.Name())
}

func TestStore_NilBank(t *testing.T) {
	s := NewStore[feature.Matrix]("sequence", nil)
	assert.Equal(t, Stats{}, s.Stats())
	_, err := s.References("w01", "ಅ")
	assert.ErrorIs(t, err, ErrLessonMissing)
}

func TestLoadMatrixFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.json")
	data := `{"w01": {"ಅ": [[[1, 2], [3, 4]]], "ಮ್ಮ": []}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	s, err := LoadMatrixFile(path)
	require.NoError(t, err)

	refs, err := s.References("w01", "ಅ")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, feature.Matrix{{1, 2}, {3, 4}}, refs[0])
	assert.Equal(t, "sequence", s.Name())
}

func TestLoadMatrixFile_Ragged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"w01": {"ಅ": [[[1, 2], [3]]]}}`), 0o600))

	_, err := LoadMatrixFile(path)
	assert.Error(t, err)
}

func TestLoadVectorFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"w01": {"ಅ": [[0.1, 0.2, 0.3]]}}`), 0o600))

	s, err := LoadVectorFile(path)
	require.NoError(t, err)
	assert.Equal(t, Stats{Lessons: 1, Syllables: 1, References: 1}, s.Stats())
}

func TestLoadVectorFile_Missing(t *testing.T) {
	_, err := LoadVectorFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestDecodeBank_Invalid(t *testing.T) {
	_, err := decodeBank[feature.Vector](strings.NewReader(`{"w01": 5}`))
	assert.Error(t, err)
}

func TestAssemble(t *testing.T) {
	refs := []reference[feature.Vector]{
		{LessonID: "w01", Syllable: "ಅ", Value: feature.Vector{1}},
		{LessonID: "w01", Syllable: "ಅ", Value: feature.Vector{2}},
		{LessonID: "w02", Syllable: "ನ", Value: feature.Vector{3}},
	}

	bank := assemble(refs)
	assert.Equal(t, []feature.Vector{{1}, {2}}, bank["w01"]["ಅ"])
	assert.Equal(t, []feature.Vector{{3}}, bank["w02"]["ನ"])
}

func TestWiden(t *testing.T) {
	assert.Equal(t, []float64{0.5, -2}, widen([]float32{0.5, -2}))
}

func TestToMatrix(t *testing.T) {
	m, err := toMatrix([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, feature.Matrix{{1, 2}, {3, 4}}, m)

	_, err = toMatrix([][]float32{{1, 2}, {3}})
	assert.Error(t, err)

	_, err = toMatrix(nil)
	assert.Error(t, err)
}
