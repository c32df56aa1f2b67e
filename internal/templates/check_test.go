package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudiguru/nudiguru-api/internal/feature"
	"github.com/nudiguru/nudiguru-api/internal/lesson"
)

func TestStore_Check(t *testing.T) {
	catalog, err := lesson.NewCatalog([]lesson.Lesson{
		{ID: "w01", Text: "ನಮಸ್ತೆ", Syllables: []string{"na", "mas", "te"}},
		{ID: "w02", Text: "ಅದು", Syllables: []string{"a", "du"}},
	})
	require.NoError(t, err)

	s := NewStore("vector", Bank[feature.Vector]{
		"w01": {
			"na":    {{1, 0}},
			"mas":   {{0, 1}},
			"te":    {},
			"extra": {{1, 1}},
		},
		"w09": {"x": {{1}}},
	})

	issues := s.Check(catalog)

	assert.Equal(t, []Issue{
		{LessonID: "w01", Syllable: "te", Problem: "no references"},
		{LessonID: "w01", Syllable: "extra", Problem: "syllable not in lesson"},
		{LessonID: "w02", Problem: "lesson missing from bank"},
		{LessonID: "w09", Problem: "lesson not in catalog"},
	}, issues)
	assert.Equal(t, "w01/te: no references", issues[0].String())
	assert.Equal(t, "w02: lesson missing from bank", issues[2].String())
}

func TestStore_Check_Clean(t *testing.T) {
	catalog, err := lesson.NewCatalog([]lesson.Lesson{
		{ID: "w01", Text: "ಅಮ್ಮ", Syllables: []string{"a", "ma", "a"}},
	})
	require.NoError(t, err)

	s := NewStore("vector", Bank[feature.Vector]{
		"w01": {"a": {{1}}, "ma": {{1}}},
	})
	assert.Empty(t, s.Check(catalog))
}
