package templates

import (
	"fmt"

	"github.com/nudiguru/nudiguru-api/internal/lesson"
)

// Issue is one inconsistency between a bank and the lesson catalog.
type Issue struct {
	LessonID string `json:"lesson_id"`
	Syllable string `json:"syllable,omitempty"`
	Problem  string `json:"problem"`
}

func (i Issue) String() string {
	if i.Syllable == "" {
		return fmt.Sprintf("%s: %s", i.LessonID, i.Problem)
	}
	return fmt.Sprintf("%s/%s: %s", i.LessonID, i.Syllable, i.Problem)
}

// Check compares the store against the catalog. A lesson absent from the
// bank, a syllable with no references, and bank entries the catalog does not
// know are all reported. Issues follow catalog order.
func (s *Store[T]) Check(catalog *lesson.Catalog) []Issue {
	var issues []Issue

	known := make(map[string]bool, catalog.Len())
	for _, l := range catalog.List() {
		known[l.ID] = true

		syllables, ok := s.bank[l.ID]
		if !ok {
			issues = append(issues, Issue{LessonID: l.ID, Problem: "lesson missing from bank"})
			continue
		}

		seen := make(map[string]bool, len(l.Syllables))
		for _, label := range l.Syllables {
			if seen[label] {
				continue
			}
			seen[label] = true
			if len(syllables[label]) == 0 {
				issues = append(issues, Issue{LessonID: l.ID, Syllable: label, Problem: "no references"})
			}
		}
		for _, label := range s.Syllables(l.ID) {
			if !seen[label] {
				issues = append(issues, Issue{LessonID: l.ID, Syllable: label, Problem: "syllable not in lesson"})
			}
		}
	}

	for _, id := range s.Lessons() {
		if !known[id] {
			issues = append(issues, Issue{LessonID: id, Problem: "lesson not in catalog"})
		}
	}
	return issues
}
