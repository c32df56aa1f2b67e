// Package templates holds the precomputed per-syllable reference features
// that user attempts are scored against.
package templates

import (
	"errors"
	"fmt"
	"sort"
)

// ErrLessonMissing is returned when a bank has no entry for a lesson. It is a
// configuration error: the bank was built without that lesson.
var ErrLessonMissing = errors.New("lesson missing from template bank")

// Bank maps lesson id -> syllable label -> ordered reference features.
type Bank[T any] map[string]map[string][]T

// Stats summarizes the contents of a bank.
type Stats struct {
	Lessons    int `json:"lessons"`
	Syllables  int `json:"syllables"`
	References int `json:"references"`
	// Empty counts syllables that have no references at all.
	Empty int `json:"empty"`
}

// Store is a read-only view over a Bank. It is never mutated after
// construction, so concurrent reads need no locking.
type Store[T any] struct {
	name string
	bank Bank[T]
}

// NewStore wraps bank. The caller must not modify bank afterwards.
func NewStore[T any](name string, bank Bank[T]) *Store[T] {
	if bank == nil {
		bank = Bank[T]{}
	}
	return &Store[T]{name: name, bank: bank}
}

// Name returns the label the store was created with (e.g. "sequence").
func (s *Store[T]) Name() string {
	return s.name
}

// References returns the references for one syllable of a lesson. A known
// lesson with a missing or empty syllable yields an empty slice and no error.
// The returned slice is shared and must be treated as read-only.
func (s *Store[T]) References(lessonID, syllable string) ([]T, error) {
	syllables, ok := s.bank[lessonID]
	if !ok {
		return nil, fmt.Errorf("%w: %s bank has no lesson %q", ErrLessonMissing, s.name, lessonID)
	}
	return syllables[syllable], nil
}

// HasLesson reports whether the bank contains lessonID.
func (s *Store[T]) HasLesson(lessonID string) bool {
	_, ok := s.bank[lessonID]
	return ok
}

// Lessons returns the sorted lesson ids present in the bank.
func (s *Store[T]) Lessons() []string {
	ids := make([]string, 0, len(s.bank))
	for id := range s.bank {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Syllables returns the sorted syllable labels stored for lessonID.
func (s *Store[T]) Syllables(lessonID string) []string {
	labels := make([]string, 0, len(s.bank[lessonID]))
	for label := range s.bank[lessonID] {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Stats counts lessons, syllables and references.
func (s *Store[T]) Stats() Stats {
	st := Stats{Lessons: len(s.bank)}
	for _, syllables := range s.bank {
		for _, refs := range syllables {
			st.Syllables++
			st.References += len(refs)
			if len(refs) == 0 {
				st.Empty++
			}
		}
	}
	return st
}
