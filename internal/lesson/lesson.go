// Package lesson provides the static catalog of practice phrases.
// Lessons are created once at process start and never mutated.
package lesson

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrLessonNotFound is returned when a lesson ID is not in the catalog.
var ErrLessonNotFound = errors.New("lesson not found")

// ErrInvalidCatalog is returned when a catalog definition is inconsistent.
var ErrInvalidCatalog = errors.New("invalid lesson catalog")

// Lesson is a single practice phrase split into syllable labels.
// Syllable order matters and labels may repeat.
type Lesson struct {
	// ID is the stable lesson identifier (e.g. "w01").
	ID string `yaml:"id"`
	// Text is the display text of the phrase.
	Text string `yaml:"text"`
	// Syllables is the ordered list of syllable labels.
	Syllables []string `yaml:"syllables"`
	// Order is the position of the lesson in the curriculum.
	Order int `yaml:"order"`
}

// Difficulty returns the curriculum difficulty band of the lesson.
func (l Lesson) Difficulty() string {
	if l.Order <= 5 {
		return "beginner"
	}
	return "intermediate"
}

// Catalog is an immutable, ordered set of lessons.
// It is safe for concurrent use.
type Catalog struct {
	byID    map[string]Lesson
	ordered []Lesson
}

// NewCatalog builds a Catalog from the given lessons.
// Lessons without an explicit Order get one derived from their ID suffix
// ("w07" -> 7) or, failing that, their position in the input.
func NewCatalog(lessons []Lesson) (*Catalog, error) {
	if len(lessons) == 0 {
		return nil, fmt.Errorf("%w: no lessons defined", ErrInvalidCatalog)
	}

	c := &Catalog{
		byID:    make(map[string]Lesson, len(lessons)),
		ordered: make([]Lesson, 0, len(lessons)),
	}

	for i, l := range lessons {
		if strings.TrimSpace(l.ID) == "" {
			return nil, fmt.Errorf("%w: lesson %d has empty id", ErrInvalidCatalog, i)
		}
		if _, dup := c.byID[l.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate lesson id %q", ErrInvalidCatalog, l.ID)
		}
		if len(l.Syllables) == 0 {
			return nil, fmt.Errorf("%w: lesson %q has no syllables", ErrInvalidCatalog, l.ID)
		}
		if l.Order == 0 {
			l.Order = orderFromID(l.ID, i+1)
		}

		syllables := make([]string, len(l.Syllables))
		copy(syllables, l.Syllables)
		l.Syllables = syllables

		c.byID[l.ID] = l
		c.ordered = append(c.ordered, l)
	}

	sort.SliceStable(c.ordered, func(i, j int) bool {
		return c.ordered[i].Order < c.ordered[j].Order
	})

	return c, nil
}

// Get returns the lesson with the given ID.
// Returns ErrLessonNotFound if the lesson does not exist.
func (c *Catalog) Get(id string) (Lesson, error) {
	l, ok := c.byID[id]
	if !ok {
		return Lesson{}, fmt.Errorf("%w: %s", ErrLessonNotFound, id)
	}
	return l.clone(), nil
}

// List returns all lessons sorted by Order.
func (c *Catalog) List() []Lesson {
	out := make([]Lesson, len(c.ordered))
	for i, l := range c.ordered {
		out[i] = l.clone()
	}
	return out
}

// First returns the first lesson in catalog order.
func (c *Catalog) First() Lesson {
	return c.ordered[0].clone()
}

// Len returns the number of lessons in the catalog.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

func (l Lesson) clone() Lesson {
	syllables := make([]string, len(l.Syllables))
	copy(syllables, l.Syllables)
	l.Syllables = syllables
	return l
}

// orderFromID derives an order from the numeric suffix of an ID like "w12".
func orderFromID(id string, fallback int) int {
	digits := strings.TrimLeftFunc(id, func(r rune) bool {
		return r < '0' || r > '9'
	})
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
