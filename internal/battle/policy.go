package battle

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/nudiguru/nudiguru-api/internal/lesson"
)

// ErrUnknownPolicy is returned by ParsePolicy for an unrecognised name.
var ErrUnknownPolicy = errors.New("unknown lesson policy")

// LessonPolicy picks the lesson a new room is played on.
type LessonPolicy func(c *lesson.Catalog) lesson.Lesson

// FirstLesson always picks the first lesson in curriculum order.
func FirstLesson(c *lesson.Catalog) lesson.Lesson {
	return c.First()
}

// RandomLesson picks a lesson uniformly at random.
func RandomLesson(c *lesson.Catalog) lesson.Lesson {
	all := c.List()
	if len(all) == 0 {
		return lesson.Lesson{}
	}
	return all[rand.IntN(len(all))] // #nosec G404 - lesson choice is not security sensitive
}

// ParsePolicy maps a configuration value to a LessonPolicy.
func ParsePolicy(name string) (LessonPolicy, error) {
	switch name {
	case "", "first":
		return FirstLesson, nil
	case "random":
		return RandomLesson, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
