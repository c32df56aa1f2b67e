// Package fusion combines the results of independent scoring pipelines into
// the single result reported to the learner.
package fusion

import (
	"errors"
	"fmt"

	"github.com/nudiguru/nudiguru-api/internal/lesson"
	"github.com/nudiguru/nudiguru-api/internal/pipeline"
)

// Hint settings.
const (
	HintThreshold = 70
	MaxHints      = 3
	PraiseHint    = "Excellent pronunciation!"
)

// Static errors for fusion.
var (
	// ErrNoPipelines is returned when no pipeline produced a result.
	ErrNoPipelines = errors.New("no scoring pipeline available")
	// ErrMisaligned is returned when pipelines disagree on syllable count.
	ErrMisaligned = errors.New("pipeline results are not aligned")
)

// Syllable is one fused per-syllable accuracy.
type Syllable struct {
	Label    string `json:"text"`
	Accuracy int    `json:"accuracy"`
}

// Result is the fused outcome for a lesson.
type Result struct {
	Accuracy  int        `json:"accuracy_score"`
	Syllables []Syllable `json:"syllables"`
	Hints     []string   `json:"areas_to_improve"`
}

// Fuse combines the results of every pipeline that succeeded. One result is
// passed through unchanged. Several are combined by integer averaging of the
// overall accuracies (capped at 100) and of the per-syllable accuracies.
func Fuse(l lesson.Lesson, results []pipeline.Result) (Result, error) {
	if len(results) == 0 {
		return Result{}, ErrNoPipelines
	}
	for _, r := range results {
		if len(r.Syllables) != len(l.Syllables) {
			return Result{}, fmt.Errorf("%w: %s has %d syllables, lesson %s has %d",
				ErrMisaligned, r.Name, len(r.Syllables), l.ID, len(l.Syllables))
		}
	}

	fused := Result{Syllables: make([]Syllable, len(l.Syllables))}

	if len(results) == 1 {
		only := results[0]
		fused.Accuracy = only.Accuracy
		for i, s := range only.Syllables {
			fused.Syllables[i] = Syllable{Label: s.Label, Accuracy: s.Accuracy}
		}
	} else {
		total := 0
		for _, r := range results {
			total += r.Accuracy
		}
		fused.Accuracy = min(total/len(results), 100)

		for i, label := range l.Syllables {
			sum := 0
			for _, r := range results {
				sum += r.Syllables[i].Accuracy
			}
			fused.Syllables[i] = Syllable{Label: label, Accuracy: sum / len(results)}
		}
	}

	fused.Hints = Hints(fused.Syllables)
	return fused, nil
}

// Hints lists up to MaxHints weak syllables in order, or a single praise
// message when none fall below HintThreshold.
func Hints(syllables []Syllable) []string {
	var hints []string
	for _, s := range syllables {
		if s.Accuracy < HintThreshold {
			hints = append(hints, fmt.Sprintf("Focus on '%s'", s.Label))
			if len(hints) == MaxHints {
				break
			}
		}
	}
	if len(hints) == 0 {
		return []string{PraiseHint}
	}
	return hints
}

// Rejected returns the zero-accuracy result reported when an attempt fails the
// gross-distance check.
func Rejected(l lesson.Lesson) Result {
	r := Result{
		Syllables: make([]Syllable, len(l.Syllables)),
		Hints: []string{
			fmt.Sprintf("Pronunciation doesn't match '%s'", l.Text),
			"The words are too different",
			"Listen to reference and try again",
		},
	}
	for i, label := range l.Syllables {
		r.Syllables[i] = Syllable{Label: label}
	}
	return r
}
