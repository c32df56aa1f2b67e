// Package pipeline runs one scoring pipeline (segmentation, feature
// extraction and alignment scoring) over every syllable of a lesson.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/nudiguru/nudiguru-api/internal/audio"
	"github.com/nudiguru/nudiguru-api/internal/feature"
	"github.com/nudiguru/nudiguru-api/internal/lesson"
	"github.com/nudiguru/nudiguru-api/internal/scoring"
	"github.com/nudiguru/nudiguru-api/internal/templates"
)

// Pipeline names.
const (
	NameSequence = "sequence"
	NameVector   = "vector"
)

// DefaultSequenceGain is the amplification applied to the sequence pipeline's
// aggregate accuracy.
const DefaultSequenceGain = 5.0

// SyllableResult is the outcome for one syllable.
type SyllableResult struct {
	Label      string  `json:"text"`
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
	Accuracy   int     `json:"accuracy"`
	Correct    bool    `json:"correct"`
}

// Result is one pipeline's outcome for a lesson. Syllables follow the
// lesson's syllable order.
type Result struct {
	Name      string           `json:"name"`
	Syllables []SyllableResult `json:"syllables"`
	Accuracy  int              `json:"accuracy"`
}

// Runner is a pipeline that is present and usable.
type Runner interface {
	Name() string
	Evaluate(ctx context.Context, clipPath string, l lesson.Lesson) (Result, error)
}

// Evaluator scores a clip against a template store with one feature type.
type Evaluator[T any] struct {
	name      string
	segmenter audio.Segmenter
	extractor feature.Extractor[T]
	scorer    scoring.Scorer[T]
	store     *templates.Store[T]
	gain      float64
	tempDir   string
	logger    *slog.Logger
}

// Option configures an Evaluator.
type Option func(*options)

type options struct {
	gain    float64
	tempDir string
}

// WithGain multiplies the aggregate accuracy by g before capping at 100.
func WithGain(g float64) Option {
	return func(o *options) {
		if g > 0 {
			o.gain = g
		}
	}
}

// WithTempDir sets the parent directory for per-request sub-clip directories.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tempDir = dir
	}
}

// NewEvaluator creates an Evaluator.
func NewEvaluator[T any](
	name string,
	segmenter audio.Segmenter,
	extractor feature.Extractor[T],
	scorer scoring.Scorer[T],
	store *templates.Store[T],
	logger *slog.Logger,
	opts ...Option,
) *Evaluator[T] {
	o := options{gain: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator[T]{
		name:      name,
		segmenter: segmenter,
		extractor: extractor,
		scorer:    scorer,
		store:     store,
		gain:      o.gain,
		tempDir:   o.tempDir,
		logger:    logger.With("pipeline", name),
	}
}

// Name implements Runner.
func (e *Evaluator[T]) Name() string {
	return e.name
}

// Evaluate implements Runner. Sub-clips are written to a temporary directory
// that is removed before Evaluate returns.
func (e *Evaluator[T]) Evaluate(ctx context.Context, clipPath string, l lesson.Lesson) (Result, error) {
	if !e.store.HasLesson(l.ID) {
		return Result{}, fmt.Errorf("%w: %s bank has no lesson %q", templates.ErrLessonMissing, e.store.Name(), l.ID)
	}

	start := time.Now()

	workDir, err := os.MkdirTemp(e.tempDir, "syllables-*")
	if err != nil {
		return Result{}, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			e.logger.Warn("failed to remove work dir", "dir", workDir, "error", err)
		}
	}()

	clips, err := e.segmenter.Segment(ctx, clipPath, workDir, l.Syllables)
	if err != nil {
		return Result{}, fmt.Errorf("segment: %w", err)
	}
	if len(clips) != len(l.Syllables) {
		return Result{}, fmt.Errorf("segment: got %d sub-clips for %d syllables", len(clips), len(l.Syllables))
	}

	result := Result{Name: e.name, Syllables: make([]SyllableResult, len(l.Syllables))}
	var total float64
	for i, label := range l.Syllables {
		user, err := e.extractor.Extract(ctx, clips[i])
		if err != nil {
			return Result{}, fmt.Errorf("extract syllable %d (%s): %w", i, label, err)
		}

		refs, err := e.store.References(l.ID, label)
		if err != nil {
			return Result{}, err
		}
		if len(refs) == 0 {
			e.logger.Warn("no references for syllable", "lesson_id", l.ID, "syllable", label)
		}

		res, err := e.scorer.Score(user, refs)
		if err != nil {
			return Result{}, fmt.Errorf("score syllable %d (%s): %w", i, label, err)
		}

		result.Syllables[i] = SyllableResult{
			Label:      label,
			Score:      res.Score,
			Similarity: res.Similarity,
			Accuracy:   percent(res.Similarity),
			Correct:    res.Correct,
		}
		total += res.Similarity
	}

	aggregate := percent(total / float64(len(l.Syllables)))
	result.Accuracy = min(int(math.Round(float64(aggregate)*e.gain)), 100)

	e.logger.Debug("pipeline evaluated",
		"lesson_id", l.ID,
		"accuracy", result.Accuracy,
		"raw_accuracy", aggregate,
		"duration", time.Since(start),
	)

	return result, nil
}

// percent maps a similarity in [0, 1] to a whole percentage.
func percent(similarity float64) int {
	return int(math.Round(100 * math.Max(0, math.Min(similarity, 1))))
}

// Compile-time interface assertions.
var (
	_ Runner = (*Evaluator[feature.Matrix])(nil)
	_ Runner = (*Evaluator[feature.Vector])(nil)
)
