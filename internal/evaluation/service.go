// Package evaluation orchestrates a single pronunciation evaluation: upload
// validation, reference lookup, the gross-distance pre-filter, the scoring
// pipelines and result fusion.
package evaluation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nudiguru/nudiguru-api/internal/audio"
	"github.com/nudiguru/nudiguru-api/internal/fusion"
	"github.com/nudiguru/nudiguru-api/internal/lesson"
	"github.com/nudiguru/nudiguru-api/internal/observe"
	"github.com/nudiguru/nudiguru-api/internal/pipeline"
	"github.com/nudiguru/nudiguru-api/internal/prefilter"
	"github.com/nudiguru/nudiguru-api/internal/reference"
	"github.com/nudiguru/nudiguru-api/internal/storage"
)

// ErrScoringUnavailable is returned when no pipeline is configured or every
// pipeline failed for the request.
var ErrScoringUnavailable = errors.New("scoring unavailable")

// Response is the outcome of one evaluation.
type Response struct {
	AccuracyScore     int                        `json:"accuracy_score"`
	Syllables         []fusion.Syllable          `json:"syllables"`
	AreasToImprove    []string                   `json:"areas_to_improve"`
	ReferenceAudioURL string                     `json:"reference_audio_url"`
	Pipelines         map[string]pipeline.Result `json:"pipelines,omitempty"`
	Prefilter         prefilter.Verdict          `json:"prefilter,omitempty"`
	Rejected          bool                       `json:"stt_rejected,omitempty"`
	Reason            string                     `json:"reason,omitempty"`
	Distance          *float64                   `json:"distance,omitempty"`
}

// Service evaluates user recordings against lessons.
type Service struct {
	catalog    *lesson.Catalog
	temp       storage.TempStorage
	pipelines  []pipeline.Runner
	normalizer audio.Normalizer
	references *reference.Provider
	prefilter  *prefilter.Checker
	metrics    *observe.Metrics
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNormalizer transcodes uploads before scoring. Without a normalizer only
// WAV uploads are accepted.
func WithNormalizer(n audio.Normalizer) Option {
	return func(s *Service) {
		s.normalizer = n
	}
}

// WithPrefilter enables the gross-distance check against the lesson's
// reference recording.
func WithPrefilter(refs *reference.Provider, checker *prefilter.Checker) Option {
	return func(s *Service) {
		s.references = refs
		s.prefilter = checker
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a Service. pipelines holds every pipeline that is
// present; it may be empty, in which case every evaluation fails with
// ErrScoringUnavailable.
func NewService(catalog *lesson.Catalog, temp storage.TempStorage, pipelines []pipeline.Runner, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		catalog:   catalog,
		temp:      temp,
		pipelines: pipelines,
		metrics:   observe.Noop(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pipelines returns the names of the configured pipelines.
func (s *Service) Pipelines() []string {
	names := make([]string, len(s.pipelines))
	for i, p := range s.pipelines {
		names[i] = p.Name()
	}
	return names
}

// Evaluate scores clip against lessonID. Every temporary file created for the
// request is removed before Evaluate returns.
func (s *Service) Evaluate(ctx context.Context, clip []byte, lessonID string) (*Response, error) {
	start := time.Now()

	l, err := s.catalog.Get(lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(clip); err != nil {
		return nil, err
	}
	if len(s.pipelines) == 0 {
		s.metrics.RecordEvaluation(ctx, "unavailable", time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrScoringUnavailable, fusion.ErrNoPipelines)
	}

	var tempFiles []string
	defer func() {
		if err := s.temp.CleanupTemp(context.WithoutCancel(ctx), tempFiles); err != nil {
			s.logger.Warn("failed to cleanup temp files", slog.String("error", err.Error()))
		}
	}()

	clipPath, err := s.temp.SaveTemp(ctx, "upload", bytes.NewReader(clip))
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	tempFiles = append(tempFiles, clipPath)

	if s.normalizer != nil {
		normalized := clipPath + "_16k.wav"
		tempFiles = append(tempFiles, normalized)
		if err := s.normalizer.Normalize(ctx, clipPath, normalized); err != nil {
			return nil, fmt.Errorf("%w: %w", audio.ErrInvalidAudio, err)
		}
		clipPath = normalized
	}

	resp := &Response{ReferenceAudioURL: reference.URL(l.ID)}

	verdict, refPath := s.checkReference(ctx, l, clipPath)
	if refPath != "" {
		tempFiles = append(tempFiles, refPath)
	}
	if verdict.Verdict != "" {
		resp.Prefilter = verdict.Verdict
	}
	if verdict.Rejected() {
		rejected := fusion.Rejected(l)
		resp.Syllables = rejected.Syllables
		resp.AreasToImprove = rejected.Hints
		resp.Rejected = true
		resp.Reason = verdict.Reason
		resp.Distance = &verdict.Distance

		s.logger.Info("attempt rejected by prefilter",
			slog.String("lesson_id", l.ID),
			slog.Float64("distance", verdict.Distance),
		)
		s.metrics.RecordEvaluation(ctx, "rejected", time.Since(start))
		return resp, nil
	}

	results := s.runPipelines(ctx, clipPath, l)
	if len(results) == 0 {
		s.metrics.RecordEvaluation(ctx, "unavailable", time.Since(start))
		return nil, fmt.Errorf("%w: every pipeline failed for lesson %s", ErrScoringUnavailable, l.ID)
	}

	fused, err := fusion.Fuse(l, results)
	if err != nil {
		s.metrics.RecordEvaluation(ctx, "error", time.Since(start))
		return nil, fmt.Errorf("fuse results: %w", err)
	}

	resp.AccuracyScore = fused.Accuracy
	resp.Syllables = fused.Syllables
	resp.AreasToImprove = fused.Hints
	resp.Pipelines = make(map[string]pipeline.Result, len(results))
	for _, r := range results {
		resp.Pipelines[r.Name] = r
	}

	s.logger.Info("evaluation complete",
		slog.String("lesson_id", l.ID),
		slog.Int("accuracy", resp.AccuracyScore),
		slog.Int("pipelines", len(results)),
		slog.Duration("duration", time.Since(start)),
	)
	s.metrics.RecordEvaluation(ctx, "scored", time.Since(start))

	return resp, nil
}

// Score runs Evaluate and returns only the overall accuracy. A pre-filter
// rejection scores 0.
func (s *Service) Score(ctx context.Context, clip []byte, lessonID string) (int, error) {
	resp, err := s.Evaluate(ctx, clip, lessonID)
	if err != nil {
		return 0, err
	}
	return resp.AccuracyScore, nil
}

func (s *Service) validate(clip []byte) error {
	if s.normalizer != nil {
		return audio.ValidateMedia(clip)
	}
	return audio.ValidateWAV(clip)
}

// checkReference resolves the reference recording and runs the pre-filter.
// Any failure skips the check. The returned path, when set, is a temp file
// the caller must clean up.
func (s *Service) checkReference(ctx context.Context, l lesson.Lesson, clipPath string) (prefilter.Outcome, string) {
	if s.references == nil || s.prefilter == nil {
		return prefilter.Outcome{}, ""
	}

	ref, err := s.references.Resolve(ctx, l.ID)
	if err != nil {
		s.logger.Warn("reference unavailable, skipping prefilter",
			slog.String("lesson_id", l.ID),
			slog.String("error", err.Error()),
		)
		return prefilter.Outcome{Verdict: prefilter.VerdictSkipped}, ""
	}

	refPath, err := s.temp.SaveTemp(ctx, "reference", bytes.NewReader(ref.Data))
	if err != nil {
		s.logger.Warn("failed to stage reference, skipping prefilter", slog.String("error", err.Error()))
		return prefilter.Outcome{Verdict: prefilter.VerdictSkipped}, ""
	}

	out := s.prefilter.Check(ctx, clipPath, refPath)
	s.metrics.RecordPrefilter(ctx, string(out.Verdict))
	return out, refPath
}

// runPipelines runs every pipeline concurrently and returns the results of
// those that succeeded, in configuration order. Failures, including panics,
// are logged and dropped.
func (s *Service) runPipelines(ctx context.Context, clipPath string, l lesson.Lesson) []pipeline.Result {
	results := make([]*pipeline.Result, len(s.pipelines))

	var g errgroup.Group
	for i, p := range s.pipelines {
		g.Go(func() (err error) {
			start := time.Now()
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
				status := "ok"
				if err != nil {
					status = "error"
					s.logger.Error("pipeline failed",
						slog.String("pipeline", p.Name()),
						slog.String("lesson_id", l.ID),
						slog.String("error", err.Error()),
					)
				}
				s.metrics.RecordPipeline(ctx, p.Name(), status, time.Since(start))
				// a failed pipeline must not cancel or fail the others
				err = nil
			}()

			res, err := p.Evaluate(ctx, clipPath, l)
			if err != nil {
				return err
			}
			results[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	out := make([]pipeline.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
