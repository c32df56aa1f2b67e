// Package reference resolves the playable reference recording for a lesson,
// synthesizing and caching it on first use.
package reference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/nudiguru/nudiguru-api/internal/audio"
	"github.com/nudiguru/nudiguru-api/internal/lesson"
	"github.com/nudiguru/nudiguru-api/internal/observe"
	"github.com/nudiguru/nudiguru-api/internal/storage"
	"github.com/nudiguru/nudiguru-api/internal/tts"
)

// ErrUnavailable is returned when no reference recording can be produced.
var ErrUnavailable = errors.New("reference audio unavailable")

// Source records where a resolved recording came from.
type Source string

// Source values.
const (
	SourceCache       Source = "cache"
	SourceSynthesized Source = "synthesized"
	SourceFallback    Source = "fallback"
)

// Audio is a resolved reference recording (WAV bytes).
type Audio struct {
	LessonID string
	Data     []byte
	Source   Source
}

// Status describes the reference cache.
type Status struct {
	TTSAvailable bool   `json:"tts_available"`
	CacheDir     string `json:"cache_dir"`
	CachedFiles  int    `json:"cached_files"`
}

// Key returns the object key for a lesson's recording.
func Key(lessonID string) string {
	return lessonID + ".wav"
}

// URL returns the path clients use to fetch a lesson's recording.
func URL(lessonID string) string {
	return "/tts/generate/" + lessonID
}

// Provider resolves reference recordings. The primary cache is
// authoritative: once a recording is stored it is never replaced.
type Provider struct {
	catalog  *lesson.Catalog
	cache    storage.ObjectStore
	fallback storage.ObjectStore
	synth    tts.Synthesizer
	speaker  string
	metrics  *observe.Metrics
	logger   *slog.Logger
	group    singleflight.Group
}

// Option configures a Provider.
type Option func(*Provider)

// WithSynthesizer enables synthesis on cache misses.
func WithSynthesizer(s tts.Synthesizer, speaker string) Option {
	return func(p *Provider) {
		p.synth = s
		if speaker != "" {
			p.speaker = speaker
		}
	}
}

// WithFallback sets a pre-populated store consulted when synthesis is
// unavailable or fails.
func WithFallback(s storage.ObjectStore) Option {
	return func(p *Provider) {
		p.fallback = s
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// NewProvider creates a Provider over the primary cache.
func NewProvider(catalog *lesson.Catalog, cache storage.ObjectStore, logger *slog.Logger, opts ...Option) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		catalog: catalog,
		cache:   cache,
		speaker: tts.DefaultSpeaker,
		metrics: observe.Noop(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve returns the lesson's recording from the cache, by synthesis, or
// from the fallback store, in that order. Concurrent misses for one lesson
// share a single resolution.
func (p *Provider) Resolve(ctx context.Context, lessonID string) (Audio, error) {
	l, err := p.catalog.Get(lessonID)
	if err != nil {
		return Audio{}, err
	}

	// The resolution is shared with other callers, so one caller going away
	// must not cancel it for the rest.
	shared := context.WithoutCancel(ctx)
	v, err, _ := p.group.Do(lessonID, func() (any, error) {
		return p.resolve(shared, l)
	})
	if err != nil {
		return Audio{}, err
	}

	a := v.(Audio)
	p.metrics.RecordReference(ctx, string(a.Source))
	return a, nil
}

func (p *Provider) resolve(ctx context.Context, l lesson.Lesson) (Audio, error) {
	key := Key(l.ID)

	data, err := p.cache.Get(ctx, key)
	if err == nil {
		return Audio{LessonID: l.ID, Data: data, Source: SourceCache}, nil
	}
	if !errors.Is(err, storage.ErrObjectNotFound) {
		p.logger.Warn("reference cache read failed", "lesson_id", l.ID, "error", err)
	}

	if p.synth != nil {
		data, err := p.synthesize(ctx, l)
		if err == nil {
			p.store(ctx, key, data)
			return Audio{LessonID: l.ID, Data: data, Source: SourceSynthesized}, nil
		}
		p.logger.Warn("reference synthesis failed", "lesson_id", l.ID, "error", err)
	}

	if p.fallback != nil {
		data, err := p.fallback.Get(ctx, key)
		if err == nil {
			p.store(ctx, key, data)
			return Audio{LessonID: l.ID, Data: data, Source: SourceFallback}, nil
		}
		if !errors.Is(err, storage.ErrObjectNotFound) {
			p.logger.Warn("reference fallback read failed", "lesson_id", l.ID, "error", err)
		}
	}

	p.metrics.RecordReference(ctx, "unavailable")
	return Audio{}, fmt.Errorf("%w: lesson %s", ErrUnavailable, l.ID)
}

func (p *Provider) synthesize(ctx context.Context, l lesson.Lesson) ([]byte, error) {
	p.logger.Info("synthesizing reference", "lesson_id", l.ID, "speaker", p.speaker)

	clip, err := p.synth.Synthesize(ctx, l.Text, p.speaker)
	if err != nil {
		return nil, err
	}
	if clip.Frames() == 0 {
		return nil, tts.ErrEmptyAudio
	}
	return audio.EncodeWAV(clip), nil
}

// store writes to the primary cache; failures are logged since the caller
// already has the recording.
func (p *Provider) store(ctx context.Context, key string, data []byte) {
	if err := p.cache.Put(ctx, key, data); err != nil {
		p.logger.Warn("reference cache write failed", "key", key, "error", err)
	}
}

// Status reports synthesis availability and the number of cached files.
func (p *Provider) Status(ctx context.Context) Status {
	s := Status{TTSAvailable: p.synth != nil, CacheDir: p.cache.Location()}
	n, err := p.cache.Count(ctx)
	if err != nil {
		p.logger.Warn("count cached references failed", "error", err)
	}
	s.CachedFiles = n
	return s
}

// SynthesisEnabled reports whether a synthesizer is configured.
func (p *Provider) SynthesisEnabled() bool {
	return p.synth != nil
}
