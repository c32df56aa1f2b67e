package reference

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nudiguru/nudiguru-api/internal/audio"
	"github.com/nudiguru/nudiguru-api/internal/lesson"
	"github.com/nudiguru/nudiguru-api/internal/storage"
)

type mockSynthesizer struct {
	mock.Mock
	calls atomic.Int32
	delay time.Duration
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, text, speaker string) (audio.Clip, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	args := m.Called(ctx, text, speaker)
	return args.Get(0).(audio.Clip), args.Error(1)
}

var tone = audio.Clip{SampleRate: 16000, Channels: 1, Samples: []int16{1, 2, 3, 4}}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, name string) *storage.LocalObjectStore {
	t.Helper()
	s, err := storage.NewLocalObjectStore(filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	return s
}

func TestResolve_CacheHitSkipsSynthesis(t *testing.T) {
	cache := newStore(t, "cache")
	require.NoError(t, cache.Put(context.Background(), "w01.wav", []byte("cached")))

	synth := &mockSynthesizer{}
	p := NewProvider(lesson.Default(), cache, discard(), WithSynthesizer(synth, ""))

	a, err := p.Resolve(context.Background(), "w01")
	require.NoError(t, err)
	assert.Equal(t, "cached", string(a.Data))
	assert.Equal(t, SourceCache, a.Source)
	synth.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_MissSynthesizesOnceAndCaches(t *testing.T) {
	cache := newStore(t, "cache")
	catalog := lesson.Default()
	l, err := catalog.Get("w01")
	require.NoError(t, err)

	synth := &mockSynthesizer{}
	synth.On("Synthesize", mock.Anything, l.Text, "female").Return(tone, nil).Once()
	p := NewProvider(catalog, cache, discard(), WithSynthesizer(synth, "female"))

	a, err := p.Resolve(context.Background(), "w01")
	require.NoError(t, err)
	assert.Equal(t, SourceSynthesized, a.Source)
	assert.Equal(t, audio.EncodeWAV(tone), a.Data)

	stored, err := cache.Get(context.Background(), "w01.wav")
	require.NoError(t, err)
	assert.Equal(t, a.Data, stored)

	again, err := p.Resolve(context.Background(), "w01")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, again.Source)
	synth.AssertExpectations(t)
	assert.Equal(t, int32(1), synth.calls.Load())
}

func TestResolve_ConcurrentMissesShareSynthesis(t *testing.T) {
	cache := newStore(t, "cache")
	synth := &mockSynthesizer{delay: 50 * time.Millisecond}
	synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).Return(tone, nil)
	p := NewProvider(lesson.Default(), cache, discard(), WithSynthesizer(synth, ""))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Resolve(context.Background(), "w02")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), synth.calls.Load())
}

// gatedSynthesizer blocks until released and fails if its context ends first.
type gatedSynthesizer struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedSynthesizer) Synthesize(ctx context.Context, _, _ string) (audio.Clip, error) {
	close(g.started)
	select {
	case <-g.release:
		return tone, nil
	case <-ctx.Done():
		return audio.Clip{}, ctx.Err()
	}
}

func TestResolve_SharedResolutionOutlivesFirstCaller(t *testing.T) {
	cache := newStore(t, "cache")
	synth := &gatedSynthesizer{started: make(chan struct{}), release: make(chan struct{})}
	p := NewProvider(lesson.Default(), cache, discard(), WithSynthesizer(synth, ""))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = p.Resolve(firstCtx, "w04")
	}()
	<-synth.started

	type result struct {
		audio Audio
		err   error
	}
	second := make(chan result, 1)
	go func() {
		a, err := p.Resolve(context.Background(), "w04")
		second <- result{a, err}
	}()

	// Let the second caller join the in-flight resolution, then drop the first.
	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	time.Sleep(20 * time.Millisecond)
	close(synth.release)

	select {
	case r := <-second:
		require.NoError(t, r.err)
		assert.Equal(t, SourceSynthesized, r.audio.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
	<-firstDone
}

func TestResolve_FallbackWhenSynthesisUnavailable(t *testing.T) {
	cache := newStore(t, "cache")
	fallback := newStore(t, "fallback")
	require.NoError(t, fallback.Put(context.Background(), "w03.wav", []byte("prebuilt")))

	p := NewProvider(lesson.Default(), cache, discard(), WithFallback(fallback))

	a, err := p.Resolve(context.Background(), "w03")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, a.Source)
	assert.Equal(t, "prebuilt", string(a.Data))

	copied, err := cache.Get(context.Background(), "w03.wav")
	require.NoError(t, err)
	assert.Equal(t, "prebuilt", string(copied))
}

func TestResolve_FallbackWhenSynthesisFails(t *testing.T) {
	cache := newStore(t, "cache")
	fallback := newStore(t, "fallback")
	require.NoError(t, fallback.Put(context.Background(), "w03.wav", []byte("prebuilt")))

	synth := &mockSynthesizer{}
	synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).Return(audio.Clip{}, errors.New("tts down"))
	p := NewProvider(lesson.Default(), cache, discard(), WithSynthesizer(synth, ""), WithFallback(fallback))

	a, err := p.Resolve(context.Background(), "w03")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, a.Source)
}

func TestResolve_EmptySynthesisFallsThrough(t *testing.T) {
	synth := &mockSynthesizer{}
	synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).Return(audio.Clip{SampleRate: 16000, Channels: 1}, nil)
	p := NewProvider(lesson.Default(), newStore(t, "cache"), discard(), WithSynthesizer(synth, ""))

	_, err := p.Resolve(context.Background(), "w04")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestResolve_Unavailable(t *testing.T) {
	p := NewProvider(lesson.Default(), newStore(t, "cache"), discard(), WithFallback(newStore(t, "fallback")))

	_, err := p.Resolve(context.Background(), "w05")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestResolve_UnknownLesson(t *testing.T) {
	p := NewProvider(lesson.Default(), newStore(t, "cache"), discard())

	_, err := p.Resolve(context.Background(), "w99")
	assert.ErrorIs(t, err, lesson.ErrLessonNotFound)
}

func TestStatus(t *testing.T) {
	cache := newStore(t, "cache")
	require.NoError(t, cache.Put(context.Background(), "w01.wav", []byte("a")))
	require.NoError(t, cache.Put(context.Background(), "w02.wav", []byte("b")))

	p := NewProvider(lesson.Default(), cache, discard())
	s := p.Status(context.Background())
	assert.False(t, s.TTSAvailable)
	assert.Equal(t, 2, s.CachedFiles)
	assert.Equal(t, cache.Location(), s.CacheDir)
	assert.False(t, p.SynthesisEnabled())
}

func TestKeyAndURL(t *testing.T) {
	assert.Equal(t, "w07.wav", Key("w07"))
	assert.Equal(t, "/tts/generate/w07", URL("w07"))
}
