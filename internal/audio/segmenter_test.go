package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindows_Properties(t *testing.T) {
	durations := []float64{0, 0.001, 1, 1.337, 2.5, 10, 123.456}
	for _, d := range durations {
		for n := 1; n <= 12; n++ {
			t.Run(fmt.Sprintf("d=%v/n=%d", d, n), func(t *testing.T) {
				windows, err := Windows(d, n)
				require.NoError(t, err)
				require.Len(t, windows, n)

				assert.Equal(t, 0.0, windows[0].Start)
				assert.Equal(t, d, windows[n-1].End)
				for i := 1; i < n; i++ {
					assert.Equal(t, windows[i-1].End, windows[i].Start, "windows must be contiguous")
				}
				for _, w := range windows {
					assert.LessOrEqual(t, w.Start, w.End)
					assert.InDelta(t, d/float64(n), w.End-w.Start, 1e-9)
				}
			})
		}
	}
}

func TestWindows_Invalid(t *testing.T) {
	_, err := Windows(1, 0)
	assert.ErrorIs(t, err, ErrInvalidSegmentation)

	_, err = Windows(-1, 3)
	assert.ErrorIs(t, err, ErrInvalidSegmentation)
}

func TestWindow_Millis(t *testing.T) {
	windows, err := Windows(1.0, 3)
	require.NoError(t, err)

	var got [][2]int
	for _, w := range windows {
		s, e := w.Millis()
		got = append(got, [2]int{s, e})
	}
	assert.Equal(t, [][2]int{{0, 333}, {333, 667}, {667, 1000}}, got)
}

func TestProportionalSegmenter_Segment(t *testing.T) {
	dir := t.TempDir()
	clipPath := filepath.Join(dir, "clip.wav")
	require.NoError(t, WriteWAVFile(clipPath, tone(900)))

	outDir := filepath.Join(dir, "out")
	labels := []string{"na", "na", "ge"}

	paths, err := NewProportionalSegmenter().Segment(context.Background(), clipPath, outDir, labels)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	total := 0
	for i, p := range paths {
		assert.Equal(t, filepath.Join(outDir, fmt.Sprintf("syllable_%03d.wav", i)), p)
		sub, err := ReadWAVFile(p)
		require.NoError(t, err)
		assert.Equal(t, 4800, sub.Frames())
		total += sub.Frames()
	}
	assert.Equal(t, 14400, total)
}

func TestProportionalSegmenter_Errors(t *testing.T) {
	s := NewProportionalSegmenter()

	_, err := s.Segment(context.Background(), "/nonexistent/clip.wav", t.TempDir(), []string{"a"})
	require.Error(t, err)

	dir := t.TempDir()
	clipPath := filepath.Join(dir, "clip.wav")
	require.NoError(t, WriteWAVFile(clipPath, tone(100)))

	_, err = s.Segment(context.Background(), clipPath, dir, nil)
	assert.ErrorIs(t, err, ErrInvalidSegmentation)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Segment(ctx, clipPath, dir, []string{"a", "b"})
	require.Error(t, err)
}
