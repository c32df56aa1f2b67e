// Package audio provides clip decoding, proportional syllable segmentation,
// upload validation and ffmpeg-based normalization.
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
)

// ErrInvalidSegmentation is returned when a clip cannot be split as requested.
var ErrInvalidSegmentation = errors.New("invalid segmentation request")

// Window is a time range in seconds.
type Window struct {
	Start float64
	End   float64
}

// Millis rounds both boundaries to whole milliseconds. Each boundary is
// rounded on its own, so drift never exceeds one unit per boundary.
func (w Window) Millis() (startMs, endMs int) {
	return int(math.Round(w.Start * 1000)), int(math.Round(w.End * 1000))
}

// Windows splits [0, duration] into n contiguous windows of equal length.
// The last window always ends exactly at duration.
func Windows(duration float64, n int) ([]Window, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: syllable count must be positive, got %d", ErrInvalidSegmentation, n)
	}
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: invalid duration %v", ErrInvalidSegmentation, duration)
	}

	step := duration / float64(n)
	windows := make([]Window, n)
	for i := range windows {
		windows[i].Start = float64(i) * step
		if i > 0 {
			windows[i].Start = windows[i-1].End
		}
		windows[i].End = float64(i+1) * step
	}
	windows[n-1].End = duration

	return windows, nil
}

// Segmenter splits a clip into one sub-clip per syllable.
type Segmenter interface {
	// Segment writes one sub-clip per label into outputDir, in label order,
	// and returns their paths. The caller is responsible for cleaning up
	// these temporary files.
	Segment(ctx context.Context, clipPath, outputDir string, labels []string) ([]string, error)
}

// ProportionalSegmenter implements Segmenter by fixed proportional time
// division of a WAV clip. It does not perform acoustic boundary detection.
type ProportionalSegmenter struct{}

// NewProportionalSegmenter creates a new ProportionalSegmenter.
func NewProportionalSegmenter() *ProportionalSegmenter {
	return &ProportionalSegmenter{}
}

// Segment implements Segmenter.Segment.
func (s *ProportionalSegmenter) Segment(ctx context.Context, clipPath, outputDir string, labels []string) ([]string, error) {
	clip, err := ReadWAVFile(clipPath)
	if err != nil {
		return nil, fmt.Errorf("load clip: %w", err)
	}

	windows, err := Windows(clip.Duration(), len(labels))
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(windows))
	for i, w := range windows {
		select {
		case <-ctx.Done():
			return paths, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		startMs, endMs := w.Millis()
		outputPath := filepath.Join(outputDir, fmt.Sprintf("syllable_%03d.wav", i))
		if err := WriteWAVFile(outputPath, clip.Slice(startMs, endMs)); err != nil {
			return paths, fmt.Errorf("extract syllable %d (%s): %w", i, labels[i], err)
		}
		paths = append(paths, outputPath)
	}

	return paths, nil
}

// Verify interface implementation at compile time.
var _ Segmenter = (*ProportionalSegmenter)(nil)
