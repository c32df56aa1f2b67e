package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Normalizer converts an uploaded recording into the canonical scoring format.
type Normalizer interface {
	// Normalize transcodes src into a mono PCM16 WAV at dst.
	Normalize(ctx context.Context, src, dst string) error
}

// FFmpegNormalizer implements Normalizer using the ffmpeg CLI.
type FFmpegNormalizer struct {
	ffmpegPath string
	sampleRate int
}

// NewFFmpegNormalizer creates a new FFmpegNormalizer.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
// If sampleRate is not positive, 16 kHz is used.
func NewFFmpegNormalizer(ffmpegPath string, sampleRate int) *FFmpegNormalizer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &FFmpegNormalizer{ffmpegPath: ffmpegPath, sampleRate: sampleRate}
}

// DefaultSampleRate is the sample rate all scoring features are computed at.
const DefaultSampleRate = 16000

// Normalize implements Normalizer.Normalize.
func (n *FFmpegNormalizer) Normalize(ctx context.Context, src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	args := []string{
		"-y", // Overwrite output
		"-i", src,
		"-ac", "1",
		"-ar", strconv.Itoa(n.sampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dst,
	}

	cmd := exec.CommandContext(ctx, n.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// Verify interface implementation at compile time.
var _ Normalizer = (*FFmpegNormalizer)(nil)
