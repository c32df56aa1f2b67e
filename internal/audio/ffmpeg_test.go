package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// checkFFmpeg skips test if ffmpeg is not available.
func checkFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

// createTestTone creates a stereo 44.1 kHz sine tone with ffmpeg.
func createTestTone(t *testing.T, outputPath string, durationSec float64) {
	t.Helper()

	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "sine=frequency=440:duration="+fmt.Sprintf("%.3f", durationSec),
		"-ar", "44100", "-ac", "2",
		outputPath,
	)
	stderr, _ := cmd.CombinedOutput()
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		t.Fatalf("failed to create test tone: %s", string(stderr))
	}
}

func TestFFmpegNormalizer_Normalize(t *testing.T) {
	checkFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "input.wav")
	dst := filepath.Join(tmpDir, "out", "normalized.wav")
	createTestTone(t, src, 1.5)

	n := NewFFmpegNormalizer("", 0)
	if err := n.Normalize(context.Background(), src, dst); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	clip, err := ReadWAVFile(dst)
	if err != nil {
		t.Fatalf("ReadWAVFile() error = %v", err)
	}
	if clip.Channels != 1 {
		t.Errorf("channels = %d, want 1", clip.Channels)
	}
	if clip.SampleRate != DefaultSampleRate {
		t.Errorf("sample rate = %d, want %d", clip.SampleRate, DefaultSampleRate)
	}
	if d := clip.Duration(); d < 1.4 || d > 1.6 {
		t.Errorf("duration = %.3f, want ~1.5", d)
	}
}

func TestFFmpegNormalizer_ContextCancellation(t *testing.T) {
	checkFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "input.wav")
	createTestTone(t, src, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewFFmpegNormalizer("", 0)
	if err := n.Normalize(ctx, src, filepath.Join(tmpDir, "out.wav")); err == nil {
		t.Error("expected error with cancelled context")
	}
}

func TestFFmpegNormalizer_NonExistentFile(t *testing.T) {
	n := NewFFmpegNormalizer("", 0)
	err := n.Normalize(context.Background(), "/nonexistent/file.wav", filepath.Join(t.TempDir(), "out.wav"))
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestNewFFmpegNormalizer_Defaults(t *testing.T) {
	n := NewFFmpegNormalizer("", 0)
	if n.ffmpegPath != "ffmpeg" {
		t.Errorf("expected default path 'ffmpeg', got '%s'", n.ffmpegPath)
	}
	if n.sampleRate != DefaultSampleRate {
		t.Errorf("expected default sample rate %d, got %d", DefaultSampleRate, n.sampleRate)
	}
}

func TestNewFFmpegNormalizer_CustomPath(t *testing.T) {
	n := NewFFmpegNormalizer("/custom/path/ffmpeg", 22050)
	if n.ffmpegPath != "/custom/path/ffmpeg" {
		t.Errorf("expected custom path, got '%s'", n.ffmpegPath)
	}
	if n.sampleRate != 22050 {
		t.Errorf("expected sample rate 22050, got %d", n.sampleRate)
	}
}
