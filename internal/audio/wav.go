package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Static errors for WAV handling.
var (
	// ErrInvalidWAV is returned when data is not a parseable RIFF/WAVE stream.
	ErrInvalidWAV = errors.New("invalid WAV data")
	// ErrUnsupportedFormat is returned for WAV encodings other than PCM16 and float32.
	ErrUnsupportedFormat = errors.New("unsupported WAV encoding")
)

const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

// Clip is a decoded PCM16 audio clip with interleaved samples.
type Clip struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Frames returns the number of sample frames (samples per channel).
func (c Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// Slice returns the sub-clip between startMs and endMs (milliseconds).
// Bounds are clamped to the clip.
func (c Clip) Slice(startMs, endMs int) Clip {
	frames := c.Frames()
	from := clampInt(startMs*c.SampleRate/1000, 0, frames)
	to := clampInt(endMs*c.SampleRate/1000, from, frames)

	samples := make([]int16, (to-from)*c.Channels)
	copy(samples, c.Samples[from*c.Channels:to*c.Channels])

	return Clip{SampleRate: c.SampleRate, Channels: c.Channels, Samples: samples}
}

// DecodeWAV parses a RIFF/WAVE byte stream. 16-bit PCM and 32-bit IEEE float
// encodings are supported; float samples are converted to PCM16.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) < 12 {
		return Clip{}, fmt.Errorf("%w: too short to be a RIFF file", ErrInvalidWAV)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bits       int
		foundFmt   bool
	)

	// Walk RIFF chunks starting immediately after the 12-byte header.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || body+16 > len(data) {
				return Clip{}, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidWAV)
			}
			f := data[body:]
			format = binary.LittleEndian.Uint16(f[0:2])
			channels = int(binary.LittleEndian.Uint16(f[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(f[4:8]))
			bits = int(binary.LittleEndian.Uint16(f[14:16]))
			if format == formatExtensible && chunkSize >= 26 && body+26 <= len(data) {
				format = binary.LittleEndian.Uint16(f[24:26])
			}
			foundFmt = true
		case "data":
			if !foundFmt {
				return Clip{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			end := body + chunkSize
			if end > len(data) {
				end = len(data)
			}
			return decodeSamples(data[body:end], format, channels, sampleRate, bits)
		}

		offset = body + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}

	return Clip{}, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
}

func decodeSamples(pcm []byte, format uint16, channels, sampleRate, bits int) (Clip, error) {
	if channels <= 0 || sampleRate <= 0 {
		return Clip{}, fmt.Errorf("%w: channels=%d sample_rate=%d", ErrInvalidWAV, channels, sampleRate)
	}

	clip := Clip{SampleRate: sampleRate, Channels: channels}

	switch {
	case format == formatPCM && bits == 16:
		clip.Samples = make([]int16, len(pcm)/2)
		for i := range clip.Samples {
			clip.Samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		}
	case format == formatIEEEFloat && bits == 32:
		clip.Samples = make([]int16, len(pcm)/4)
		for i := range clip.Samples {
			v := math.Float32frombits(binary.LittleEndian.Uint32(pcm[i*4:]))
			clip.Samples[i] = floatToPCM16(v)
		}
	default:
		return Clip{}, fmt.Errorf("%w: format=%d bits=%d", ErrUnsupportedFormat, format, bits)
	}

	return clip, nil
}

// EncodeWAV serialises the clip as a canonical 44-byte-header PCM16 WAV.
func EncodeWAV(c Clip) []byte {
	dataSize := len(c.Samples) * 2
	blockAlign := c.Channels * 2

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(formatPCM))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(c.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(c.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(c.SampleRate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	_ = binary.Write(&buf, binary.LittleEndian, c.Samples)

	return buf.Bytes()
}

// ReadWAVFile decodes the WAV file at path.
func ReadWAVFile(path string) (Clip, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return Clip{}, fmt.Errorf("read wav: %w", err)
	}
	return DecodeWAV(data)
}

// WriteWAVFile encodes the clip to path, creating parent directories.
func WriteWAVFile(path string, c Clip) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, EncodeWAV(c), 0o600); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}

func floatToPCM16(v float32) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(math.Round(float64(v) * math.MaxInt16))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
