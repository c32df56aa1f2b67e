package audio

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tone returns a mono 16 kHz clip of the given length in milliseconds.
func tone(ms int) Clip {
	n := DefaultSampleRate * ms / 1000
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/DefaultSampleRate))
	}
	return Clip{SampleRate: DefaultSampleRate, Channels: 1, Samples: samples}
}

func TestEncodeDecodeWAV(t *testing.T) {
	clip := tone(250)

	decoded, err := DecodeWAV(EncodeWAV(clip))
	require.NoError(t, err)

	assert.Equal(t, clip.SampleRate, decoded.SampleRate)
	assert.Equal(t, clip.Channels, decoded.Channels)
	assert.Equal(t, clip.Samples, decoded.Samples)
	assert.InDelta(t, 0.25, decoded.Duration(), 1e-9)
}

func TestDecodeWAV_Float32(t *testing.T) {
	pcm := make([]byte, 3*4)
	for i, v := range []float32{0, 1, -0.5} {
		binary.LittleEndian.PutUint32(pcm[i*4:], math.Float32bits(v))
	}

	data := make([]byte, 0, 44+len(pcm))
	data = append(data, "RIFF"...)
	data = binary.LittleEndian.AppendUint32(data, uint32(36+len(pcm)))
	data = append(data, "WAVEfmt "...)
	data = binary.LittleEndian.AppendUint32(data, 16)
	data = binary.LittleEndian.AppendUint16(data, formatIEEEFloat)
	data = binary.LittleEndian.AppendUint16(data, 1)
	data = binary.LittleEndian.AppendUint32(data, 22050)
	data = binary.LittleEndian.AppendUint32(data, 22050*4)
	data = binary.LittleEndian.AppendUint16(data, 4)
	data = binary.LittleEndian.AppendUint16(data, 32)
	data = append(data, "data"...)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(pcm)))
	data = append(data, pcm...)

	clip, err := DecodeWAV(data)
	require.NoError(t, err)

	assert.Equal(t, 22050, clip.SampleRate)
	assert.Equal(t, []int16{0, math.MaxInt16, -16384}, clip.Samples)
}

func TestDecodeWAV_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not riff", data: []byte("this is not a wav file at all")},
		{name: "no data chunk", data: EncodeWAV(tone(10))[:36]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeWAV(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidWAV)
		})
	}
}

func TestClip_Slice(t *testing.T) {
	clip := tone(1000)

	part := clip.Slice(250, 500)
	assert.Equal(t, 4000, part.Frames())
	assert.Equal(t, clip.Samples[4000:8000], part.Samples)

	// Out-of-range bounds are clamped.
	tail := clip.Slice(900, 5000)
	assert.Equal(t, 1600, tail.Frames())

	empty := clip.Slice(2000, 3000)
	assert.Equal(t, 0, empty.Frames())
}

func TestClip_Slice_Stereo(t *testing.T) {
	clip := Clip{SampleRate: 1000, Channels: 2, Samples: make([]int16, 2000)}
	for i := range clip.Samples {
		clip.Samples[i] = int16(i)
	}

	part := clip.Slice(100, 200)
	require.Equal(t, 100, part.Frames())
	assert.Equal(t, int16(200), part.Samples[0])
	assert.Equal(t, int16(201), part.Samples[1])
}

func TestWriteReadWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "clip.wav")
	clip := tone(100)

	require.NoError(t, WriteWAVFile(path, clip))

	got, err := ReadWAVFile(path)
	require.NoError(t, err)
	assert.Equal(t, clip.Samples, got.Samples)
}

func TestValidateWAV(t *testing.T) {
	require.NoError(t, ValidateWAV(EncodeWAV(tone(100))))

	err := ValidateWAV([]byte("plain text, not audio"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAudio)

	err = ValidateWAV(nil)
	assert.ErrorIs(t, err, ErrInvalidAudio)

	err = ValidateWAV(EncodeWAV(Clip{SampleRate: DefaultSampleRate, Channels: 1}))
	assert.ErrorIs(t, err, ErrInvalidAudio)
}

func TestValidateMedia(t *testing.T) {
	require.NoError(t, ValidateMedia(EncodeWAV(tone(100))))

	err := ValidateMedia([]byte("{\"not\": \"audio\"}"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAudio)
}
