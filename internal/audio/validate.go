package audio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrInvalidAudio is returned when an upload is not usable audio.
var ErrInvalidAudio = errors.New("invalid audio upload")

// Sniff detects the MIME type of an upload from its content.
func Sniff(data []byte) string {
	return mimetype.Detect(data).String()
}

// ValidateWAV checks that data is a decodable WAV clip with at least one sample.
func ValidateWAV(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty upload", ErrInvalidAudio)
	}
	if !mimetype.Detect(data).Is("audio/wav") {
		return fmt.Errorf("%w: expected audio/wav, got %s", ErrInvalidAudio, Sniff(data))
	}
	clip, err := DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAudio, err)
	}
	if clip.Frames() == 0 {
		return fmt.Errorf("%w: clip has no samples", ErrInvalidAudio)
	}
	return nil
}

// ValidateMedia accepts any upload whose content sniffs as audio (or a
// webm/ogg container as produced by browser recorders). It is used when
// uploads are transcoded through a Normalizer before scoring.
func ValidateMedia(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty upload", ErrInvalidAudio)
	}
	m := mimetype.Detect(data)
	for ; m != nil; m = m.Parent() {
		mt := m.String()
		if strings.HasPrefix(mt, "audio/") || mt == "video/webm" || mt == "application/ogg" {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported content type %s", ErrInvalidAudio, Sniff(data))
}
