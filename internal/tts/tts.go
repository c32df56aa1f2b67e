// Package tts synthesizes reference recordings from lesson text via a
// Coqui TTS server.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nudiguru/nudiguru-api/internal/audio"
)

// Defaults for the Kannada reference voice.
const (
	DefaultSpeaker  = "female"
	DefaultLanguage = "kn"
	defaultTimeout  = 60 * time.Second

	apiTTSEndpoint  = "/api/tts"
	detailsEndpoint = "/details"
)

// Static errors for synthesis.
var (
	// ErrServerURLRequired is returned when no server URL is configured.
	ErrServerURLRequired = errors.New("tts: server URL is required")
	// ErrEmptyAudio is returned when the server answers with no samples.
	ErrEmptyAudio = errors.New("tts: synthesized audio is empty")
)

// Synthesizer turns text into speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, speaker string) (audio.Clip, error)
}

// CoquiClient is a Synthesizer backed by the standard Coqui TTS server
// (GET /api/tts). It is safe for concurrent use.
type CoquiClient struct {
	serverURL  string
	language   string
	httpClient *http.Client
}

// Option configures a CoquiClient.
type Option func(*CoquiClient)

// WithLanguage sets the language_id sent to the server.
func WithLanguage(lang string) Option {
	return func(c *CoquiClient) {
		c.language = lang
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *CoquiClient) {
		c.httpClient.Timeout = d
	}
}

// NewCoquiClient creates a client for the server at serverURL
// (e.g. "http://localhost:5002").
func NewCoquiClient(serverURL string, opts ...Option) (*CoquiClient, error) {
	if serverURL == "" {
		return nil, ErrServerURLRequired
	}
	c := &CoquiClient{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   DefaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Synthesize implements Synthesizer.
func (c *CoquiClient) Synthesize(ctx context.Context, text, speaker string) (audio.Clip, error) {
	params := url.Values{}
	params.Set("text", text)
	if speaker != "" {
		params.Set("speaker_id", speaker)
	}
	if c.language != "" {
		params.Set("language_id", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+apiTTSEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("tts: create request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("tts: GET %s: %w", apiTTSEndpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return audio.Clip{}, fmt.Errorf("tts: GET %s returned status %d", apiTTSEndpoint, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("tts: read response: %w", err)
	}

	clip, err := audio.DecodeWAV(wav)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("tts: %w", err)
	}
	if clip.Frames() == 0 {
		return audio.Clip{}, ErrEmptyAudio
	}
	return clip, nil
}

// Ping checks that the server is reachable.
func (c *CoquiClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+detailsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("tts: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts: GET %s: %w", detailsEndpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tts: GET %s returned status %d", detailsEndpoint, resp.StatusCode)
	}
	return nil
}

var _ Synthesizer = (*CoquiClient)(nil)
