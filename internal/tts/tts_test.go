package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudiguru/nudiguru-api/internal/audio"
)

func TestNewCoquiClient_MissingURL(t *testing.T) {
	_, err := NewCoquiClient("")
	assert.ErrorIs(t, err, ErrServerURLRequired)
}

func TestCoquiClient_Synthesize(t *testing.T) {
	want := audio.Clip{SampleRate: 22050, Channels: 1, Samples: []int16{1, -1, 100, -100}}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tts", r.URL.Path)
		assert.Equal(t, "ಅಮ್ಮ", r.URL.Query().Get("text"))
		assert.Equal(t, "female", r.URL.Query().Get("speaker_id"))
		assert.Equal(t, "kn", r.URL.Query().Get("language_id"))
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(audio.EncodeWAV(want))
	}))
	defer server.Close()

	c, err := NewCoquiClient(server.URL)
	require.NoError(t, err)

	clip, err := c.Synthesize(context.Background(), "ಅಮ್ಮ", DefaultSpeaker)
	require.NoError(t, err)
	assert.Equal(t, want, clip)
}

func TestCoquiClient_SynthesizeEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(audio.EncodeWAV(audio.Clip{SampleRate: 16000, Channels: 1}))
	}))
	defer server.Close()

	c, err := NewCoquiClient(server.URL, WithLanguage("en"))
	require.NoError(t, err)

	_, err = c.Synthesize(context.Background(), "x", "")
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestCoquiClient_SynthesizeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, err := NewCoquiClient(server.URL)
	require.NoError(t, err)

	_, err = c.Synthesize(context.Background(), "x", DefaultSpeaker)
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}

func TestCoquiClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c, err := NewCoquiClient(server.URL)
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))
}
