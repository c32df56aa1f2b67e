package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "tmp")

		s, err := NewLocalStorage(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, s.TempDir())

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		s, err := NewLocalStorage("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(os.TempDir(), "nudiguru"), s.TempDir())
	})
}

func TestLocalStorage_SaveAndCleanup(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := s.SaveTemp(ctx, "upload", strings.NewReader("RIFF"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "upload_"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))

	require.NoError(t, s.CleanupTemp(ctx, []string{path, "", filepath.Join(s.TempDir(), "absent")}))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_SaveTempCancelled(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.SaveTemp(ctx, "upload", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStorage_CleanupAfterCancel(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path, err := s.SaveTemp(context.Background(), "upload", strings.NewReader("x"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.CleanupTemp(ctx, []string{path}))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalObjectStore(t *testing.T) {
	store, err := NewLocalObjectStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "w01.wav")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, store.Put(ctx, "w01.wav", []byte("first")))
	require.NoError(t, store.Put(ctx, "w01.wav", []byte("second")))
	require.NoError(t, store.Put(ctx, "w02.wav", []byte("other")))

	data, err := store.Get(ctx, "w01.wav")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLocalObjectStore_InvalidKey(t *testing.T) {
	store, err := NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape.wav", "a/b.wav", ".hidden"} {
		_, err := store.Get(context.Background(), key)
		assert.Error(t, err, key)
		assert.Error(t, store.Put(context.Background(), key, []byte("x")), key)
	}
}

func TestNewLocalObjectStore_EmptyDir(t *testing.T) {
	_, err := NewLocalObjectStore("")
	assert.Error(t, err)
}
