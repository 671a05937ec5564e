package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefaultLogger(t *testing.T) {
	t.Helper()
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
}

func TestSetup_DiscardsWithoutDebug(t *testing.T) {
	restoreDefaultLogger(t)

	closer, err := Setup(Options{})
	require.NoError(t, err)
	require.NotNil(t, closer)
	require.NoError(t, closer.Close())

	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelError))
}

func TestSetup_WritesDebugFile(t *testing.T) {
	restoreDefaultLogger(t)

	path := filepath.Join(t.TempDir(), "debug.log")

	closer, err := Setup(Options{Debug: true, FilePath: path})
	require.NoError(t, err)

	slog.Debug("dispatch finished", "endpoint", "events")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "dispatch finished")
	assert.Contains(t, string(content), "endpoint=events")
}

func TestSetup_FallsBackWhenFileFails(t *testing.T) {
	restoreDefaultLogger(t)

	// a regular file where a directory is expected makes MkdirAll fail
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	var fallback bytes.Buffer
	closer, err := Setup(Options{Debug: true, FilePath: filepath.Join(blocker, "debug.log"), Fallback: &fallback})
	require.Error(t, err)
	require.NotNil(t, closer)

	slog.Debug("still logged")
	assert.Contains(t, fallback.String(), "still logged")
}
