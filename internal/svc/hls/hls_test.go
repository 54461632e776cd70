package hls

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brook/internal/config"
	"brook/internal/core/bus"
)

func TestTranscodeArgs(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Port = 8000
	svc := &Service{cfg: cfg}

	args := svc.transcodeArgs("live", "stream", "/var/media/live/stream")
	assert.Equal(t, "-y", args[0])
	assert.Contains(t, args, "http://127.0.0.1:8000/live/stream.flv")
	assert.Contains(t, args, "libx264")
	assert.Contains(t, args, "delete_segments")
	assert.Equal(t, filepath.Join("/var/media/live/stream", "index.m3u8"), args[len(args)-1])
}

func TestClearCacheRemovesSegments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"index.m3u8", "seg0.ts", "seg1.ts", "poster.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	clearCache(dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "poster.jpg", entries[0].Name())
}

func TestMissingFFmpegFailsFast(t *testing.T) {
	cfg := config.Default()
	cfg.FFmpeg = "definitely-not-a-real-binary-name"
	_, err := New(cfg, bus.NewSessionTable())
	assert.Error(t, err)
}
