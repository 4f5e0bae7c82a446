package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, "kids.mp4", c.URI)
	assert.Equal(t, "./output", c.OutputDir)
	assert.Equal(t, 27, c.ExitKey)
	assert.Equal(t, 30, c.KeyDelayMs)
	assert.Equal(t, 40, c.Overlay.Origin().Y)
	assert.Equal(t, uint8(255), c.Overlay.RGBA().G)
	assert.Equal(t, uint8(0), c.Overlay.RGBA().R)
}

func TestFromFileJSONKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "effdet.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"URI": "0", "HoldDisplay": false}`), 0644))

	c, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0", c.URI)
	assert.False(t, c.HoldDisplay)
	assert.Equal(t, "./output", c.OutputDir)
	assert.Equal(t, float64(1), c.Overlay.Scale)
}

func TestFromFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "effdet.yaml")
	body := "output_dir: /tmp/frames\noverlay:\n  thickness: 3\n  color: [255, 0, 0]\ndetector:\n  confidence: 0.6\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	c, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/frames", c.OutputDir)
	assert.Equal(t, 3, c.Overlay.Thickness)
	assert.Equal(t, [3]uint8{255, 0, 0}, c.Overlay.Color)
	assert.Equal(t, float32(0.6), c.Detector.Confidence)
	assert.Equal(t, "kids.mp4", c.URI)
}

func TestFromFileErrors(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))
	_, err = FromFile(path)
	assert.Error(t, err)
}

func TestLoadReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "effdet.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"OutputDir": "a"}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 16)
	OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})

	c, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "a", c.OutputDir)
	assert.Equal(t, "a", Get().OutputDir)

	// The watcher goroutine needs a moment to register before the write.
	var got *Config
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"OutputDir": "b"}`), 0644)
		select {
		case got = <-changed:
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "b", got.OutputDir)
	assert.Equal(t, "b", Get().OutputDir)
}

func TestLoadWithoutPath(t *testing.T) {
	c, err := Load(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, c)
}
