package source

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func writePNG(t *testing.T, path string, img image.Image) {
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestOpenStillIsRGB(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.NRGBA{R: 200, G: 100, B: 10, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "still.png")
	writePNG(t, path, src)

	img, err := OpenStill(path)
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, RGB, img.Order)
	assert.Equal(t, image.Point{X: 4, Y: 3}, img.Size())
	assert.Equal(t, gocv.MatTypeCV8UC3, img.Mat.Type())
	b := img.Mat.ToBytes()
	assert.Equal(t, []byte{200, 100, 10}, b[:3])
}

func TestOpenStillMissing(t *testing.T) {
	_, err := OpenStill(filepath.Join(t.TempDir(), "nope.jpg"))
	assert.Error(t, err)
}

func TestOpenStillNotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text.jpg")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a jpeg"), 0644))
	_, err := OpenStill(path)
	assert.Error(t, err)
}

func TestIsCameraURI(t *testing.T) {
	assert.True(t, IsCameraURI("0"))
	assert.True(t, IsCameraURI("12"))
	assert.False(t, IsCameraURI("kids.mp4"))
	assert.False(t, IsCameraURI("rtsp://cam/1"))
}

func TestImageClone(t *testing.T) {
	m, err := gocv.NewMatFromBytes(1, 2, gocv.MatTypeCV8UC3, []byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	i := Image{Mat: m, Index: 7, Order: RGB}
	c := i.Clone()
	i.Close()
	defer c.Close()

	assert.Equal(t, 7, c.Index)
	assert.Equal(t, RGB, c.Order)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, c.Mat.ToBytes())
	assert.Panics(t, func() { i.Close() })
}

func TestMissingCaptureFile(t *testing.T) {
	_, err := NewVideoCapture(filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}
