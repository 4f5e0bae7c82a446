package sink

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"effdet/video/source"
)

func solid(t *testing.T, index int, v float64) source.Image {
	m := gocv.NewMatWithSizeWithScalar(8, 8, gocv.MatTypeCV8UC3, gocv.NewScalar(v, v, v, 0))
	return source.Image{Mat: m, Index: index, Order: source.BGR}
}

func TestJPEGDirNamesFramesByIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	d, err := NewJPEGDir(dir, "")
	require.NoError(t, err)
	defer d.Close()

	for i := 1; i <= 3; i++ {
		img := solid(t, i, float64(i*40))
		require.NoError(t, d.Put(img))
		img.Close()
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"1.jpg", "2.jpg", "3.jpg"}, names)

	back := gocv.IMRead(d.Path(2), gocv.IMReadColor)
	defer back.Close()
	assert.Equal(t, 8, back.Rows())
	assert.Equal(t, 8, back.Cols())
}

func TestJPEGDirRejectsZeroIndex(t *testing.T) {
	d, err := NewJPEGDir(t.TempDir(), ".png")
	require.NoError(t, err)
	img := solid(t, 0, 0)
	defer img.Close()
	assert.Error(t, d.Put(img))
	assert.Equal(t, filepath.Join(d.Dir, "4.png"), d.Path(4))
}

type recorded struct {
	index int
	at    time.Time
	value uint8
}

type recordSink struct {
	got    []recorded
	closed bool
}

func (r *recordSink) Put(input source.Image) error {
	r.got = append(r.got, recorded{
		index: input.Index,
		at:    input.Time,
		value: input.Mat.ToBytes()[0],
	})
	return nil
}

func (r *recordSink) Close() error {
	r.closed = true
	return nil
}

func TestFPSNormalize(t *testing.T) {
	rec := &recordSink{}
	n := NewFPSNormalize(rec, 10)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	put := func(index int, offset time.Duration, v float64) {
		img := solid(t, index, v)
		img.Time = start.Add(offset)
		require.NoError(t, n.Put(img))
		img.Close()
	}

	put(1, 0, 10)
	// Too early for the next 100ms slot.
	put(2, 50*time.Millisecond, 20)
	put(3, 110*time.Millisecond, 30)
	// Skips two slots; the last written frame is repeated for the gap.
	put(4, 330*time.Millisecond, 40)

	require.NoError(t, n.Close())
	assert.True(t, rec.closed)

	require.Len(t, rec.got, 4)
	assert.Equal(t, []uint8{10, 30, 30, 40}, []uint8{rec.got[0].value, rec.got[1].value, rec.got[2].value, rec.got[3].value})
	for i, r := range rec.got {
		assert.Equal(t, start.Add(time.Duration(i)*100*time.Millisecond), r.at)
	}
	assert.Equal(t, 4, rec.got[3].index)
}

func TestHeadless(t *testing.T) {
	var h Headless
	img := solid(t, 1, 0)
	defer img.Close()
	h.Show(img)
	assert.Equal(t, -1, h.WaitKey(1))
	assert.NoError(t, h.Close())
}

type countDisplay struct {
	Headless
	shown int
}

func (c *countDisplay) Show(source.Image) { c.shown++ }

func TestMirrorShowsOnDisplay(t *testing.T) {
	srv := NewMJPEGServer()
	stream, err := srv.NewStream("video")
	require.NoError(t, err)
	defer stream.Close()

	d := &countDisplay{}
	m := &Mirror{Display: d, Stream: stream}
	img := solid(t, 1, 0)
	defer img.Close()

	m.Show(img)
	m.Show(img)
	assert.Equal(t, 2, d.shown)
	assert.Equal(t, -1, m.WaitKey(0))
}

func TestMJPEGServerRejectsBadRequests(t *testing.T) {
	srv := NewMJPEGServer()
	stream, err := srv.NewStream("video")
	require.NoError(t, err)

	_, err = srv.NewStream("video")
	assert.Error(t, err)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mjpeg", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mjpeg?name=other", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	stream.Close()
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mjpeg?name=video", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMJPEGStreamDeliversFrames(t *testing.T) {
	srv := NewMJPEGServer()
	stream, err := srv.NewStream("video")
	require.NoError(t, err)
	defer stream.Close()

	c := stream.subscribe()
	defer stream.unsubscribe(c)

	img := solid(t, 1, 128)
	defer img.Close()
	stream.Put(img)

	select {
	case b := <-c:
		assert.Contains(t, string(b[:80]), "Content-Type: image/jpeg")
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}
}
