package serve

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"effdet/video"
	"effdet/video/sink"
)

func TestMetricsFrameDone(t *testing.T) {
	m := NewMetrics()
	m.FrameDone(video.FrameStats{Frame: 1, FPS: 4.5, Detect: 20 * time.Millisecond, Written: 2})
	m.FrameDone(video.FrameStats{Frame: 2, FPS: 6.25, Detect: 30 * time.Millisecond, Written: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.frames))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.written))
	assert.Equal(t, 6.25, testutil.ToFloat64(m.fps))
	assert.Equal(t, 4, testutil.CollectAndCount(m.Registry))
}

func newTestServer(t *testing.T) (*httptest.Server, *StatsUpdater) {
	mjpeg := sink.NewMJPEGServer()
	stream, err := mjpeg.NewStream("video")
	require.NoError(t, err)
	t.Cleanup(stream.Close)

	stats := NewStatsUpdater()
	t.Cleanup(stats.Close)

	s := NewServer(mjpeg, stats, NewMetrics())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, stats
}

func TestServerRoutes(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "effdet_frames_processed_total")

	resp, err = http.Get(ts.URL + "/mjpeg")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/mjpeg?name=nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsSocket(t *testing.T) {
	ts, stats := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stats"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	// The client registers asynchronously, so keep publishing until one lands.
	done := make(chan bool)
	defer close(done)
	go func() {
		tick := time.NewTicker(10 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				stats.FrameDone(video.FrameStats{RunID: "abc", Frame: 7, FPS: 3.5})
			}
		}
	}()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got video.FrameStats
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, "abc", got.RunID)
	assert.Equal(t, 7, got.Frame)
	assert.Equal(t, 3.5, got.FPS)
}
