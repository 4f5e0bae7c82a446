package process

import (
	"fmt"
	"time"
)

// FPSMeter keeps the rolling frame rate estimate. Each update averages the
// previous estimate with the instantaneous rate of the latest frame.
type FPSMeter struct {
	fps float64
}

// Update folds in the time spent on one frame and returns the new estimate.
// A non-positive elapsed time leaves the estimate unchanged.
func (m *FPSMeter) Update(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return m.fps
	}
	m.fps = (m.fps + 1/elapsed.Seconds()) / 2
	return m.fps
}

func (m *FPSMeter) FPS() float64 {
	return m.fps
}

// FormatFPS renders the readout used both on the console and on frames.
func FormatFPS(fps float64) string {
	return fmt.Sprintf("fps= %.2f", fps)
}
