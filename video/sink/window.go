package sink

import (
	"time"

	"effdet/video/source"

	"gocv.io/x/gocv"
)

// Window shows frames in a HighGUI window.
type Window struct {
	window  *gocv.Window
	sizeSet bool
}

func NewWindow(name string) *Window {
	return &Window{
		window: gocv.NewWindow(name),
	}
}

func (w *Window) Show(input source.Image) {
	if !w.sizeSet {
		w.window.ResizeWindow(input.Mat.Cols(), input.Mat.Rows())
		w.sizeSet = true
	}
	w.window.IMShow(input.Mat)
}

func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

func (w *Window) Close() error {
	return w.window.Close()
}

// Headless stands in for a window on machines without a display. It never
// reports a key press, but still paces the loop like a real key poll.
type Headless struct{}

func (Headless) Show(source.Image) {}

func (Headless) WaitKey(delayMs int) int {
	if delayMs > 0 {
		time.Sleep(time.Duration(delayMs) * time.Millisecond)
	}
	return -1
}

func (Headless) Close() error {
	return nil
}

// Mirror shows every frame on a Display and also publishes it to an MJPEG
// stream. Key polling and closing go to the Display.
type Mirror struct {
	Display
	Stream *MJPEGStream
}

func (m *Mirror) Show(input source.Image) {
	m.Display.Show(input)
	m.Stream.Put(input)
}
