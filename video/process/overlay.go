package process

import (
	"fmt"
	"sync"

	"effdet/config"
	"effdet/video/source"

	"gocv.io/x/gocv"
)

// FPSOverlay draws the frame rate readout onto frames. The style can be
// swapped while a stream is running.
type FPSOverlay struct {
	style config.TextStyle
	l     sync.Mutex
}

func NewFPSOverlay(style config.TextStyle) *FPSOverlay {
	return &FPSOverlay{style: style}
}

func (o *FPSOverlay) SetStyle(style config.TextStyle) {
	o.l.Lock()
	defer o.l.Unlock()
	o.style = style
}

func (o *FPSOverlay) Style() config.TextStyle {
	o.l.Lock()
	defer o.l.Unlock()
	return o.style
}

// Draw renders the readout for fps onto img. Colors are RGB regardless of the
// image's channel order; img is expected to be BGR, as it is right before
// encoding.
func (o *FPSOverlay) Draw(img *source.Image, fps float64) error {
	s := o.Style()
	c := s.RGBA()
	if img.Order == source.RGB {
		c.R, c.B = c.B, c.R
	}
	if err := gocv.PutText(&img.Mat, FormatFPS(fps), s.Origin(), gocv.FontHersheySimplex, s.Scale, c, s.Thickness); err != nil {
		return fmt.Errorf("draw fps: %w", err)
	}
	return nil
}
