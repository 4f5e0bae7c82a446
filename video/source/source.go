package source

import (
	"errors"
	"image"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrEndOfStream is returned by Read once a file-backed source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
	// ErrReadFailed is returned by Read when a live source stops delivering frames.
	ErrReadFailed = errors.New("frame read failed")
)

// ColorOrder is the channel layout of a 3-channel Mat.
type ColorOrder int

const (
	// BGR is what capture, display and encoding use.
	BGR ColorOrder = iota
	// RGB is what the detector expects.
	RGB
)

func (o ColorOrder) String() string {
	if o == RGB {
		return "RGB"
	}
	return "BGR"
}

// Image is a frame plus the metadata the drivers carry along with it.
type Image struct {
	Mat  gocv.Mat
	Time time.Time
	// Index is the 1-based position of the frame in the stream. Zero for stills.
	Index int
	Order ColorOrder

	closed bool
}

func (i *Image) Close() {
	if i.closed {
		panic("image already closed")
	}
	i.closed = true
	i.Mat.Close()
}

func (i *Image) Clone() Image {
	n := Image{
		Mat:   gocv.NewMat(),
		Time:  i.Time,
		Index: i.Index,
		Order: i.Order,
	}
	i.Mat.CopyTo(&n.Mat)
	return n
}

// Size returns the frame dimensions as (cols, rows).
func (i *Image) Size() image.Point {
	return image.Point{X: i.Mat.Cols(), Y: i.Mat.Rows()}
}

func NewImage() Image {
	return Image{
		Mat:  gocv.NewMat(),
		Time: time.Now(),
	}
}

// Source defines a stream of images, such as a camera or a video file.
type Source interface {
	// Read fills img.Mat with the next frame in BGR order and stamps img.Time.
	// File-backed sources return ErrEndOfStream when exhausted; live sources
	// return ErrReadFailed.
	Read(img *Image) error

	// Size returns the size of the capture source.
	Size() image.Point

	// Live reports whether the source is a camera rather than a file.
	Live() bool

	// Close disconnects from the capture source and frees up all resources.
	Close() error
}
