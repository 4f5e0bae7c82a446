package sink

import (
	"effdet/video/source"
)

// Sink defines a destination for a stream of images, such as a video file or
// a directory of stills.
type Sink interface {
	// Put inserts an image to the sink. The caller *must not* modify this image
	// and it should not hold any references to the underlying Mat.
	Put(input source.Image) error

	// Close should be called to finalize the Sink.
	Close() error
}

// Display is a live view of the stream that can also be polled for key
// presses.
type Display interface {
	Show(input source.Image)

	// WaitKey waits up to delayMs for a key press and returns its code, or -1
	// when no key was pressed.
	WaitKey(delayMs int) int

	Close() error
}
