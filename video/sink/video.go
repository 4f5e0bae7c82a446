package sink

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"effdet/video/source"
)

// Video provides a sink that wraps opencv's VideoWriter. It is the fallback
// when no ffmpeg binary is available; the default codec settings are slower
// and produce larger files than the ffmpeg sink.
type Video struct {
	writer *gocv.VideoWriter
}

func NewVideo(path string, fps int, size image.Point) (*Video, error) {
	w, err := gocv.VideoWriterFile(path, "mp4v", float64(fps), size.X, size.Y, true)
	if err != nil {
		return nil, err
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("video writer for %v not opened", path)
	}
	return &Video{
		writer: w,
	}, nil
}

func (v *Video) Close() error {
	return v.writer.Close()
}

func (v *Video) Put(input source.Image) error {
	return v.writer.Write(input.Mat)
}
