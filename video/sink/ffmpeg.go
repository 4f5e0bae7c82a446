package sink

import (
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"sync"

	log "github.com/sirupsen/logrus"

	"effdet/video/source"
)

type FFmpegOptions struct {
	// Binary is the ffmpeg executable, resolved through $PATH if not absolute.
	Binary string
	Size   image.Point
	FPS    int
}

// FFmpegSink pipes raw BGR frames into an ffmpeg process that encodes them
// to an h264 file.
type FFmpegSink struct {
	path  string
	cmd   *exec.Cmd
	pipe  io.WriteCloser
	b     chan []byte
	close chan chan error

	err error
	l   sync.Mutex
}

func NewFFmpegSink(path string, opts FFmpegOptions) (*FFmpegSink, error) {
	c := exec.Command(
		opts.Binary,
		"-y",
		// Configure ffmpeg to read from the opencv pipe.
		"-f", "rawvideo",
		"-pixel_format", "bgr24",
		"-video_size", fmt.Sprintf("%dx%d", opts.Size.X, opts.Size.Y),
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-i", "-", // Read from stdin.
		// Use h264 encoding with reasonable quality and speed. Note that
		// "preset" can be adjusted if the system is too slow to handle encoding.
		"-c:v", "libx264",
		"-preset", "superfast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		path,
	)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	pipe, err := c.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	log.Infof("Encoding annotated video to %v", path)

	f := &FFmpegSink{
		path:  path,
		cmd:   c,
		pipe:  pipe,
		b:     make(chan []byte),
		close: make(chan chan error),
	}
	go f.loop()
	return f, nil
}

func (f *FFmpegSink) loop() {
	var closer chan error
loop:
	for {
		select {
		case closer = <-f.close:
			break loop
		case b := <-f.b:
			if f.failed() != nil {
				continue
			}
			if _, err := f.pipe.Write(b); err != nil {
				log.Errorf("Error writing to ffmpeg for %v: %v", f.path, err)
				f.setErr(err)
			}
		}
	}

	f.pipe.Close()
	log.Debugf("Waiting for ffmpeg shutdown")
	err := f.cmd.Wait()
	log.Infof("ffmpeg exit with status %v", err)
	if werr := f.failed(); werr != nil {
		err = werr
	}
	closer <- err
}

func (f *FFmpegSink) failed() error {
	f.l.Lock()
	defer f.l.Unlock()
	return f.err
}

func (f *FFmpegSink) setErr(err error) {
	f.l.Lock()
	defer f.l.Unlock()
	f.err = err
}

func (f *FFmpegSink) Put(input source.Image) error {
	if err := f.failed(); err != nil {
		return err
	}
	f.b <- input.Mat.ToBytes()
	return nil
}

func (f *FFmpegSink) Close() error {
	c := make(chan error)
	f.close <- c
	return <-c
}
