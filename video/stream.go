package video

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"effdet/config"
	"effdet/util"
	"effdet/video/process"
	"effdet/video/sink"
	"effdet/video/source"
)

var (
	// ErrOpen is returned when the input image cannot be opened or decoded.
	ErrOpen = errors.New("open error")
	// ErrDimensionMismatch is returned when the detector hands back a frame of
	// a different size than it was given.
	ErrDimensionMismatch = errors.New("detector changed frame dimensions")
)

// FrameStats describes one processed frame of a Stream.
type FrameStats struct {
	RunID   string        `json:"run_id"`
	Frame   int           `json:"frame"`
	FPS     float64       `json:"fps"`
	Detect  time.Duration `json:"detect_ns"`
	Written int           `json:"written"`
	Time    time.Time     `json:"time"`
}

// FrameObserver is notified after every frame a Stream finishes.
type FrameObserver interface {
	FrameDone(stats FrameStats)
}

type StreamOptions struct {
	// ExitKey stops the stream when returned by the display's key poll.
	ExitKey int
	// KeyDelayMs is how long each key poll waits.
	KeyDelayMs int
	// RunID is stamped on every FrameStats.
	RunID string
}

func DefaultStreamOptions() StreamOptions {
	c := config.Default()
	return StreamOptions{
		ExitKey:    c.ExitKey,
		KeyDelayMs: c.KeyDelayMs,
	}
}

// Stream runs frames from a Source through the Detector and out to the
// Display and Sinks, one frame at a time.
type Stream struct {
	Source   source.Source
	Detector process.Detector
	Display  sink.Display
	// Sinks receive every annotated BGR frame before it is displayed.
	Sinks     []sink.Sink
	Overlay   *process.FPSOverlay
	Observers []FrameObserver

	opts     StreamOptions
	meter    process.FPSMeter
	stop     *util.Event
	finished *util.Event
	now      func() time.Time
}

func NewStream(src source.Source, det process.Detector, display sink.Display, opts StreamOptions) *Stream {
	return &Stream{
		Source:   src,
		Detector: det,
		Display:  display,
		Overlay:  process.NewFPSOverlay(config.Default().Overlay),
		opts:     opts,
		stop:     util.NewEvent(),
		finished: util.NewEvent(),
		now:      time.Now,
	}
}

// Stop asks Run to return before reading the next frame.
func (s *Stream) Stop() {
	s.stop.Notify()
}

// Done is closed once Run has returned.
func (s *Stream) Done() <-chan struct{} {
	return s.finished.Done()
}

// FPS returns the current smoothed frame rate.
func (s *Stream) FPS() float64 {
	return s.meter.FPS()
}

// Run processes frames until the exit key is pressed, the source ends, Stop
// is called, or an error occurs. The source is closed before Run returns.
func (s *Stream) Run() (err error) {
	defer s.finished.Notify()
	defer func() {
		if cerr := s.Source.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("release source: %w", cerr)
		}
	}()

	img := source.NewImage()
	defer img.Close()

	i := 0
	for {
		if s.stop.HasBeenNotified() {
			log.Info("Stream stopped")
			return nil
		}
		i++
		t1 := s.now()

		if err := s.Source.Read(&img); err != nil {
			if errors.Is(err, source.ErrEndOfStream) {
				log.WithField("frame", i).Info("End of stream")
				return nil
			}
			return fmt.Errorf("frame %d: %w", i, err)
		}
		img.Index = i

		detect, err := s.detect(&img)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}

		fps := s.meter.Update(s.now().Sub(t1))
		log.WithField("frame", i).Info(process.FormatFPS(fps))

		if s.Overlay != nil {
			if err := s.Overlay.Draw(&img, fps); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
		}

		written := 0
		for _, sk := range s.Sinks {
			if err := sk.Put(img); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			written++
		}

		s.Display.Show(img)

		stats := FrameStats{
			RunID:   s.opts.RunID,
			Frame:   i,
			FPS:     fps,
			Detect:  detect,
			Written: written,
			Time:    img.Time,
		}
		for _, o := range s.Observers {
			o.FrameDone(stats)
		}

		if key := s.Display.WaitKey(s.opts.KeyDelayMs); key >= 0 && key&0xff == s.opts.ExitKey {
			log.WithField("frame", i).Info("Exit key pressed")
			return nil
		}
	}
}

// detect converts a BGR frame for the detector, swaps in the annotated
// result and converts it back to BGR.
func (s *Stream) detect(img *source.Image) (time.Duration, error) {
	if err := process.ToRGB(img); err != nil {
		return 0, err
	}

	start := s.now()
	out, err := s.Detector.DetectImage(img.Mat)
	if err != nil {
		out.Close()
		return 0, fmt.Errorf("detect: %w", err)
	}
	elapsed := s.now().Sub(start)

	if err := checkSize(img, out.Cols(), out.Rows()); err != nil {
		out.Close()
		return 0, err
	}
	img.Mat.Close()
	img.Mat = out

	if err := process.ToBGR(img); err != nil {
		return 0, err
	}
	return elapsed, nil
}

func checkSize(img *source.Image, cols, rows int) error {
	if want := img.Size(); want.X != cols || want.Y != rows {
		return fmt.Errorf("got %dx%d, want %dx%d: %w", cols, rows, want.X, want.Y, ErrDimensionMismatch)
	}
	return nil
}
