package video

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"effdet/video/process"
	"effdet/video/sink"
	"effdet/video/source"
)

// openErrorMessage is what the user sees when the input image is unusable.
const openErrorMessage = "Open Error! Try again!"

// Still runs the detector once over a single image, shows the result and
// saves it.
type Still struct {
	Detector process.Detector
	Display  sink.Display
	// OutputPath is where the annotated image is saved. Empty skips the save.
	OutputPath string
	// Hold keeps the display up until a key is pressed.
	Hold bool

	open func(path string) (source.Image, error)
	out  io.Writer
}

func NewStill(det process.Detector, display sink.Display, outputPath string, hold bool) *Still {
	return &Still{
		Detector:   det,
		Display:    display,
		OutputPath: outputPath,
		Hold:       hold,
		open:       source.OpenStill,
		out:        os.Stdout,
	}
}

func (s *Still) Run(path string) error {
	img, err := s.open(path)
	if err != nil {
		fmt.Fprintln(s.out, openErrorMessage)
		log.Debugf("Failed to open %v: %v", path, err)
		return fmt.Errorf("%v: %w", path, ErrOpen)
	}
	defer img.Close()

	// Stills decode as RGB already; this is a no-op unless a loader says otherwise.
	if err := process.ToRGB(&img); err != nil {
		return err
	}

	out, err := s.Detector.DetectImage(img.Mat)
	if err != nil {
		out.Close()
		return fmt.Errorf("detect: %w", err)
	}
	res := source.Image{Mat: out, Time: img.Time, Order: source.RGB}
	defer res.Close()
	if err := checkSize(&img, out.Cols(), out.Rows()); err != nil {
		return err
	}

	if err := process.ToBGR(&res); err != nil {
		return err
	}
	s.Display.Show(res)

	if s.OutputPath != "" {
		if err := save(s.OutputPath, res); err != nil {
			return err
		}
		log.Infof("Saved result to %v", s.OutputPath)
	}

	if s.Hold {
		log.Info("Press any key in the window to exit")
		s.Display.WaitKey(0)
	}
	return nil
}

func save(path string, img source.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if ok := gocv.IMWrite(path, img.Mat); !ok {
		return fmt.Errorf("failed to write %v", path)
	}
	return nil
}
