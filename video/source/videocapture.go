package source

import (
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"

	"github.com/pillash/mp4util"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// VideoCapture reads frames from a camera index or a video file through
// OpenCV.
type VideoCapture struct {
	URI string

	cap    *gocv.VideoCapture
	live   bool
	size   image.Point
	closed bool
}

// IsCameraURI reports whether uri names a camera device index.
func IsCameraURI(uri string) bool {
	_, err := strconv.Atoi(uri)
	return err == nil
}

func NewVideoCapture(uri string) (*VideoCapture, error) {
	v := &VideoCapture{URI: uri}

	var err error
	if id, perr := strconv.Atoi(uri); perr == nil {
		v.live = true
		v.cap, err = gocv.OpenVideoCapture(id)
	} else {
		v.cap, err = gocv.VideoCaptureFile(uri)
	}
	if err != nil {
		return nil, fmt.Errorf("open capture %v: %w", uri, err)
	}
	if !v.cap.IsOpened() {
		v.cap.Close()
		return nil, fmt.Errorf("open capture %v: not opened", uri)
	}

	v.size = image.Point{
		X: int(v.cap.Get(gocv.VideoCaptureFrameWidth)),
		Y: int(v.cap.Get(gocv.VideoCaptureFrameHeight)),
	}
	clog := log.WithField("uri", uri)
	clog.Infof("Opened capture %dx%d at %.2f FPS (live=%v)", v.size.X, v.size.Y, v.cap.Get(gocv.VideoCaptureFPS), v.live)
	if !v.live && strings.HasSuffix(strings.ToLower(uri), ".mp4") {
		if sec, err := mp4util.Duration(uri); err == nil {
			clog.Infof("Video duration %v, %d frames", time.Duration(sec)*time.Second, int(v.cap.Get(gocv.VideoCaptureFrameCount)))
		} else {
			clog.Debugf("Unable to probe mp4 duration: %v", err)
		}
	}
	return v, nil
}

func (v *VideoCapture) Read(img *Image) error {
	img.Time = time.Now()
	img.Order = BGR
	if ok := v.cap.Read(&img.Mat); !ok || img.Mat.Empty() {
		if v.live {
			return fmt.Errorf("%v: %w", v.URI, ErrReadFailed)
		}
		return ErrEndOfStream
	}
	return nil
}

func (v *VideoCapture) Size() image.Point {
	return v.size
}

func (v *VideoCapture) Live() bool {
	return v.live
}

func (v *VideoCapture) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	log.WithField("uri", v.URI).Infof("Releasing capture")
	return v.cap.Close()
}
