package source

import (
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	// Extra decoders for imaging.Open.
	_ "golang.org/x/image/webp"
)

// OpenStill decodes the image at path, honouring EXIF orientation, into an
// RGB-ordered Image.
func OpenStill(path string) (Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, err
	}
	m, err := MatFromImage(img)
	if err != nil {
		return Image{}, fmt.Errorf("convert %v: %w", path, err)
	}
	return Image{
		Mat:   m,
		Time:  time.Now(),
		Order: RGB,
	}, nil
}

// MatFromImage copies img into a CV_8UC3 Mat with channels in RGB order.
// Alpha is dropped.
func MatFromImage(img image.Image) (gocv.Mat, error) {
	n := imaging.Clone(img)
	w, h := n.Rect.Dx(), n.Rect.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}
	data := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := n.Pix[y*n.Stride : y*n.Stride+w*4]
		for x := 0; x < w; x++ {
			data = append(data, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, data)
}
