package process

import (
	"fmt"

	"effdet/video/source"

	"gocv.io/x/gocv"
)

// Convert rewrites img in place so its channels are in the requested order.
// It is a no-op when the image is already in that order. img.Order only
// changes when the conversion succeeds.
func Convert(img *source.Image, order source.ColorOrder) error {
	if img.Order == order {
		return nil
	}
	code := gocv.ColorBGRToRGB
	if order == source.BGR {
		code = gocv.ColorRGBToBGR
	}
	if err := gocv.CvtColor(img.Mat, &img.Mat, code); err != nil {
		return fmt.Errorf("convert %v to %v: %w", img.Order, order, err)
	}
	img.Order = order
	return nil
}

// ToRGB prepares a captured frame for the detector.
func ToRGB(img *source.Image) error {
	return Convert(img, source.RGB)
}

// ToBGR prepares a detector result for display and encoding.
func ToBGR(img *source.Image) error {
	return Convert(img, source.BGR)
}
