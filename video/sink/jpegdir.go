package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"effdet/video/source"

	"gocv.io/x/gocv"
)

// JPEGDir writes each frame to <Dir>/<Index><Ext>.
type JPEGDir struct {
	Dir string
	Ext string
}

func NewJPEGDir(dir, ext string) (*JPEGDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if ext == "" {
		ext = ".jpg"
	}
	return &JPEGDir{
		Dir: dir,
		Ext: ext,
	}, nil
}

// Path returns the file a frame with the given index is written to.
func (d *JPEGDir) Path(index int) string {
	return filepath.Join(d.Dir, fmt.Sprintf("%d%s", index, d.Ext))
}

func (d *JPEGDir) Put(input source.Image) error {
	if input.Index <= 0 {
		return fmt.Errorf("frame index %d is not positive", input.Index)
	}
	path := d.Path(input.Index)
	if ok := gocv.IMWrite(path, input.Mat); !ok {
		return fmt.Errorf("failed to write %v", path)
	}
	return nil
}

func (d *JPEGDir) Close() error {
	return nil
}
