package process

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"effdet/config"
)

// Detector is the detection capability shared by both drivers. DetectImage
// takes an RGB frame and returns a new RGB frame of the same size with the
// detections drawn onto it. The caller owns the returned Mat, which must be
// valid to Close even when an error is returned.
type Detector interface {
	DetectImage(img gocv.Mat) (gocv.Mat, error)
}

// Detection is one decoded box, in pixel coordinates of the input frame.
type Detection struct {
	ClassID    int
	Class      string
	Confidence float32
	Box        image.Rectangle
}

type Detections []Detection

func (d Detections) Sorted() Detections {
	ss := append(Detections{}, d...)
	sort.SliceStable(ss, func(i, j int) bool {
		return ss[i].Confidence > ss[j].Confidence
	})
	return ss
}

func (d Detections) DebugString() string {
	var ds []string
	for _, kv := range d.Sorted() {
		ds = append(ds, fmt.Sprintf("%s: %.2f", kv.Class, kv.Confidence))
	}
	return strings.Join(ds, ", ")
}

// DNNDetector runs an exported detection network through the OpenCV dnn
// module. The network must produce SSD-style "detection_out" rows of
// (image_id, class, score, x1, y1, x2, y2) with normalised coordinates, which
// is what OpenCV emits for EfficientDet and SSD graphs.
type DNNDetector struct {
	opts    config.DetectorConfig
	classes []string

	net gocv.Net
	// gocv.Net is not safe for concurrent Forward calls.
	l sync.Mutex
}

func NewDNNDetector(opts config.DetectorConfig) (*DNNDetector, error) {
	classes := cocoClasses
	if opts.ClassesPath != "" {
		var err error
		if classes, err = ReadClasses(opts.ClassesPath); err != nil {
			return nil, fmt.Errorf("read classes: %w", err)
		}
	}

	net := gocv.ReadNet(opts.Model, opts.ModelConfig)
	if net.Empty() {
		return nil, fmt.Errorf("failed to read network from %v", opts.Model)
	}
	if err := net.SetPreferableBackend(gocv.ParseNetBackend(opts.Backend)); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend %v: %w", opts.Backend, err)
	}
	if err := net.SetPreferableTarget(gocv.ParseNetTarget(opts.Target)); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target %v: %w", opts.Target, err)
	}
	log.Infof("Loaded detector %v (%d classes, input %dx%d)", opts.Model, len(classes), opts.InputWidth, opts.InputHeight)

	return &DNNDetector{
		opts:    opts,
		classes: classes,
		net:     net,
	}, nil
}

func (d *DNNDetector) Close() error {
	d.l.Lock()
	defer d.l.Unlock()
	return d.net.Close()
}

// Detect runs the network on an RGB frame and returns the boxes that survive
// the confidence threshold and non-maximum suppression.
func (d *DNNDetector) Detect(img gocv.Mat) (Detections, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty input image")
	}
	start := time.Now()
	defer func() {
		log.Debugf("Detector ran in %v", time.Since(start))
	}()

	size := image.Point{X: d.opts.InputWidth, Y: d.opts.InputHeight}
	mean := gocv.NewScalar(d.opts.Mean[0], d.opts.Mean[1], d.opts.Mean[2], 0)
	// Input is already RGB; no channel swap.
	blob := gocv.BlobFromImage(img, d.opts.Scale, size, mean, false, false)
	defer blob.Close()

	d.l.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.l.Unlock()
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read detector output: %w", err)
	}
	dets := ParseDetections(data, img.Cols(), img.Rows(), d.opts.Confidence, d.classes)
	dets = Suppress(dets, d.opts.Confidence, d.opts.NMSThreshold)
	for _, det := range dets {
		log.Debugf("Detection of %s at %v, confidence %.2f", det.Class, det.Box, det.Confidence)
	}
	return dets, nil
}

func (d *DNNDetector) DetectImage(img gocv.Mat) (gocv.Mat, error) {
	dets, err := d.Detect(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	out := img.Clone()
	if err := Draw(&out, dets); err != nil {
		out.Close()
		return gocv.NewMat(), err
	}
	return out, nil
}

// ParseDetections decodes rows of 7 floats into pixel-space detections for a
// width x height frame, dropping rows below minConf. Boxes are clipped to the
// frame.
func ParseDetections(data []float32, width, height int, minConf float32, classes []string) Detections {
	var out Detections
	frame := image.Rect(0, 0, width, height)
	for r := 0; r+7 <= len(data); r += 7 {
		row := data[r : r+7]
		conf := row[2]
		if conf < minConf {
			continue
		}
		id := int(row[1])
		box := image.Rect(
			int(row[3]*float32(width)),
			int(row[4]*float32(height)),
			int(row[5]*float32(width)),
			int(row[6]*float32(height)),
		).Intersect(frame)
		if box.Empty() {
			continue
		}
		out = append(out, Detection{
			ClassID:    id,
			Class:      className(classes, id),
			Confidence: conf,
			Box:        box,
		})
	}
	return out
}

// Suppress applies per-class non-maximum suppression.
func Suppress(dets Detections, minConf, nmsThresh float32) Detections {
	if len(dets) == 0 || nmsThresh <= 0 {
		return dets
	}
	byClass := make(map[int]Detections)
	var order []int
	for _, d := range dets {
		if _, ok := byClass[d.ClassID]; !ok {
			order = append(order, d.ClassID)
		}
		byClass[d.ClassID] = append(byClass[d.ClassID], d)
	}
	var out Detections
	for _, id := range order {
		group := byClass[id]
		boxes := make([]image.Rectangle, len(group))
		scores := make([]float32, len(group))
		for i, d := range group {
			boxes[i] = d.Box
			scores[i] = d.Confidence
		}
		for _, idx := range gocv.NMSBoxes(boxes, scores, minConf, nmsThresh) {
			out = append(out, group[idx])
		}
	}
	return out.Sorted()
}

var (
	colorLabel = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// Draw renders boxes and "class score" captions onto an RGB Mat.
func Draw(img *gocv.Mat, dets Detections) error {
	font := gocv.FontHersheySimplex
	scale := 0.5
	thickness := 1
	pad := 2

	for _, d := range dets {
		c := classColor(d.ClassID)
		if err := gocv.Rectangle(img, d.Box, c, 2); err != nil {
			return fmt.Errorf("draw box: %w", err)
		}

		text := fmt.Sprintf("%s %.2f", d.Class, d.Confidence)
		sz := gocv.GetTextSize(text, font, scale, thickness)
		top := d.Box.Min.Y - sz.Y - pad*2
		if top < 0 {
			top = d.Box.Min.Y
		}
		bg := image.Rect(d.Box.Min.X, top, d.Box.Min.X+sz.X+pad*2, top+sz.Y+pad*2)
		if err := gocv.Rectangle(img, bg, c, -1); err != nil {
			return fmt.Errorf("draw caption: %w", err)
		}
		if err := gocv.PutText(img, text, image.Point{X: bg.Min.X + pad, Y: bg.Max.Y - pad}, font, scale, colorLabel, thickness); err != nil {
			return fmt.Errorf("draw caption: %w", err)
		}
	}
	return nil
}

// classColor picks a stable, bright color per class. The Mat is RGB, so the
// R and B fields are swapped relative to what gocv assumes.
func classColor(id int) color.RGBA {
	h := uint32(id+1) * 2654435761
	r, g, b := uint8(h>>16)|0x40, uint8(h>>8)|0x40, uint8(h)|0x40
	return color.RGBA{R: b, G: g, B: r, A: 255}
}

func className(classes []string, id int) string {
	if id >= 0 && id < len(classes) && classes[id] != "" {
		return classes[id]
	}
	return fmt.Sprintf("class%d", id)
}

// ReadClasses loads one class name per line, skipping blank lines. Line i
// names class id i, so lists for 1-based models start with a background line.
func ReadClasses(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, l := range strings.Split(string(b), "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no classes in %v", path)
	}
	return lines, nil
}

// COCO labels indexed by the 1-based ids TensorFlow detection exports emit.
// Id 0 is background; empty entries are ids the label map leaves unused.
var cocoClasses = []string{
	"background", "person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck",
	"boat", "traffic light", "fire hydrant", "", "stop sign", "parking meter", "bench", "bird",
	"cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "",
	"backpack", "umbrella", "", "", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard",
	"sports ball", "kite", "baseball bat", "baseball glove", "skateboard", "surfboard",
	"tennis racket", "bottle", "", "wine glass", "cup", "fork", "knife", "spoon", "bowl",
	"banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "", "dining table", "", "", "toilet", "",
	"tv", "laptop", "mouse", "remote", "keyboard", "cell phone", "microwave", "oven", "toaster",
	"sink", "refrigerator", "", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}
