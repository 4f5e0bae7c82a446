package config

import (
	"image"
	"image/color"
)

// Config holds every tunable of the two drivers. Fields absent from a loaded
// file keep their Default() value.
type Config struct {
	// ImagePath is the still image read by the single-image driver.
	ImagePath string `json:"ImagePath" yaml:"image_path"`
	// ImageOutputPath receives the annotated still image.
	ImageOutputPath string `json:"ImageOutputPath" yaml:"image_output_path"`
	// HoldDisplay keeps the still image on screen until a key is pressed.
	HoldDisplay bool `json:"HoldDisplay" yaml:"hold_display"`

	// URI is the capture source, either a camera index ("0") or a video file.
	URI string `json:"URI" yaml:"uri"`
	// OutputDir receives one numbered JPEG per processed frame.
	OutputDir string `json:"OutputDir" yaml:"output_dir"`
	OutputExt string `json:"OutputExt" yaml:"output_ext"`

	// If non-empty, annotated frames are also encoded to this video file.
	OutputVideo    string `json:"OutputVideo" yaml:"output_video"`
	OutputVideoFPS int    `json:"OutputVideoFPS" yaml:"output_video_fps"`
	FFmpegPath     string `json:"FFmpegPath" yaml:"ffmpeg_path"`

	WindowName string `json:"WindowName" yaml:"window_name"`
	Headless   bool   `json:"Headless" yaml:"headless"`
	ExitKey    int    `json:"ExitKey" yaml:"exit_key"`
	KeyDelayMs int    `json:"KeyDelayMs" yaml:"key_delay_ms"`

	Overlay  TextStyle      `json:"Overlay" yaml:"overlay"`
	Detector DetectorConfig `json:"Detector" yaml:"detector"`

	// HTTPPort hosts /mjpeg, /stats and /metrics. Zero disables the server.
	HTTPPort int    `json:"HTTPPort" yaml:"http_port"`
	LogLevel string `json:"LogLevel" yaml:"log_level"`
}

// TextStyle describes the FPS readout drawn on every video frame.
type TextStyle struct {
	X         int     `json:"X" yaml:"x"`
	Y         int     `json:"Y" yaml:"y"`
	Scale     float64 `json:"Scale" yaml:"scale"`
	Thickness int     `json:"Thickness" yaml:"thickness"`
	// Color is R, G, B.
	Color [3]uint8 `json:"Color" yaml:"color"`
}

func (s TextStyle) Origin() image.Point {
	return image.Point{X: s.X, Y: s.Y}
}

func (s TextStyle) RGBA() color.RGBA {
	return color.RGBA{R: s.Color[0], G: s.Color[1], B: s.Color[2], A: 255}
}

type DetectorConfig struct {
	Model       string `json:"Model" yaml:"model"`
	ModelConfig string `json:"ModelConfig" yaml:"model_config"`
	ClassesPath string `json:"ClassesPath" yaml:"classes_path"`

	InputWidth  int        `json:"InputWidth" yaml:"input_width"`
	InputHeight int        `json:"InputHeight" yaml:"input_height"`
	Scale       float64    `json:"Scale" yaml:"scale"`
	Mean        [3]float64 `json:"Mean" yaml:"mean"`

	Confidence   float32 `json:"Confidence" yaml:"confidence"`
	NMSThreshold float32 `json:"NMSThreshold" yaml:"nms_threshold"`

	Backend string `json:"Backend" yaml:"backend"`
	Target  string `json:"Target" yaml:"target"`
}

// Default mirrors the constants the drivers have always used.
func Default() *Config {
	return &Config{
		ImagePath:       "./img/street.jpg",
		ImageOutputPath: "./img/street_r.jpg",
		HoldDisplay:     true,

		URI:       "kids.mp4",
		OutputDir: "./output",
		OutputExt: ".jpg",

		OutputVideoFPS: 15,
		FFmpegPath:     "ffmpeg",

		WindowName: "video",
		ExitKey:    27,
		KeyDelayMs: 30,

		Overlay: TextStyle{
			X:         0,
			Y:         40,
			Scale:     1,
			Thickness: 2,
			Color:     [3]uint8{0, 255, 0},
		},
		Detector: DetectorConfig{
			Model:        "model_data/efficientdet-d0.pb",
			ModelConfig:  "model_data/efficientdet-d0.pbtxt",
			InputWidth:   512,
			InputHeight:  512,
			Scale:        1.0,
			Confidence:   0.4,
			NMSThreshold: 0.3,
			Backend:      "default",
			Target:       "cpu",
		},

		LogLevel: "info",
	}
}
