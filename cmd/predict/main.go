// Command predict runs the detector over a single image, shows the result and
// saves it next to the input.
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"effdet/config"
	"effdet/video"
	"effdet/video/process"
	"effdet/video/sink"
)

var (
	configPath = flag.String("config", "", "Path to a JSON or YAML configuration file.")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	} else {
		log.Warnf("Ignoring log level %q: %v", cfg.LogLevel, err)
	}

	path := cfg.ImagePath
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	if err := run(cfg, path); err != nil {
		if errors.Is(err, video.ErrOpen) {
			// The user has already been told.
			os.Exit(1)
		}
		log.Fatalf("Prediction failed: %v", err)
	}
}

func run(cfg *config.Config, path string) error {
	det, err := process.NewDNNDetector(cfg.Detector)
	if err != nil {
		return err
	}
	defer det.Close()

	var display sink.Display = sink.Headless{}
	if !cfg.Headless {
		display = sink.NewWindow(cfg.WindowName)
	}
	defer display.Close()

	return video.NewStill(det, display, cfg.ImageOutputPath, cfg.HoldDisplay).Run(path)
}
