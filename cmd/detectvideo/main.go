// Command detectvideo runs the detector over every frame of a video file or
// camera, writing the annotated frames to disk while showing them live.
package main

import (
	"context"
	"flag"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"effdet/config"
	"effdet/serve"
	"effdet/util"
	"effdet/video"
	"effdet/video/process"
	"effdet/video/sink"
	"effdet/video/source"
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

	uri := cfg.URI
	if flag.NArg() > 0 {
		uri = flag.Arg(0)
	}

	if err := run(cfg, uri); err != nil {
		log.Fatalf("Detection stopped: %v", err)
	}
}

func run(cfg *config.Config, uri string) error {
	det, err := process.NewDNNDetector(cfg.Detector)
	if err != nil {
		return err
	}
	defer det.Close()

	// Released by the stream when it finishes.
	capture, err := source.NewVideoCapture(uri)
	if err != nil {
		return err
	}

	jpegs, err := sink.NewJPEGDir(cfg.OutputDir, cfg.OutputExt)
	if err != nil {
		capture.Close()
		return err
	}
	sinks := []sink.Sink{jpegs}
	if cfg.OutputVideo != "" {
		vs, err := newVideoSink(cfg, capture.Size())
		if err != nil {
			capture.Close()
			return err
		}
		sinks = append(sinks, vs)
	}
	defer func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				log.Errorf("Failed to finalize output: %v", err)
			}
		}
	}()

	var display sink.Display = sink.Headless{}
	if !cfg.Headless {
		display = sink.NewWindow(cfg.WindowName)
	}
	defer display.Close()

	runID := uuid.New().String()
	var observers []video.FrameObserver

	if cfg.HTTPPort > 0 {
		mjpeg := sink.NewMJPEGServer()
		live, err := mjpeg.NewStream("video")
		if err != nil {
			capture.Close()
			return err
		}
		defer live.Close()
		display = &sink.Mirror{Display: display, Stream: live}

		stats := serve.NewStatsUpdater()
		defer stats.Close()
		metrics := serve.NewMetrics()
		observers = append(observers, metrics, stats)

		server := serve.NewServer(mjpeg, stats, metrics)
		server.Start(cfg.HTTPPort)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				log.Errorf("Web frontend shutdown: %v", err)
			}
		}()
	}

	stream := video.NewStream(capture, det, display, video.StreamOptions{
		ExitKey:    cfg.ExitKey,
		KeyDelayMs: cfg.KeyDelayMs,
		RunID:      runID,
	})
	stream.Sinks = sinks
	stream.Observers = observers
	stream.Overlay.SetStyle(cfg.Overlay)
	config.OnChange(func(c *config.Config) {
		stream.Overlay.SetStyle(c.Overlay)
		log.Info("Overlay style updated")
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Infof("Caught signal %v", sig)
			stream.Stop()
		case <-stream.Done():
		}
	}()

	log.WithField("run", runID).Infof("Processing %v into %v", uri, cfg.OutputDir)
	return stream.Run()
}

// newVideoSink prefers ffmpeg for h264 output and falls back to OpenCV's
// writer. Either way the stream is normalised to a fixed frame rate.
func newVideoSink(cfg *config.Config, size image.Point) (sink.Sink, error) {
	fps := cfg.OutputVideoFPS
	if fps <= 0 {
		fps = config.Default().OutputVideoFPS
	}

	bin, err := util.LocateFFmpeg(cfg.FFmpegPath)
	if err != nil {
		log.Warnf("Unable to locate ffmpeg binary (%v), using OpenCV writer for %v", err, cfg.OutputVideo)
		v, err := sink.NewVideo(cfg.OutputVideo, fps, size)
		if err != nil {
			return nil, err
		}
		return sink.NewFPSNormalize(v, fps), nil
	}
	log.Infof("Located ffmpeg binary, %v", bin)

	f, err := sink.NewFFmpegSink(cfg.OutputVideo, sink.FFmpegOptions{
		Binary: bin,
		Size:   size,
		FPS:    fps,
	})
	if err != nil {
		return nil, err
	}
	// Ensure video is output with constant FPS.
	return sink.NewFPSNormalize(f, fps), nil
}
