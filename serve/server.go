package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	log "github.com/sirupsen/logrus"

	"effdet/video/sink"
)

// Server hosts the live view, the stats socket and the metrics endpoint.
type Server struct {
	MJPEG   *sink.MJPEGServer
	Stats   *StatsUpdater
	Metrics *Metrics

	srv *http.Server
}

func NewServer(mjpeg *sink.MJPEGServer, stats *StatsUpdater, metrics *Metrics) *Server {
	return &Server{
		MJPEG:   mjpeg,
		Stats:   stats,
		Metrics: metrics,
	}
}

// Handler returns the routes wrapped with access logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mjpeg", s.MJPEG)
	mux.Handle("/stats", s.Stats)
	mux.Handle("/metrics", s.Metrics.Handler())

	var h http.Handler = mux
	h = handlers.LoggingHandler(log.StandardLogger().Writer(), h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(log.StandardLogger()), handlers.PrintRecoveryStack(true))(h)
	return h
}

// Start serves on port in the background.
func (s *Server) Start(port int) {
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	go func() {
		log.Infof("Hosting web frontend on port %d", port)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Web frontend stopped: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
