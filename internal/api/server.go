package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ZacxDev/reel-splitter/internal/composer"
	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/ZacxDev/reel-splitter/internal/pipeline"
	"github.com/ZacxDev/reel-splitter/internal/store"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
	log        *logrus.Entry
}

type ServerConfig struct {
	Addr         string
	Store        store.Store
	Orchestrator *pipeline.Orchestrator
	Runner       *pipeline.Runner
	Composer     *composer.Composer
	// OutputDir is the root reels are rendered under.
	OutputDir string
	// OutputFormat is the container extension of rendered reels, without the dot.
	OutputFormat string
	Logger       logrus.FieldLogger
	StartTime    time.Time
}

func NewServer(cfg ServerConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 15 * time.Second,
			// renders are synchronous and can take minutes
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		log: logging.WithComponent(cfg.Logger, "http"),
	}
}

func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("starting HTTP server")
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
