package main

import (
	"path/filepath"

	"github.com/ZacxDev/reel-splitter/internal/composer"
	"github.com/ZacxDev/reel-splitter/internal/config"
	"github.com/ZacxDev/reel-splitter/internal/ffmpeg"
	"github.com/ZacxDev/reel-splitter/internal/ingest"
	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/ZacxDev/reel-splitter/internal/pipeline"
	"github.com/ZacxDev/reel-splitter/internal/platform"
	"github.com/ZacxDev/reel-splitter/internal/processor"
	"github.com/ZacxDev/reel-splitter/internal/store"
	"github.com/ZacxDev/reel-splitter/internal/textlayout"
	"github.com/ZacxDev/reel-splitter/pkg/videoprocessor"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// app holds the wired components the pipeline commands share.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    store.Store
	platform platform.Platform
	orch     *pipeline.Orchestrator
	composer *composer.Composer
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func tools(cfg *config.Config) videoprocessor.Tools {
	return videoprocessor.Tools{
		FFmpegPath:   cfg.FFmpegPath,
		FFprobePath:  cfg.FFprobePath,
		ProbeTimeout: cfg.ProbeTimeout,
	}
}

func newApp() (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	p, err := platform.Get(cfg.Platform)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	engine := ffmpeg.NewProcessor(ffmpeg.Config{
		FFmpegPath:     cfg.FFmpegPath,
		FFprobePath:    cfg.FFprobePath,
		ProbeTimeout:   cfg.ProbeTimeout,
		DefaultTimeout: cfg.SegmentTimeout,
	}, log)

	splitter, err := processor.NewSplitter(engine, processor.Config{
		ChunkDuration: cfg.ChunkDuration,
		MinDuration:   cfg.MinSegmentDuration,
		FPS:           cfg.FPS,
		Platform:      p,
	}, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	ingester := &ingest.Router{
		Local:  ingest.NewLocal(engine),
		Remote: ingest.NewYTDLP(cfg.YTDLPPath, filepath.Join(cfg.DataDir, "downloads"), cfg.IngestTimeout, log),
	}

	orch := pipeline.NewOrchestrator(st, ingester, splitter, pipeline.Config{
		OutputDir:      cfg.OutputDir,
		IngestTimeout:  cfg.IngestTimeout,
		SegmentTimeout: cfg.SegmentTimeout,
	}, log)

	comp := composer.New(
		composer.NewPlanner(textlayout.New(cfg.FontFile), cfg.FPS),
		composer.NewExecutor(engine, platform.Encoding(p, cfg.FPS), cfg.ComposeTimeout, log),
		log,
	)

	return &app{cfg: cfg, log: log, store: st, platform: p, orch: orch, composer: comp}, nil
}

func openStore(cfg *config.Config, log logrus.FieldLogger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgREST:
		return store.OpenPostgREST(cfg.Store.PostgRESTURL, cfg.Store.PostgRESTKey, log)
	case config.DriverSQLite, "":
		return store.OpenSQLite(cfg.Store.SQLitePath, log)
	}
	return nil, errors.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close store")
	}
}
