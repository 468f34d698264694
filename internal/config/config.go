// Package config loads the reel-splitter configuration. Values come from
// built-in defaults, an optional YAML file, an optional .env file and
// REELS_* environment variables, in that order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDataDir   = ".reels"
	DefaultFPS       = 30
	DefaultHTTPAddr  = "127.0.0.1:8790"
	DefaultPlatform  = "instagram-reel"
	DefaultFontFile  = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
	DBFilename       = "reels.db"
	DefaultEnvFile   = ".env"
	EnvPrefix        = "REELS_"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultProbeTimeout   = 30 * time.Second
	DefaultSegmentTimeout = 30 * time.Minute
	DefaultComposeTimeout = 600 * time.Second
	DefaultIngestTimeout  = 15 * time.Minute
)

const (
	DriverSQLite    = "sqlite"
	DriverPostgREST = "postgrest"
)

type Config struct {
	FFmpegPath  string `yaml:"ffmpeg_path" validate:"required"`
	FFprobePath string `yaml:"ffprobe_path" validate:"required"`
	YTDLPPath   string `yaml:"ytdlp_path" validate:"required"`

	DataDir   string `yaml:"data_dir" validate:"required"`
	OutputDir string `yaml:"output_dir" validate:"required"`
	FontFile  string `yaml:"font_file"`

	FPS                int    `yaml:"fps" validate:"min=1,max=120"`
	ChunkDuration      int    `yaml:"chunk_duration" validate:"min=1"`
	MinSegmentDuration int    `yaml:"min_segment_duration" validate:"min=0,ltefield=ChunkDuration"`
	Platform           string `yaml:"platform" validate:"required"`

	ProbeTimeout   time.Duration `yaml:"probe_timeout" validate:"gt=0"`
	SegmentTimeout time.Duration `yaml:"segment_timeout" validate:"gt=0"`
	ComposeTimeout time.Duration `yaml:"compose_timeout" validate:"gt=0"`
	IngestTimeout  time.Duration `yaml:"ingest_timeout" validate:"gt=0"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	Store StoreConfig `yaml:"store"`
	HTTP  HTTPConfig  `yaml:"http"`
}

type StoreConfig struct {
	Driver       string `yaml:"driver" validate:"oneof=sqlite postgrest"`
	SQLitePath   string `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	PostgRESTURL string `yaml:"postgrest_url" validate:"required_if=Driver postgrest"`
	PostgRESTKey string `yaml:"postgrest_key" validate:"required_if=Driver postgrest"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		FFmpegPath:         "ffmpeg",
		FFprobePath:        "ffprobe",
		YTDLPPath:          "yt-dlp",
		DataDir:            DefaultDataDir,
		OutputDir:          filepath.Join(DefaultDataDir, "output"),
		FontFile:           DefaultFontFile,
		FPS:                DefaultFPS,
		ChunkDuration:      30,
		MinSegmentDuration: 10,
		Platform:           DefaultPlatform,
		ProbeTimeout:       DefaultProbeTimeout,
		SegmentTimeout:     DefaultSegmentTimeout,
		ComposeTimeout:     DefaultComposeTimeout,
		IngestTimeout:      DefaultIngestTimeout,
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
		Store: StoreConfig{
			Driver:     DriverSQLite,
			SQLitePath: filepath.Join(DefaultDataDir, DBFilename),
		},
		HTTP: HTTPConfig{Addr: DefaultHTTPAddr},
	}
}

// Load builds a Config. path may be empty, in which case only defaults,
// the .env file in the working directory and the environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	// godotenv never overrides variables already set in the environment.
	if _, err := os.Stat(DefaultEnvFile); err == nil {
		if err := godotenv.Load(DefaultEnvFile); err != nil {
			return nil, errors.Wrap(err, "load .env")
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the struct tags and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Namespace()+" failed on "+fe.Tag())
	}
	return errors.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

type envVar struct {
	name  string
	apply func(c *Config, v string) error
}

func stringVar(name string, field func(c *Config) *string) envVar {
	return envVar{name, func(c *Config, v string) error {
		*field(c) = v
		return nil
	}}
}

func intVar(name string, field func(c *Config) *int) envVar {
	return envVar{name, func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s%s", EnvPrefix, name)
		}
		*field(c) = n
		return nil
	}}
}

func durationVar(name string, field func(c *Config) *time.Duration) envVar {
	return envVar{name, func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s%s", EnvPrefix, name)
		}
		*field(c) = d
		return nil
	}}
}

var envVars = []envVar{
	stringVar("FFMPEG_PATH", func(c *Config) *string { return &c.FFmpegPath }),
	stringVar("FFPROBE_PATH", func(c *Config) *string { return &c.FFprobePath }),
	stringVar("YTDLP_PATH", func(c *Config) *string { return &c.YTDLPPath }),
	stringVar("DATA_DIR", func(c *Config) *string { return &c.DataDir }),
	stringVar("OUTPUT_DIR", func(c *Config) *string { return &c.OutputDir }),
	stringVar("FONT_FILE", func(c *Config) *string { return &c.FontFile }),
	intVar("FPS", func(c *Config) *int { return &c.FPS }),
	intVar("CHUNK_DURATION", func(c *Config) *int { return &c.ChunkDuration }),
	intVar("MIN_SEGMENT_DURATION", func(c *Config) *int { return &c.MinSegmentDuration }),
	stringVar("PLATFORM", func(c *Config) *string { return &c.Platform }),
	durationVar("PROBE_TIMEOUT", func(c *Config) *time.Duration { return &c.ProbeTimeout }),
	durationVar("SEGMENT_TIMEOUT", func(c *Config) *time.Duration { return &c.SegmentTimeout }),
	durationVar("COMPOSE_TIMEOUT", func(c *Config) *time.Duration { return &c.ComposeTimeout }),
	durationVar("INGEST_TIMEOUT", func(c *Config) *time.Duration { return &c.IngestTimeout }),
	stringVar("LOG_LEVEL", func(c *Config) *string { return &c.LogLevel }),
	stringVar("LOG_FORMAT", func(c *Config) *string { return &c.LogFormat }),
	stringVar("STORE_DRIVER", func(c *Config) *string { return &c.Store.Driver }),
	stringVar("SQLITE_PATH", func(c *Config) *string { return &c.Store.SQLitePath }),
	stringVar("POSTGREST_URL", func(c *Config) *string { return &c.Store.PostgRESTURL }),
	stringVar("POSTGREST_KEY", func(c *Config) *string { return &c.Store.PostgRESTKey }),
	stringVar("HTTP_ADDR", func(c *Config) *string { return &c.HTTP.Addr }),
}

func (c *Config) applyEnv() error {
	for _, ev := range envVars {
		v, ok := os.LookupEnv(EnvPrefix + ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.apply(c, v); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDirs creates the data and output directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	if c.Store.Driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(c.Store.SQLitePath), 0o755); err != nil {
			return errors.Wrap(err, "create database directory")
		}
	}
	return nil
}
