// SPDX-License-Identifier: EPL-2.0

// Package config loads settings from defaults, an optional YAML file, a .env
// file and AUDCLIP_* environment variables, in increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ik5/audclip/formats/ffmpeg"
	"github.com/ik5/audclip/logger"
	"github.com/ik5/audclip/recording"
	"github.com/ik5/audclip/storage"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment variable the package reads.
const EnvPrefix = "AUDCLIP_"

// ErrInvalid indicates settings that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

type FFmpeg struct {
	Path      string `yaml:"path"`
	ProbePath string `yaml:"probe_path"`
	Bitrate   string `yaml:"bitrate"`
}

type Storage struct {
	// Dir holds clips and work files.
	Dir string `yaml:"dir"`
}

type Recording struct {
	MaxDuration   time.Duration `yaml:"max_duration"`
	LevelInterval time.Duration `yaml:"level_interval"`
}

// Levels selects the default sizing policy. A zero Width means one bin per
// tenth of a second.
type Levels struct {
	Width   float64 `yaml:"width"`
	Spacing float64 `yaml:"spacing"`
}

// Redis enables the shared level cache when Addr is set.
type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Metrics serves prometheus collectors when Addr is set.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Config is the complete set of settings.
type Config struct {
	Log       logger.Config  `yaml:"log"`
	FFmpeg    FFmpeg         `yaml:"ffmpeg"`
	Workers   int            `yaml:"workers"`
	Storage   Storage        `yaml:"storage"`
	Recording Recording      `yaml:"recording"`
	Levels    Levels         `yaml:"levels"`
	Redis     Redis          `yaml:"redis"`
	MinIO     storage.Config `yaml:"minio"`
	Metrics   Metrics        `yaml:"metrics"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: logger.Config{
			Level:      logger.InfoLevel,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
		FFmpeg: FFmpeg{
			Path:    "ffmpeg",
			Bitrate: ffmpeg.DefaultBitrate,
		},
		Storage: Storage{Dir: "clips"},
		Recording: Recording{
			MaxDuration:   recording.DefaultMaxDuration,
			LevelInterval: recording.DefaultLevelInterval,
		},
		Redis: Redis{Prefix: "audclip:levels", TTL: 24 * time.Hour},
		MinIO: storage.Config{Prefix: storage.DefaultPrefix},
	}
}

// Load builds the configuration. path names an optional YAML file; envFiles
// are .env files loaded into the environment without overriding variables
// that are already set. Missing .env files are skipped.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type envBinding struct {
	key string
	set func(string) error
}

func str(dst *string) func(string) error {
	return func(v string) error { *dst = v; return nil }
}

func integer(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func duration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

func boolean(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func float(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func (c *Config) bindings() []envBinding {
	return []envBinding{
		{"LOG_LEVEL", func(v string) error { c.Log.Level = logger.LogLevel(strings.ToLower(v)); return nil }},
		{"LOG_FILE", str(&c.Log.OutputPath)},
		{"FFMPEG_PATH", str(&c.FFmpeg.Path)},
		{"FFPROBE_PATH", str(&c.FFmpeg.ProbePath)},
		{"AUDIO_BITRATE", str(&c.FFmpeg.Bitrate)},
		{"WORKERS", integer(&c.Workers)},
		{"STORAGE_DIR", str(&c.Storage.Dir)},
		{"RECORDING_MAX_DURATION", duration(&c.Recording.MaxDuration)},
		{"RECORDING_LEVEL_INTERVAL", duration(&c.Recording.LevelInterval)},
		{"LEVELS_WIDTH", float(&c.Levels.Width)},
		{"LEVELS_SPACING", float(&c.Levels.Spacing)},
		{"REDIS_ADDR", str(&c.Redis.Addr)},
		{"REDIS_PASSWORD", str(&c.Redis.Password)},
		{"REDIS_DB", integer(&c.Redis.DB)},
		{"REDIS_PREFIX", str(&c.Redis.Prefix)},
		{"REDIS_TTL", duration(&c.Redis.TTL)},
		{"MINIO_ENDPOINT", str(&c.MinIO.Endpoint)},
		{"MINIO_ACCESS_KEY", str(&c.MinIO.AccessKey)},
		{"MINIO_SECRET_KEY", str(&c.MinIO.SecretKey)},
		{"MINIO_BUCKET", str(&c.MinIO.Bucket)},
		{"MINIO_REGION", str(&c.MinIO.Region)},
		{"MINIO_USE_SSL", boolean(&c.MinIO.UseSSL)},
		{"MINIO_PREFIX", str(&c.MinIO.Prefix)},
		{"METRICS_ADDR", str(&c.Metrics.Addr)},
	}
}

func (c *Config) applyEnv() error {
	for _, b := range c.bindings() {
		v, ok := os.LookupEnv(EnvPrefix + b.key)
		if !ok {
			continue
		}
		if err := b.set(v); err != nil {
			return fmt.Errorf("%w: %s%s=%q: %w", ErrInvalid, EnvPrefix, b.key, v, err)
		}
	}
	return nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.Log.Level {
	case logger.DebugLevel, logger.InfoLevel, logger.WarnLevel, logger.ErrorLevel:
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalid, c.Workers)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("%w: empty storage dir", ErrInvalid)
	}
	if c.Recording.MaxDuration <= 0 || c.Recording.LevelInterval <= 0 {
		return fmt.Errorf("%w: recording durations must be positive", ErrInvalid)
	}
	if c.Recording.LevelInterval > c.Recording.MaxDuration {
		return fmt.Errorf("%w: level interval %s exceeds max duration %s",
			ErrInvalid, c.Recording.LevelInterval, c.Recording.MaxDuration)
	}
	if c.Levels.Width < 0 || c.Levels.Spacing < 0 {
		return fmt.Errorf("%w: negative level sizing", ErrInvalid)
	}
	return nil
}
