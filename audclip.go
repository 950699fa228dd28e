// SPDX-License-Identifier: EPL-2.0

package audclip

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/ik5/audclip/compose"
	"github.com/ik5/audclip/config"
	"github.com/ik5/audclip/formats/ffmpeg"
	"github.com/ik5/audclip/internal/worker"
	"github.com/ik5/audclip/levels"
	"github.com/ik5/audclip/logger"
	"github.com/ik5/audclip/pcm"
	"github.com/ik5/audclip/recording"
	"github.com/ik5/audclip/session"
	"github.com/ik5/audclip/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Kit is the audio pipeline wired from one configuration. The zero value is
// not usable; call New.
type Kit struct {
	Config   config.Config
	Codec    *ffmpeg.Codec
	Composer *compose.Composer
	// Levels is shared by every consumer so cached waveforms are reused.
	Levels *levels.Generator

	log   *zap.Logger
	pool  *worker.Pool
	redis *redis.Client
}

// Option configures a Kit.
type Option func(*Kit)

// WithLogger sets the logger handed to every component.
func WithLogger(l *zap.Logger) Option {
	return func(k *Kit) { k.log = l }
}

// WithRedis uses client for the level cache instead of dialing
// cfg.Redis.Addr. The Kit does not close it.
func WithRedis(client *redis.Client) Option {
	return func(k *Kit) { k.redis = client }
}

// New builds the pipeline. Redis backs the level cache when an address is
// configured, otherwise levels are cached in memory.
func New(cfg config.Config, opts ...Option) *Kit {
	k := &Kit{Config: cfg}
	for _, opt := range opts {
		opt(k)
	}
	if k.log == nil {
		k.log = logger.L()
	}

	k.Codec = ffmpeg.New(cfg.FFmpeg.Path,
		ffmpeg.WithBitrate(cfg.FFmpeg.Bitrate),
		ffmpeg.WithProbePath(cfg.FFmpeg.ProbePath),
	)
	k.Composer = compose.New(
		compose.WithCodec(k.Codec),
		compose.WithPCMOptions(k.PCMOptions()...),
		compose.WithLogger(k.log),
	)

	ownRedis := false
	if k.redis == nil && cfg.Redis.Addr != "" {
		k.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ownRedis = true
	}
	genOpts := []levels.GeneratorOption{
		levels.WithLogger(k.log),
		levels.WithPCMOptions(k.PCMOptions()...),
	}
	if k.redis != nil {
		genOpts = append(genOpts, levels.WithCache(levels.NewRedisCache(k.redis, cfg.Redis.Prefix, cfg.Redis.TTL)))
	}
	if !ownRedis {
		k.redis = nil
	}
	k.Levels = levels.NewGenerator(genOpts...)
	k.pool = worker.NewPool(cfg.Workers)
	return k
}

// PCMOptions decode every supported container, using ffmpeg for the MPEG-4
// family.
func (k *Kit) PCMOptions() []pcm.Option {
	return []pcm.Option{pcm.WithRegistry(pcm.DefaultRegistry(k.Codec))}
}

// Policy is the configured level sizing.
func (k *Kit) Policy() levels.Policy {
	return PolicyFor(k.Config.Levels)
}

// PolicyFor returns FitToWidth when a width is set and FitToDuration
// otherwise. A missing spacing counts as one pixel.
func PolicyFor(l config.Levels) levels.Policy {
	if l.Width <= 0 {
		return levels.FitToDuration{}
	}
	spacing := l.Spacing
	if spacing <= 0 {
		spacing = 1
	}
	return levels.FitToWidth{Width: l.Width, Spacing: spacing}
}

// Sessions returns an edit session manager rendering previews on the Kit's
// worker pool. Close the manager before closing the Kit.
func (k *Kit) Sessions(opts ...session.Option) *session.Manager {
	base := []session.Option{
		session.WithPool(k.pool),
		session.WithLevels(k.Levels),
		session.WithPolicy(k.Policy()),
		session.WithLogger(k.log),
	}
	return session.NewManager(k.Composer, append(base, opts...)...)
}

// Recorder returns a recorder finalizing takes through the Kit's composer.
func (k *Kit) Recorder(opts ...recording.Option) *recording.Recorder {
	base := []recording.Option{
		recording.WithMaxDuration(k.Config.Recording.MaxDuration),
		recording.WithLevelInterval(k.Config.Recording.LevelInterval),
		recording.WithLogger(k.log),
	}
	return recording.NewRecorder(k.Composer, append(base, opts...)...)
}

// Store connects to the configured MinIO bucket.
func (k *Kit) Store(opts ...storage.Option) (*storage.MinioStore, error) {
	return storage.NewMinio(k.Config.MinIO, append([]storage.Option{storage.WithLogger(k.log)}, opts...)...)
}

// Close waits for queued previews and releases the redis client the Kit
// opened.
func (k *Kit) Close() error {
	k.pool.Close()

	var errs *multierror.Error
	if k.redis != nil {
		if err := k.redis.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	return errs.ErrorOrNil()
}
