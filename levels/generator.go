// SPDX-License-Identifier: EPL-2.0

package levels

import (
	"context"
	"time"

	"github.com/ik5/audclip/asset"
	"github.com/ik5/audclip/internal/metrics"
	"github.com/ik5/audclip/logger"
	"github.com/ik5/audclip/pcm"
	"go.uber.org/zap"
)

// Opener opens path as a block stream.
type Opener func(ctx context.Context, path string) (BlockSource, error)

// BlockSource is a BlockReader that must be closed.
type BlockSource interface {
	BlockReader
	Close() error
}

// Generator produces cached LevelData for assets.
type Generator struct {
	open  Opener
	cache Cache
	log   *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithCache sets the result cache. Nil disables caching.
func WithCache(c Cache) GeneratorOption {
	return func(g *Generator) { g.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.log = l }
}

// WithOpener replaces the decoder front end.
func WithOpener(o Opener) GeneratorOption {
	return func(g *Generator) { g.open = o }
}

// WithPCMOptions opens files with pcm.Open and opts.
func WithPCMOptions(opts ...pcm.Option) GeneratorOption {
	return func(g *Generator) {
		g.open = func(ctx context.Context, path string) (BlockSource, error) {
			return pcm.Open(ctx, path, opts...)
		}
	}
}

// NewGenerator uses pcm.Open and a MemoryCache unless told otherwise.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{cache: NewMemoryCache()}
	WithPCMOptions()(g)
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.L()
	}
	return g
}

// Generate returns the waveform of a under policy. It never fails: a file
// that cannot be decoded yields empty LevelData, which is logged and not
// cached.
func (g *Generator) Generate(ctx context.Context, a asset.Asset, policy Policy) LevelData {
	version := a.CacheKey() + "#" + policy.String()
	log := g.log.With(zap.String("asset", a.ID), zap.String("path", a.Path), zap.Stringer("policy", policy))

	if g.cache != nil {
		d, ok, err := g.cache.Get(ctx, a.ID, version)
		if err != nil {
			log.Warn("level cache read failed", zap.Error(err))
		}
		if ok {
			metrics.LevelsCached()
			return d
		}
	}

	start := time.Now()
	d, err := g.extract(ctx, a.Path, policy)
	metrics.LevelsExtracted(start, err)
	if err != nil {
		log.Warn("level extraction failed, returning empty levels", zap.Error(err))
		return LevelData{}
	}
	log.Debug("levels extracted", zap.Int("bins", d.Len()), zap.Duration("took", time.Since(start)))

	if g.cache != nil {
		if err := g.cache.Set(ctx, a.ID, version, d); err != nil {
			log.Warn("level cache write failed", zap.Error(err))
		}
	}
	return d
}

func (g *Generator) extract(ctx context.Context, path string, policy Policy) (LevelData, error) {
	r, err := g.open(ctx, path)
	if err != nil {
		return LevelData{}, err
	}
	defer r.Close()

	return Extract(r, policy)
}

// Invalidate drops every cached version of the asset with id. Call it when
// the asset's path changes.
func (g *Generator) Invalidate(ctx context.Context, id string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Invalidate(ctx, id); err != nil {
		g.log.Warn("level cache invalidation failed", zap.String("asset", id), zap.Error(err))
	}
}
