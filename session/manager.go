// SPDX-License-Identifier: EPL-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ik5/audclip/asset"
	"github.com/ik5/audclip/compose"
	"github.com/ik5/audclip/internal/metrics"
	"github.com/ik5/audclip/internal/worker"
	"github.com/ik5/audclip/levels"
	"github.com/ik5/audclip/logger"
	"github.com/ik5/audclip/notify"
	"go.uber.org/zap"
)

// Renderer produces edited files.
type Renderer interface {
	Apply(ctx context.Context, src string, plan compose.Plan, dst string) (compose.Output, error)
}

// LevelSource produces waveform levels for committed clips.
type LevelSource interface {
	Generate(ctx context.Context, a asset.Asset, policy levels.Policy) levels.LevelData
	Invalidate(ctx context.Context, id string)
}

// Manager runs edit sessions, at most one per asset. Previews render on a
// worker pool; only the newest preview of a session is ever staged.
type Manager struct {
	renderer Renderer
	levels   LevelSource
	preview  *levels.Generator
	policy   levels.Policy
	pool     *worker.Pool
	ownPool  bool
	hub      *notify.Hub[Event]
	log      *zap.Logger

	mtx       sync.Mutex
	sessions  map[string]*editSession
	closed    bool
	resolvers sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithPool runs previews on p instead of a private pool.
func WithPool(p *worker.Pool) Option {
	return func(m *Manager) { m.pool = p }
}

// WithLevels sets where committed clips get their levels from.
func WithLevels(src LevelSource) Option {
	return func(m *Manager) { m.levels = src }
}

// WithPolicy sets the level sizing used for previews and commits.
func WithPolicy(p levels.Policy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a Manager rendering through r.
func NewManager(r Renderer, opts ...Option) *Manager {
	m := &Manager{
		renderer: r,
		policy:   levels.FitToDuration{},
		hub:      notify.NewHub[Event](),
		sessions: make(map[string]*editSession),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.L()
	}
	if m.pool == nil {
		m.pool = worker.NewPool(0)
		m.ownPool = true
	}
	if m.levels == nil {
		m.levels = levels.NewGenerator(levels.WithLogger(m.log))
	}
	m.preview = levels.NewGenerator(levels.WithCache(nil), levels.WithLogger(m.log))
	return m
}

// Subscribe registers fn for every session event. Events of one session
// arrive in order. Call the returned function to unsubscribe.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.hub.Subscribe(fn)
}

func (m *Manager) publish(e Event) {
	m.log.Debug("session event",
		zap.Stringer("kind", e.Kind),
		zap.String("asset_id", e.AssetID),
		zap.Uint64("generation", e.Generation),
		zap.Error(e.Err),
	)
	m.hub.Publish(e)
}

// StartCrop opens a crop session on a.
func (m *Manager) StartCrop(a asset.Asset) (Session, error) {
	return m.start(a, ModeCrop)
}

// StartCut opens a cut session on a.
func (m *Manager) StartCut(a asset.Asset) (Session, error) {
	return m.start(a, ModeCut)
}

func (m *Manager) start(a asset.Asset, mode Mode) (Session, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.closed {
		return Session{}, ErrManagerClosed
	}
	if _, ok := m.sessions[a.ID]; ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionActive, a.ID)
	}

	working := a.WithPath(asset.StagingPath(a.Dir(), a.ID, a.Ext()), a.Duration)
	if err := copyFile(a.Path, working.Path); err != nil {
		return Session{}, &FileSystemError{Op: "copy", Path: working.Path, Err: err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &editSession{
		original: a,
		working:  working,
		mode:     mode,
		state:    StateEditing,
		ctx:      ctx,
		cancel:   cancel,
		temps:    map[string]struct{}{working.Path: {}},
	}
	m.sessions[a.ID] = s

	m.publish(Event{Kind: kindOf(mode, started), AssetID: a.ID, Mode: mode, Asset: a})
	return s.snapshot(), nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

// lookup returns the open session of id in mode. The session is returned
// locked.
func (m *Manager) lookup(id string, mode Mode) (*editSession, error) {
	m.mtx.Lock()
	s, ok := m.sessions[id]
	m.mtx.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, id)
	}

	s.mtx.Lock()
	if s.resolving {
		s.mtx.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrResolving, id)
	}
	if mode != 0 && s.mode != mode {
		s.mtx.Unlock()
		return nil, fmt.Errorf("%w: %s session on %s", ErrWrongMode, s.mode, id)
	}
	return s, nil
}

// AdjustCrop requests a crop preview keeping [start, end) of the clip. It
// returns once the render is queued; the outcome arrives as CropStaged or
// PreviewFailed.
func (m *Manager) AdjustCrop(id string, start, end time.Duration) (uint64, error) {
	s, err := m.lookup(id, ModeCrop)
	if err != nil {
		return 0, err
	}
	defer s.mtx.Unlock()

	r := compose.TimeRange{Start: start, End: end}
	return m.submit(s, compose.TrimPlan{Start: start, End: end}, []compose.TimeRange{r}), nil
}

// AdjustCut requests a cut preview with ranges removed from the clip.
func (m *Manager) AdjustCut(id string, ranges []compose.TimeRange) (uint64, error) {
	s, err := m.lookup(id, ModeCut)
	if err != nil {
		return 0, err
	}
	defer s.mtx.Unlock()

	ranges = append([]compose.TimeRange(nil), ranges...)
	return m.submit(s, compose.ExcisePlan{Ranges: ranges}, ranges), nil
}

type preview struct {
	out    compose.Output
	levels levels.LevelData
}

// submit queues a preview render. s must be locked.
func (m *Manager) submit(s *editSession, plan compose.Plan, ranges []compose.TimeRange) uint64 {
	s.gen++
	gen := s.gen

	if s.cancelPreview != nil {
		s.cancelPreview()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelPreview = cancel

	final := s.finalPath()
	pending := asset.PendingPath(final, gen)
	s.track(pending)

	id := s.original.ID
	m.publish(Event{
		Kind:       kindOf(s.mode, adjusted),
		AssetID:    id,
		Mode:       s.mode,
		Generation: gen,
		Asset:      s.original,
		Ranges:     ranges,
	})

	src := s.working.Path
	f := worker.Submit(m.pool, ctx, func(ctx context.Context) (preview, error) {
		out, err := m.renderer.Apply(ctx, src, plan, pending)
		if err != nil {
			return preview{}, err
		}
		a := s.original.WithPath(out.Path, out.Duration)
		return preview{out: out, levels: m.preview.Generate(ctx, a, m.policy)}, nil
	})

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		p, err := f.Wait(context.Background())
		m.finishPreview(s, gen, pending, final, p, err)
	}()
	return gen
}

func (s *editSession) finalPath() string {
	if s.mode == ModeCut {
		return asset.CutPath(s.original.Dir(), s.original.ID, "wav")
	}
	return asset.CroppedPath(s.original.Dir(), s.original.ID, "wav")
}

func (m *Manager) finishPreview(s *editSession, gen uint64, pending, final string, p preview, err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if gen != s.gen || s.state == StateApplied || s.state == StateCancelled {
		removeQuietly(pending)
		s.untrack(pending)
		metrics.PreviewDiscarded()
		return
	}
	if err != nil {
		removeQuietly(pending)
		s.untrack(pending)
		if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
			return
		}
		m.publish(Event{Kind: PreviewFailed, AssetID: s.original.ID, Mode: s.mode, Generation: gen, Err: err})
		return
	}

	if err := os.Rename(pending, final); err != nil {
		removeQuietly(pending)
		s.untrack(pending)
		m.publish(Event{
			Kind: PreviewFailed, AssetID: s.original.ID, Mode: s.mode, Generation: gen,
			Err: &FileSystemError{Op: "rename", Path: final, Err: err},
		})
		return
	}
	s.untrack(pending)
	s.track(final)

	next := s.original.WithPath(final, p.out.Duration)
	s.staged = &next
	s.state = StateStaged

	m.publish(Event{
		Kind:       kindOf(s.mode, staged),
		AssetID:    s.original.ID,
		Mode:       s.mode,
		Generation: gen,
		Asset:      next,
		Levels:     p.levels,
	})
}

func removeQuietly(path string) {
	_ = os.Remove(path)
}

// Session returns a snapshot of the open session on id.
func (m *Manager) Session(id string) (Session, bool) {
	m.mtx.Lock()
	s, ok := m.sessions[id]
	m.mtx.Unlock()
	if !ok {
		return Session{}, false
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.snapshot(), true
}

// Current is the asset playback should use: the staged preview when there
// is one, the original otherwise.
func (m *Manager) Current(id string) (asset.Asset, error) {
	snap, ok := m.Session(id)
	if !ok {
		return asset.Asset{}, fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	if snap.Staged != nil {
		return *snap.Staged, nil
	}
	return snap.Original, nil
}

// begin marks the session as resolving and waits for queued previews. The
// caller must call m.resolvers.Done once its terminal event is published.
func (m *Manager) begin(id string, cancelPreviews bool) (*editSession, error) {
	s, err := m.lookup(id, 0)
	if err != nil {
		return nil, err
	}
	s.resolving = true
	m.resolvers.Add(1)
	if cancelPreviews {
		s.cancel()
	}
	s.mtx.Unlock()

	s.inflight.Wait()
	return s, nil
}

func (m *Manager) end(s *editSession) {
	m.mtx.Lock()
	delete(m.sessions, s.original.ID)
	m.mtx.Unlock()
}

// Apply waits for queued previews, then promotes the staged preview: it is
// renamed to a new committed file, the original file and the working copy are
// removed, cached levels for the asset are dropped and levels of the new file
// are computed. A failure to remove old files does not stop the commit; it is
// reported in Result.CleanupErr.
//
// When nothing is staged or the promotion itself fails the session stays
// open, so the caller can retry or cancel.
func (m *Manager) Apply(ctx context.Context, id string) (Result, error) {
	s, err := m.begin(id, false)
	if err != nil {
		return Result{}, err
	}
	defer m.resolvers.Done()

	s.mtx.Lock()
	if s.staged == nil {
		s.resolving = false
		s.mtx.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrNothingStaged, id)
	}

	promoted := *s.staged
	committedPath := asset.CommittedPath(s.original.Dir(), s.original.ID, promoted.Ext())
	if err := os.Rename(promoted.Path, committedPath); err != nil {
		s.resolving = false
		s.mtx.Unlock()
		return Result{}, &FileSystemError{Op: "rename", Path: committedPath, Err: err}
	}
	s.untrack(promoted.Path)
	committed := s.original.WithPath(committedPath, promoted.Duration)

	var cleanup *multierror.Error
	if err := os.Remove(s.original.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		cleanup = multierror.Append(cleanup, &FileSystemError{Op: "remove", Path: s.original.Path, Err: err})
	}
	cleanup = multierror.Append(cleanup, s.removeTemps())

	s.state = StateApplied
	s.cancel()
	s.mtx.Unlock()
	m.end(s)

	m.levels.Invalidate(ctx, id)
	lv, err := worker.Submit(m.pool, ctx, func(ctx context.Context) (levels.LevelData, error) {
		return m.levels.Generate(ctx, committed, m.policy), nil
	}).Wait(ctx)
	if err != nil {
		m.log.Warn("levels of committed clip unavailable",
			zap.String("asset_id", id),
			zap.Error(err),
		)
	}

	res := Result{
		Asset:          committed,
		Levels:         lv,
		SupersededPath: s.original.Path,
		CleanupErr:     cleanup.ErrorOrNil(),
	}
	if res.CleanupErr != nil {
		m.log.Warn("cleanup after commit failed",
			zap.String("asset_id", id),
			zap.Error(res.CleanupErr),
		)
	}
	metrics.SessionFinished(s.mode.String(), "applied")
	m.publish(Event{
		Kind:       kindOf(s.mode, finished),
		AssetID:    id,
		Mode:       s.mode,
		Generation: s.gen,
		Asset:      committed,
		Levels:     lv,
	})
	return res, nil
}

// Cancel stops queued previews and removes every file the session created.
// The original is left untouched. The session ends even when some files
// cannot be removed; those failures are returned.
func (m *Manager) Cancel(id string) error {
	s, err := m.begin(id, true)
	if err != nil {
		return err
	}
	defer m.resolvers.Done()

	s.mtx.Lock()
	cleanup := s.removeTemps()
	s.staged = nil
	s.state = StateCancelled
	s.mtx.Unlock()
	m.end(s)

	if cleanup != nil {
		m.log.Warn("cleanup after cancel failed",
			zap.String("asset_id", id),
			zap.Error(cleanup),
		)
	}
	metrics.SessionFinished(s.mode.String(), "cancelled")
	m.publish(Event{
		Kind:       kindOf(s.mode, cancelled),
		AssetID:    id,
		Mode:       s.mode,
		Generation: s.gen,
		Asset:      s.original,
	})
	return cleanup
}

// removeTemps deletes every tracked work file. s must be locked.
func (s *editSession) removeTemps() error {
	var errs *multierror.Error
	for path := range s.temps {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = multierror.Append(errs, &FileSystemError{Op: "remove", Path: path, Err: err})
			continue
		}
		s.untrack(path)
	}
	return errs.ErrorOrNil()
}

// Close cancels every open session, waits for their previews and for Apply
// or Cancel calls already under way, then stops event delivery after the
// queued events are out.
func (m *Manager) Close() error {
	m.mtx.Lock()
	m.closed = true
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mtx.Unlock()

	var errs *multierror.Error
	for _, id := range ids {
		if err := m.Cancel(id); err != nil && !errors.Is(err, ErrNoSession) && !errors.Is(err, ErrResolving) {
			errs = multierror.Append(errs, err)
		}
	}
	m.resolvers.Wait()
	if m.ownPool {
		m.pool.Close()
	}
	m.hub.Close()
	return errs.ErrorOrNil()
}
