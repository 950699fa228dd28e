// SPDX-License-Identifier: EPL-2.0

// Package worker runs decode and render jobs off the caller's goroutine with
// bounded parallelism.
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned by jobs submitted after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool bounds how many jobs run at once.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mtx    sync.Mutex
	closed bool
}

// NewPool allows size concurrent jobs; size <= 0 means GOMAXPROCS.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Future is the pending result of a submitted job.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the job finishes or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit schedules fn and returns at once. fn runs when a slot frees up,
// unless ctx ends first, in which case the future resolves with ctx's error
// and fn never runs.
func Submit[T any](p *Pool, ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	p.mtx.Lock()
	if p.closed {
		p.mtx.Unlock()
		f.err = ErrPoolClosed
		close(f.done)
		return f
	}
	p.wg.Add(1)
	p.mtx.Unlock()

	go func() {
		defer p.wg.Done()
		defer close(f.done)

		if err := p.sem.Acquire(ctx, 1); err != nil {
			f.err = err
			return
		}
		defer p.sem.Release(1)

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.val, f.err = fn(ctx)
	}()

	return f
}

// Close rejects new jobs and waits for the submitted ones.
func (p *Pool) Close() {
	p.mtx.Lock()
	p.closed = true
	p.mtx.Unlock()

	p.wg.Wait()
}
