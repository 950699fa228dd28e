// SPDX-License-Identifier: EPL-2.0

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmit_Result(t *testing.T) {
	t.Parallel()

	p := NewPool(2)
	defer p.Close()

	f := Submit(p, context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})
	got, err := f.Wait(context.Background())
	if err != nil || got != 42 {
		t.Errorf("Wait() = (%d, %v), want (42, nil)", got, err)
	}

	boom := errors.New("boom")
	ef := Submit(p, context.Background(), func(context.Context) (string, error) {
		return "", boom
	})
	if _, err := ef.Wait(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v, want %v", err, boom)
	}
}

func TestSubmit_Bounded(t *testing.T) {
	t.Parallel()

	const size = 3
	p := NewPool(size)
	defer p.Close()

	var running, peak atomic.Int32
	release := make(chan struct{})
	futures := make([]*Future[struct{}], 10)
	for i := range futures {
		futures[i] = Submit(p, context.Background(), func(context.Context) (struct{}, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return struct{}{}, nil
		})
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	for _, f := range futures {
		if _, err := f.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	if peak.Load() > size {
		t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), size)
	}
}

func TestSubmit_DoesNotBlockCaller(t *testing.T) {
	t.Parallel()

	p := NewPool(1)
	defer p.Close()

	block := make(chan struct{})
	Submit(p, context.Background(), func(context.Context) (int, error) {
		<-block
		return 0, nil
	})

	done := make(chan struct{})
	go func() {
		Submit(p, context.Background(), func(context.Context) (int, error) { return 1, nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Submit blocked while the pool was busy")
	}
	close(block)
}

func TestSubmit_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	p := NewPool(1)
	defer p.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	Submit(p, context.Background(), func(context.Context) (int, error) {
		close(started)
		<-block
		return 0, nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	f := Submit(p, ctx, func(context.Context) (int, error) {
		ran.Store(true)
		return 1, nil
	})
	cancel()

	if _, err := f.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
	close(block)
	p.Close()
	if ran.Load() {
		t.Error("cancelled job ran")
	}
}

func TestFuture_WaitContext(t *testing.T) {
	t.Parallel()

	p := NewPool(1)
	block := make(chan struct{})
	f := Submit(p, context.Background(), func(context.Context) (int, error) {
		<-block
		return 0, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}

	close(block)
	p.Close()
	select {
	case <-f.Done():
	default:
		t.Error("Close returned before the job finished")
	}
}

func TestPool_Closed(t *testing.T) {
	t.Parallel()

	p := NewPool(0)
	p.Close()

	f := Submit(p, context.Background(), func(context.Context) (int, error) { return 1, nil })
	if _, err := f.Wait(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Wait() error = %v, want ErrPoolClosed", err)
	}
}
