// SPDX-License-Identifier: EPL-2.0

// Package notify fans events out to subscribers. Each subscriber gets its own
// goroutine and an unbounded queue, so publishers never wait on a slow
// subscriber and every subscriber sees events in publish order.
package notify

import "sync"

// Hub delivers events of type E to its subscribers.
type Hub[E any] struct {
	mtx    sync.Mutex
	subs   map[uint64]*subscriber[E]
	nextID uint64
	closed bool
}

// NewHub returns a hub without subscribers.
func NewHub[E any]() *Hub[E] {
	return &Hub[E]{subs: make(map[uint64]*subscriber[E])}
}

type subscriber[E any] struct {
	fn func(E)

	mtx     sync.Mutex
	queue   []E
	closing bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func (s *subscriber[E]) push(e E) {
	s.mtx.Lock()
	s.queue = append(s.queue, e)
	s.mtx.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[E]) run() {
	defer close(s.done)
	for {
		s.mtx.Lock()
		batch := s.queue
		s.queue = nil
		closing := s.closing
		s.mtx.Unlock()

		for _, e := range batch {
			select {
			case <-s.quit:
				return
			default:
			}
			s.fn(e)
		}
		if len(batch) > 0 {
			continue
		}
		if closing {
			return
		}

		select {
		case <-s.wake:
		case <-s.quit:
			return
		}
	}
}

// Subscribe registers fn. The returned function removes the subscription;
// events published after it returns are not delivered. It is safe to call
// more than once.
func (h *Hub[E]) Subscribe(fn func(E)) (unsubscribe func()) {
	s := &subscriber[E]{
		fn:   fn,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	h.mtx.Lock()
	if h.closed {
		h.mtx.Unlock()
		return func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = s
	h.mtx.Unlock()

	go s.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mtx.Lock()
			delete(h.subs, id)
			h.mtx.Unlock()
			close(s.quit)
		})
	}
}

// Publish queues e for every current subscriber and returns at once.
func (h *Hub[E]) Publish(e E) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	for _, s := range h.subs {
		s.push(e)
	}
}

// Len is the number of subscribers.
func (h *Hub[E]) Len() int {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return len(h.subs)
}

// Close delivers what is already queued, then stops every subscriber.
// Later Publish calls are dropped.
func (h *Hub[E]) Close() {
	h.mtx.Lock()
	if h.closed {
		h.mtx.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[uint64]*subscriber[E])
	h.mtx.Unlock()

	for _, s := range subs {
		s.drain()
	}
}

// drain lets the goroutine deliver what is queued and waits for it to exit.
func (s *subscriber[E]) drain() {
	s.mtx.Lock()
	s.closing = true
	s.mtx.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	<-s.done
}
