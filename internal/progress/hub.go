package progress

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Publisher is the write side of a progress stream.
type Publisher interface {
	Publish(Event) bool
}

// Hub fans a single writer's events out to any number of subscribers.
//
// Every subscriber owns an unbounded queue, so Publish never blocks on a
// slow or absent reader. A new subscriber first receives the full history,
// which lets a client that connects late still observe the whole run.
type Hub struct {
	mu      sync.Mutex
	history []Event
	subs    map[*Subscription]struct{}
	closed  bool
}

// NewHub returns an open Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Publish records e and queues it for every subscriber. It returns false
// when the hub is already closed.
func (h *Hub) Publish(e Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.history = append(h.history, e)
	for s := range h.subs {
		s.push(e)
	}
	return true
}

// Subscribe returns a new stream that replays the history and then follows
// live events until the hub is closed or the subscription is cancelled.
func (h *Hub) Subscribe() *Subscription {
	out := make(chan Event)
	s := &Subscription{
		C:    out,
		out:  out,
		hub:  h,
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	h.mu.Lock()
	s.queue = slices.Clone(h.history)
	if h.closed {
		s.ended = true
	} else {
		h.subs[s] = struct{}{}
	}
	h.mu.Unlock()

	go s.pump()
	return s
}

// Close ends every stream once its queue drains. Close is idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.end()
	}
	h.subs = nil
}

// Closed reports whether Close has been called.
func (h *Hub) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// History returns a copy of every event published so far.
func (h *Hub) History() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.history)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, s)
}

// Subscription is one reader's view of a Hub.
type Subscription struct {
	// C delivers events in publication order. It is closed when the hub
	// closes and the queue has drained, or after Unsubscribe.
	C <-chan Event

	out  chan Event
	hub  *Hub
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	cond  *sync.Cond
	queue []Event
	ended bool
}

func (s *Subscription) push(e Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *Subscription) end() {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
	s.cond.Signal()
}

// Unsubscribe stops delivery and releases the subscription. Pending events
// are discarded. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.hub.remove(s)
		s.end()
	})
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.ended {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		e := s.queue[0]
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- e:
		case <-s.done:
			return
		}
	}
}

// WithKeepalive merges a keepalive ticker with the events of in. The
// returned channel closes after forwarding a completed event, when in
// closes, or when ctx is cancelled.
func WithKeepalive(ctx context.Context, in <-chan Event, interval time.Duration) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		send := func(e Event) bool {
			select {
			case out <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-in:
				if !ok || !send(e) || e.Terminal() {
					return
				}
			case <-ticker.C:
				if !send(Event{Status: StatusKeepalive}) {
					return
				}
			}
		}
	}()
	return out
}

var _ Publisher = (*Hub)(nil)
