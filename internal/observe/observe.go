// Package observe delivers state change signals to subscribers.
//
// Publishing never blocks. Each subscription holds at most one pending
// signal; when a newer one arrives before the subscriber has read the older
// one, the older one is dropped, so a slow reader skips intermediate versions
// but always ends up at the latest state.
package observe

import "sync"

// Signal announces a committed state change.
type Signal[S any] struct {
	// Version increases by one for every committed change of the owner.
	Version uint64
	// Fields names the state fields the change touched.
	Fields []string
	// State is a snapshot taken at commit time.
	State S
}

// FieldChanged reports whether f is among the changed fields.
func (s Signal[S]) FieldChanged(f string) bool {
	for _, field := range s.Fields {
		if field == f {
			return true
		}
	}
	return false
}

// CancelFunc ends a subscription and closes its channel.
type CancelFunc func()

type Hub[S any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Signal[S]
	closed bool
}

func NewHub[S any]() *Hub[S] {
	return &Hub[S]{subs: make(map[int]chan Signal[S])}
}

func (h *Hub[S]) Subscribe() (<-chan Signal[S], CancelFunc) {
	ch := make(chan Signal[S], 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
}

func (h *Hub[S]) Publish(sig Signal[S]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- sig:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- sig:
		default:
		}
	}
}

// Close ends every subscription. Later Subscribe calls get a closed channel.
func (h *Hub[S]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
