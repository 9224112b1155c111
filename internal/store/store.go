// Package store holds the dashboard's client-side state.
//
// Each store owns one slice of state and mutates it only from its own
// actions. An action marks the store busy, performs exactly one backend call,
// commits the result in a single locked update and clears busy on every exit
// path. Failed calls leave the data untouched and return the error unchanged.
//
// Actions of one store are not serialized against each other. If the same
// action runs twice concurrently, whichever call settles last decides the
// final data and the final busy value.
package store

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"stockdash/internal/observe"
)

// ErrInvalidID is returned before any network call for a zero id.
var ErrInvalidID = errors.New("id must be > 0")

// ErrActionPanicked is reported to hooks when an action's backend call
// panicked. The panic itself is re-raised to the caller.
var ErrActionPanicked = errors.New("action panicked")

// Requester is the backend contract the stores depend on. It is satisfied by
// *apiclient.Client.
type Requester interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// ActionEvent describes one settled action.
type ActionEvent struct {
	ID       string
	Store    string
	Action   string
	Params   map[string]any
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Hook observes settled actions. Hooks run synchronously on the caller's
// goroutine after busy has been cleared and must not block.
type Hook func(ActionEvent)

type options struct {
	hooks []Hook
	now   func() time.Time
}

type Option func(*options)

func WithHooks(hooks ...Hook) Option {
	return func(o *options) {
		for _, h := range hooks {
			if h != nil {
				o.hooks = append(o.hooks, h)
			}
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// base is the owned state shared by every store type.
type base[S any] struct {
	name  string
	busy  func(*S) *bool
	clone func(S) S
	opts  options

	mu      sync.RWMutex
	state   S
	version uint64
	hub     *observe.Hub[S]
}

func newBase[S any](name string, initial S, busy func(*S) *bool, clone func(S) S, opts []Option) *base[S] {
	return &base[S]{
		name:  name,
		busy:  busy,
		clone: clone,
		opts:  buildOptions(opts),
		state: initial,
		hub:   observe.NewHub[S](),
	}
}

// update applies fn under the write lock and publishes the result as one
// signal. It is the only way state changes.
func (b *base[S]) update(fields []string, fn func(*S)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.state)
	b.version++
	b.hub.Publish(observe.Signal[S]{Version: b.version, Fields: fields, State: b.clone(b.state)})
}

func (b *base[S]) setBusy(v bool) {
	b.update([]string{"Busy"}, func(s *S) { *b.busy(s) = v })
}

func (b *base[S]) snapshot() S {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.clone(b.state)
}

func (b *base[S]) isBusy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return *b.busy(&b.state)
}

func (b *base[S]) currentVersion() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

func (b *base[S]) subscribe() (<-chan observe.Signal[S], observe.CancelFunc) {
	return b.hub.Subscribe()
}

func (b *base[S]) emit(ev ActionEvent) {
	for _, h := range b.opts.hooks {
		h(ev)
	}
}

func (b *base[S]) close() {
	b.hub.Close()
}
