// Package notify provides the payload-less broadcast signal that decouples
// the chat surface from the poller.
//
// The chat side raises the signal when a user submits a message; the poller
// side listens and begins polling. Neither holds a reference to the other.
// The signal carries no payload and no acknowledgment: with no listeners it
// is silently dropped, and a listener whose buffer is already primed simply
// coalesces repeated raises into one.
package notify

import "sync"

// Signal is a broadcast trigger with any number of listeners.
//
// Signal is safe for concurrent use. The zero value is not usable; create
// one with [NewSignal].
type Signal struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
}

// NewSignal creates a [Signal] with no listeners.
func NewSignal() *Signal {
	return &Signal{
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Raise broadcasts the signal to all current listeners.
//
// Delivery is non-blocking. A listener that has not drained the previous
// raise does not receive another; since the signal carries no payload, a
// pending raise already says everything a second one would.
func (s *Signal) Raise() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Listen registers a new listener and returns its channel.
//
// The channel has a buffer of one, so a raise that arrives while the
// listener is busy is held until the next receive. Callers must call
// [Signal.Drop] when done.
func (s *Signal) Listen() <-chan struct{} {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()

	return ch
}

// Drop removes a listener and closes its channel. Safe to call more than
// once or with an unknown channel.
func (s *Signal) Drop(ch <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for lch := range s.listeners {
		if lch == ch {
			delete(s.listeners, lch)
			close(lch)
			break
		}
	}
}
