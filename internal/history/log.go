package history

import (
	"sync"
	"time"
)

// subscriberBuffer is the channel buffer for each subscriber. Sends are
// non-blocking; a slow consumer misses entries rather than stalling the
// polling loop.
const subscriberBuffer = 100

// Entry is a single distinct status observation.
//
// Entries are created only when the poller decides a fetched status is worth
// recording, and are immutable after insertion. IDs are assigned by the log
// and increase by one per insertion; they are unique and strictly increasing
// within a session (a Clear starts a new session).
type Entry struct {
	// ID is the insertion-order identifier, starting at 1.
	ID int64 `json:"id"`

	// Status is the recorded status text.
	Status string `json:"status"`

	// ObservedAt is when the observation was recorded.
	ObservedAt time.Time `json:"observed_at"`
}

// Log is an append-only, in-memory record of status observations with a
// publish-subscribe mechanism for real-time consumers.
//
// Log is safe for concurrent use. Entries are never mutated or reordered
// after insertion; the only way to remove them is [Log.Clear], which discards
// the whole history at once.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64

	subMu       sync.RWMutex
	subscribers map[chan Entry]struct{}
}

// NewLog creates an empty [Log], ready for use.
func NewLog() *Log {
	return &Log{
		subscribers: make(map[chan Entry]struct{}),
	}
}

// Append records a new observation with the given status text, assigns it
// the next ID and the current time, notifies all subscribers, and returns
// the stored entry.
func (l *Log) Append(status string) Entry {
	l.mu.Lock()
	l.nextID++
	entry := Entry{
		ID:         l.nextID,
		Status:     status,
		ObservedAt: time.Now(),
	}
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	l.notifySubscribers(entry)
	return entry
}

// Snapshot returns a copy of all entries in insertion order.
//
// The returned slice is a copy; modifying it does not affect the log.
func (l *Log) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear discards all entries and resets the ID counter, starting a new
// session. Subscribers are not notified of a clear.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.nextID = 0
}

// Subscribe creates a new subscription and returns a channel that receives
// every entry appended after this call.
//
// The channel is buffered; if the buffer fills, entries are dropped for this
// subscriber. Callers must call [Log.Unsubscribe] when done to prevent
// resource leaks.
func (l *Log) Subscribe() <-chan Entry {
	ch := make(chan Entry, subscriberBuffer)

	l.subMu.Lock()
	l.subscribers[ch] = struct{}{}
	l.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// multiple times or with a channel the log does not know about.
func (l *Log) Unsubscribe(ch <-chan Entry) {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	for subCh := range l.subscribers {
		if subCh == ch {
			delete(l.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers fans the entry out to all subscribers without blocking.
func (l *Log) notifySubscribers(entry Entry) {
	l.subMu.RLock()
	defer l.subMu.RUnlock()

	for ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
			// subscriber is slow, drop the entry
		}
	}
}
