package chatpoll

import (
	"time"

	"github.com/askeland/chatpoll/internal/poller"
)

// Status text values with special meaning to the watcher.
const (
	// SentinelStatus is the distinguished status text representing "no work
	// has started yet". It is exempt from the processing-repeat rule.
	SentinelStatus = poller.SentinelStatus

	// ProcessingStatus is the pseudo-status recorded while the remote keeps
	// repeating its last status with work in flight.
	ProcessingStatus = poller.ProcessingStatus
)

// ConnectionLabel is a short user-facing string summarizing the outcome of
// the most recent status fetch.
//
// Using a string type allows for easy JSON serialization and human-readable
// logging while maintaining type safety through the defined constants.
type ConnectionLabel string

const (
	// ConnectionIdle means no fetch has happened yet in this session.
	ConnectionIdle = ConnectionLabel(poller.LabelIdle)

	// ConnectionUpdated means the last fetch observed a new status.
	ConnectionUpdated = ConnectionLabel(poller.LabelUpdated)

	// ConnectionProcessing means the remote is repeating its last status
	// while work is in flight.
	ConnectionProcessing = ConnectionLabel(poller.LabelProcessing)

	// ConnectionNoChange means the last fetch matched the displayed status.
	ConnectionNoChange = ConnectionLabel(poller.LabelNoChange)

	// ConnectionError means the last fetch failed at the transport or parse
	// level.
	ConnectionError = ConnectionLabel(poller.LabelError)
)

// String returns the string representation of the label.
// This implements the fmt.Stringer interface.
func (l ConnectionLabel) String() string {
	return string(l)
}

// StatusEntry is one distinct status observation recorded by the watcher.
//
// StatusEntry is immutable after creation. IDs increase by one per insertion
// and are unique within a polling session.
type StatusEntry struct {
	// ID is the insertion-order identifier, starting at 1.
	ID int64

	// Status is the recorded status text.
	Status string

	// ObservedAt is when the observation was recorded.
	ObservedAt time.Time
}
