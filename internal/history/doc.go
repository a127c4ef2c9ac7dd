// Package history provides the append-only record of status observations.
//
// The package is internal to chatpoll. A [Log] owns every [Entry]: the poller
// appends observations, the HTTP surface reads snapshots and subscribes for
// live updates, and an explicit clear discards everything wholesale. Nothing
// is persisted; history lives in memory and is lost when the process exits.
package history
