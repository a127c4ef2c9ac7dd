// Package poller implements the timer-driven status watcher for chatpoll.
//
// This package is internal to chatpoll. At a fixed interval it fetches the
// remote status resource, unwraps the optional response envelope, and
// classifies each observation as a change, an in-flight repeat, or a no-op,
// appending distinct observations to the history log.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with timeout and size limits
//   - [Poller]: The polling loop, decision policy and session state
//   - [State]: Point-in-time snapshot consumed by the HTTP surface
//   - [Label]: Connection label summarizing the last fetch outcome
//
// Users of the chatpoll library should not need to interact with this
// package directly. Configuration is done through the main chatpoll package.
package poller
