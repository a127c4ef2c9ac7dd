// Package server provides the HTTP surface the observing UI talks to.
//
// This package is internal to chatpoll and handles all HTTP concerns:
//
//   - REST API: poller state, history, transcript and control routes
//   - Chat submission: POST "/api/chat" raises the submit signal and
//     forwards the message to the remote chat function
//   - Server-Sent Events: real-time history updates at "/api/sse"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the chatpoll library should not need to interact with this
// package directly. The server is started automatically by
// [chatpoll.Watcher.Start].
package server
