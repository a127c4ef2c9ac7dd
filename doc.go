// Package chatpoll watches a remote serverless workload: it relays chat
// messages to the workload's chat function and polls its status function,
// keeping an append-only history of distinct status observations.
//
// A chat submission and the poller are deliberately decoupled: the chat side
// raises a payload-less internal signal, and the poller starts when the
// signal arrives. Neither holds a reference to the other.
//
// # Quick Start
//
// Create a watcher and run it with graceful shutdown:
//
//	w, _ := chatpoll.New(
//	    chatpoll.WithStatusURL("https://api.example.com"),
//	    chatpoll.WithChatURL("https://api.example.com"),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	w.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// chatpoll uses the functional options pattern for configuration:
//
//	w, err := chatpoll.New(
//	    chatpoll.WithStatusURL(statusURL),
//	    chatpoll.WithChatURL(chatURL),
//	    chatpoll.WithPollInterval(2 * time.Second),
//	    chatpoll.WithPort(9090),
//	    chatpoll.WithEntryCallback(func(e chatpoll.StatusEntry) {
//	        fmt.Println(e.Status)
//	    }),
//	)
//
// # Architecture
//
// chatpoll consists of several internal packages (under internal/):
//
//   - internal/poller: Timer-driven status fetching and the decision policy
//   - internal/history: Append-only observation log with pub/sub
//   - internal/notify: The payload-less submission signal
//   - internal/chat: HTTP relay to the remote chat function
//   - internal/envelope: Response envelope decoding
//   - internal/server: HTTP API with REST routes and Server-Sent Events
//
// The internal packages are not part of the public API and may change
// without notice.
package chatpoll
