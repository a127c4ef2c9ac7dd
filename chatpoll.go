package chatpoll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/askeland/chatpoll/internal/chat"
	"github.com/askeland/chatpoll/internal/history"
	"github.com/askeland/chatpoll/internal/notify"
	"github.com/askeland/chatpoll/internal/poller"
	"github.com/askeland/chatpoll/internal/server"
)

const (
	defaultPollInterval   = 2 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultPort           = 8080
)

// Watcher is the main orchestrator: it couples the status poller, the chat
// relay and the HTTP surface the observing UI talks to.
//
// A Watcher is created with [New] using functional options and started with
// [Watcher.Start]. Polling does not begin until the first chat message is
// submitted (or polling is started explicitly through the API), unless
// [WithAutoStart] is set.
//
// The typical lifecycle is:
//
//	w, err := chatpoll.New(
//	    chatpoll.WithStatusURL(statusURL),
//	    chatpoll.WithChatURL(chatURL),
//	)
//	if err != nil {
//	    slog.Error("failed to create watcher", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	w.Start(ctx) // blocks until context cancelled
type Watcher struct {
	statusURL      string
	chatURL        string
	pollInterval   time.Duration
	requestTimeout time.Duration
	port           int
	autoStart      bool
	logger         *slog.Logger
	entryCallbacks []func(StatusEntry)
}

// New creates a new [Watcher] with the given options.
//
// [WithStatusURL] and [WithChatURL] are required. Other options have
// sensible defaults:
//   - Poll interval: 2 seconds
//   - Request timeout: 10 seconds
//   - Port: 8080
//
// Returns an error if a required option is missing or any option is invalid.
func New(opts ...Option) (*Watcher, error) {
	cfg := &wConfig{
		pollInterval:   defaultPollInterval,
		requestTimeout: defaultRequestTimeout,
		port:           defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.statusURL == "" {
		return nil, errors.New("a status URL is required")
	}
	if cfg.chatURL == "" {
		return nil, errors.New("a chat URL is required")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		statusURL:      cfg.statusURL,
		chatURL:        cfg.chatURL,
		pollInterval:   cfg.pollInterval,
		requestTimeout: cfg.requestTimeout,
		port:           cfg.port,
		autoStart:      cfg.autoStart,
		logger:         logger,
		entryCallbacks: cfg.entryCallbacks,
	}, nil
}

// Start wires the watcher together and serves its HTTP API.
//
// Start is a blocking call that runs until the provided context is
// cancelled. During execution:
//
//   - The API is served on the configured port
//   - A chat submission raises the internal signal, which starts the
//     polling loop if it is not already running
//   - Recorded observations are fanned out to registered entry callbacks
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server
// fails to start.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("chatpoll starting",
		"status_url", w.statusURL,
		"chat_url", w.chatURL,
		"poll_interval", w.pollInterval.String(),
	)
	w.logger.Info("api available", "url", fmt.Sprintf("http://localhost:%d", w.port))

	if ctx.Err() != nil {
		return nil
	}

	hist := history.NewLog()
	p := poller.New(w.statusURL, w.pollInterval, w.requestTimeout, hist, w.logger)
	chatClient := chat.New(w.chatURL, w.requestTimeout, w.logger)
	submit := notify.NewSignal()

	var wg sync.WaitGroup

	// a chat submission starts polling; repeated submissions while already
	// polling are no-ops thanks to Start's idempotency
	listener := submit.Listen()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range listener {
			p.Start(ctx)
		}
	}()

	var entries <-chan history.Entry
	if len(w.entryCallbacks) > 0 {
		entries = hist.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range entries {
				pub := StatusEntry{
					ID:         entry.ID,
					Status:     entry.Status,
					ObservedAt: entry.ObservedAt,
				}
				for _, cb := range w.entryCallbacks {
					invokeCallbackSafe(cb, pub, w.logger)
				}
			}
		}()
	}

	cleanup := func() {
		p.Stop()
		submit.Drop(listener)
		if entries != nil {
			hist.Unsubscribe(entries)
		}
		wg.Wait()
	}

	srv := server.NewServer(p, hist, chatClient, submit, w.port, w.logger)
	if err := srv.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if w.autoStart {
		p.Start(ctx)
	}

	<-ctx.Done()
	cleanup()
	w.logger.Info("chatpoll stopped")
	return nil
}

// Port returns the configured HTTP port for the watcher's API.
func (w *Watcher) Port() int {
	return w.port
}

// PollInterval returns the configured interval between fetch cycles.
func (w *Watcher) PollInterval() time.Duration {
	return w.pollInterval
}

// StatusURL returns the configured status base URL.
func (w *Watcher) StatusURL() string {
	return w.statusURL
}

// ChatURL returns the configured chat base URL.
func (w *Watcher) ChatURL() string {
	return w.chatURL
}

// invokeCallbackSafe calls an entry callback with panic recovery.
// Panics are logged with a correlation ID but do not propagate.
func invokeCallbackSafe(cb func(StatusEntry), entry StatusEntry, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("entry callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", r,
				"entry_id", entry.ID,
			)
		}
	}()
	cb(entry)
}
