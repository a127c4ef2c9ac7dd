package chatpoll

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// wConfig holds mutable state during Watcher construction.
type wConfig struct {
	statusURL      string
	chatURL        string
	pollInterval   time.Duration
	requestTimeout time.Duration
	port           int
	autoStart      bool
	logger         *slog.Logger
	entryCallbacks []func(StatusEntry)
}

// Option is a function that configures a [Watcher] instance during
// construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*wConfig) error

// validateBaseURL checks that a base URL is an absolute http(s) URL.
func validateBaseURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s missing host: %q", name, raw)
	}
	return nil
}

// WithStatusURL sets the base URL of the remote status function. The poller
// fetches <url>/status. Required.
func WithStatusURL(u string) Option {
	return func(cfg *wConfig) error {
		if err := validateBaseURL(u, "status URL"); err != nil {
			return err
		}
		cfg.statusURL = u
		return nil
	}
}

// WithChatURL sets the base URL of the remote chat function. Messages are
// posted to <url>/chat. Required.
func WithChatURL(u string) Option {
	return func(cfg *wConfig) error {
		if err := validateBaseURL(u, "chat URL"); err != nil {
			return err
		}
		cfg.chatURL = u
		return nil
	}
}

// WithPollInterval sets the time between status fetch cycles.
// Defaults to 2 seconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *wConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithRequestTimeout bounds each individual HTTP request to the remote
// functions. Defaults to 10 seconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *wConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithPort sets the HTTP port the watcher's API is served on.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *wConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithAutoStart makes the watcher begin polling as soon as it starts,
// instead of waiting for the first chat submission or an explicit start.
func WithAutoStart() Option {
	return func(cfg *wConfig) error {
		cfg.autoStart = true
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the watcher.
//
// This allows consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	w, err := chatpoll.New(
//	    chatpoll.WithStatusURL(statusURL),
//	    chatpoll.WithChatURL(chatURL),
//	    chatpoll.WithLogger(logger),
//	)
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *wConfig) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithEntryCallback registers a callback invoked for every recorded
// [StatusEntry].
//
// Can be called multiple times to register multiple callbacks. Callbacks run
// on a dedicated goroutine after the entry is stored; a panicking callback
// is recovered and logged, never crashing the watcher.
func WithEntryCallback(cb func(StatusEntry)) Option {
	return func(cfg *wConfig) error {
		if cb == nil {
			return errors.New("entry callback must not be nil")
		}
		cfg.entryCallbacks = append(cfg.entryCallbacks, cb)
		return nil
	}
}
