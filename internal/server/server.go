package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/askeland/chatpoll/internal/chat"
	"github.com/askeland/chatpoll/internal/history"
	"github.com/askeland/chatpoll/internal/notify"
	"github.com/askeland/chatpoll/internal/poller"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Server exposes the poller, history and chat transcript over HTTP for the
// observing UI.
//
// Routes:
//   - GET  /api/state: Current poller snapshot
//   - GET  /api/history: All recorded observations
//   - GET  /api/sse: Server-Sent Events stream of observations
//   - GET  /api/messages: Chat transcript
//   - POST /api/start, /api/stop: Poller control
//   - POST /api/clear: Discard history (refused while polling is active)
//   - POST /api/chat: Submit a user message
//   - PUT  /api/endpoint: Replace the status base URL at runtime
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	poller  *poller.Poller
	hist    *history.Log
	chat    *chat.Client
	submit  *notify.Signal
	port    int
	logger  *slog.Logger
	baseCtx context.Context

	httpServer *http.Server
}

// NewServer creates a new HTTP [Server].
//
// submit is raised whenever a chat message is accepted, before the message
// is forwarded. The server is not started until [Server.Start] is called.
func NewServer(p *poller.Poller, hist *history.Log, chatClient *chat.Client, submit *notify.Signal, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		poller: p,
		hist:   hist,
		chat:   chatClient,
		submit: submit,
		port:   port,
		logger: logger,
	}
}

// Handler returns the server's route table. Exposed so tests can drive the
// handlers without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/clear", s.handleClear)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/endpoint", s.handleEndpoint)

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns after confirming the listener is bound.
// The server runs until ctx is cancelled, then shuts down gracefully with a
// short timeout. ctx also becomes the lifetime for polling loops started
// through the HTTP surface, so they outlive the requests that start them.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx

	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: s.Handler(),
		// BaseContext derives all request contexts from the server context,
		// so cancellation also ends long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// lifetimeCtx returns the context polling loops should run under. Falls back
// to context.Background when the server was never started (tests).
func (s *Server) lifetimeCtx() context.Context {
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleState returns the current poller snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.poller.State())
}

// handleHistory returns all recorded observations in insertion order.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := s.hist.Snapshot()
	if entries == nil {
		entries = []history.Entry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// handleMessages returns the chat transcript.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	msgs := s.chat.Messages()
	if msgs == nil {
		msgs = []chat.Message{}
	}
	s.writeJSON(w, http.StatusOK, msgs)
}

// handleStart begins polling.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.poller.Start(s.lifetimeCtx())
	s.writeJSON(w, http.StatusOK, s.poller.State())
}

// handleStop halts polling.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.poller.Stop()
	s.writeJSON(w, http.StatusOK, s.poller.State())
}

// handleClear discards the history. Refused while polling is active so the
// session's append-only invariant holds.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.poller.Active() {
		s.writeError(w, http.StatusConflict, "cannot clear history while polling is active")
		return
	}

	s.poller.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// handleChat accepts a user message, raises the submit signal, and forwards
// the message to the remote chat function.
//
// The signal is raised on submission, before the forward completes. Failures
// reaching the remote still produce a 200: they surface as a bot-authored
// error message, not as an HTTP error.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body must be JSON")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	s.submit.Raise()

	reply := s.chat.Send(r.Context(), req.Message)
	s.writeJSON(w, http.StatusOK, reply)
}

// handleEndpoint replaces the status base URL at runtime.
func (s *Server) handleEndpoint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body must be JSON")
		return
	}

	if err := s.poller.SetBaseURL(req.URL); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("status endpoint updated", "url", req.URL)
	w.WriteHeader(http.StatusNoContent)
}

// handleSSE streams history entries via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients
// are slow or disconnected. Without deadlines, a blocked Fprintf call would
// prevent the handler from detecting context cancellation or channel
// closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some
	// ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.hist.Subscribe()
	defer s.hist.Unsubscribe(ch)

	// replay recorded observations before streaming live ones
	for _, entry := range s.hist.Snapshot() {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from the server context via
			// BaseContext, so this fires on both client disconnect AND
			// server shutdown
			return
		}
	}
}
