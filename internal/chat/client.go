// Package chat implements the messaging collaborator: a thin HTTP client
// that forwards user messages to the remote chat function and keeps a
// bounded in-memory transcript.
//
// Failures never reach callers as errors. Any transport, parse or
// missing-field problem becomes a synthetic bot-authored message so the end
// user always sees a reply, and the failure is logged.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/askeland/chatpoll/internal/envelope"
)

const (
	chatPath = "/chat"

	// transcriptLimit bounds the in-memory transcript; older messages are
	// dropped first.
	transcriptLimit = 200

	maxResponseBodySize = 1 << 20 // 1MB
)

// errorReply is the bot-authored text shown when the remote cannot be
// reached or returns something unusable.
const errorReply = "Sorry, I couldn't reach the assistant. Please try again."

// Message authors.
const (
	AuthorUser = "user"
	AuthorBot  = "bot"
)

// Message is one entry in the chat transcript.
type Message struct {
	// ID uniquely identifies the message.
	ID string `json:"id"`

	// Author is either "user" or "bot".
	Author string `json:"author"`

	// Text is the message content.
	Text string `json:"text"`

	// SentAt is when the message was recorded locally.
	SentAt time.Time `json:"sent_at"`
}

// payload is the request body sent to the remote chat function.
type payload struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Client forwards user messages to the remote chat endpoint.
//
// Client is safe for concurrent use. It records every user message and bot
// reply in a bounded transcript that the HTTP surface can snapshot.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu         sync.Mutex
	transcript []Message
}

// New creates a chat [Client] posting to baseURL+"/chat".
//
// timeout bounds each request. If logger is nil, [slog.Default] is used.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Send forwards text to the remote chat function and returns the bot's
// reply as a [Message].
//
// The user message is recorded before the request is issued. On success the
// reply is extracted from the (possibly envelope-wrapped) response body,
// preferring the "response" field, then "message", then "body". Every
// failure mode - unreachable remote, non-success status, malformed body,
// none of the expected fields present - yields the same synthetic
// bot-authored error reply; nothing is retried and no error escapes.
func (c *Client) Send(ctx context.Context, text string) Message {
	c.record(AuthorUser, text)

	reply, err := c.post(ctx, text)
	if err != nil {
		c.logger.Warn("chat request failed", "error", err.Error())
		reply = errorReply
	}

	return c.record(AuthorBot, reply)
}

// post issues the chat request and extracts the reply text.
func (c *Client) post(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(payload{
		Message:   text,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.baseURL + chatPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat endpoint returned status %d", resp.StatusCode)
	}

	reply, ok := envelope.Field(envelope.Unwrap(respBody), "response", "message", "body")
	if !ok {
		return "", fmt.Errorf("chat response carries no reply field")
	}
	return reply, nil
}

// record appends a message to the transcript and returns it.
func (c *Client) record(author, text string) Message {
	msg := Message{
		ID:     uuid.NewString(),
		Author: author,
		Text:   text,
		SentAt: time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, msg)
	if len(c.transcript) > transcriptLimit {
		c.transcript = c.transcript[len(c.transcript)-transcriptLimit:]
	}
	return msg
}

// Messages returns a copy of the transcript in chronological order.
func (c *Client) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}
