package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/askeland/chatpoll/internal/envelope"
	"github.com/askeland/chatpoll/internal/history"
)

const (
	// SentinelStatus is the distinguished status text the remote reports
	// before any work has started. It is exempt from the processing-repeat
	// rule so an idle remote does not show as busy.
	SentinelStatus = "initial status"

	// ProcessingStatus is the pseudo-status synthesized by the poller when
	// the remote keeps reporting the same status while work is in flight.
	ProcessingStatus = "processing"

	// DefaultInterval is the time between fetch cycles.
	DefaultInterval = 2 * time.Second

	// statusPath is appended to the configured base URL for every fetch.
	statusPath = "/status"
)

// Label summarizes the outcome of the most recent fetch attempt for the
// observing UI.
type Label string

const (
	// LabelIdle means no fetch has happened yet in this session.
	LabelIdle Label = "idle"

	// LabelUpdated means the last fetch observed a new status.
	LabelUpdated Label = "updated"

	// LabelProcessing means the remote is repeating its last status while
	// work is in flight.
	LabelProcessing Label = "processing"

	// LabelNoChange means the last fetch matched the displayed status.
	LabelNoChange Label = "no change"

	// LabelError means the last fetch failed at the transport or parse level.
	LabelError Label = "connection error"
)

// State is a point-in-time snapshot of the poller, shaped for JSON.
type State struct {
	// Status is the currently displayed status text.
	Status string `json:"status"`

	// Connection summarizes the most recent fetch outcome.
	Connection Label `json:"connection"`

	// Active reports whether the polling loop is running.
	Active bool `json:"active"`

	// HistoryLength is the number of recorded observations.
	HistoryLength int `json:"history_length"`
}

// Poller periodically fetches the remote status resource, decides whether
// each observation is new, and appends distinct observations to the history
// log.
//
// On every successful fetch the poller classifies the raw status text as one
// of three outcomes:
//
//  1. The remote repeated the status that produced the last change (and it
//     is not [SentinelStatus]): work is in flight, so the displayed text
//     becomes [ProcessingStatus] and one processing entry is recorded for
//     the whole run of repeats.
//  2. The raw status differs from the displayed text: a genuine change, so
//     the displayed text follows it and the observation is recorded.
//  3. Anything else is a no-op apart from the connection label.
//
// Transport and parse failures never touch the history or propagate to
// callers; the next scheduled cycle is the retry. All state is guarded by a
// mutex so the HTTP surface can read and control the poller from request
// goroutines while the loop runs.
type Poller struct {
	client   *Client
	log      *history.Log
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	baseURL string
	active  bool
	stop    chan struct{}
	current string // displayed status text
	lastRaw string // raw status from the fetch that last produced a change
	conn    Label
}

// New creates a [Poller] that fetches baseURL+"/status" every interval and
// records observations in log.
//
// timeout bounds each individual fetch. If logger is nil, [slog.Default] is
// used. The poller does not begin fetching until [Poller.Start] is called.
func New(baseURL string, interval, timeout time.Duration, log *history.Log, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Poller{
		client:   NewClient(timeout),
		log:      log,
		logger:   logger,
		interval: interval,
		baseURL:  strings.TrimRight(baseURL, "/"),
		current:  SentinelStatus,
		conn:     LabelIdle,
	}
}

// Start begins the polling loop in a background goroutine.
//
// The loop performs one immediate fetch and then repeats at the configured
// interval until [Poller.Stop] is called or ctx is cancelled. The raw-status
// tracker is reset on every Start, so the first fetch of a session is always
// compared as if nothing had been observed before.
//
// Start is idempotent: calling it while the loop is already running is a
// no-op, so there is never more than one ticker per poller.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return
	}
	p.active = true
	p.lastRaw = ""
	p.stop = make(chan struct{})
	stop := p.stop
	p.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	go p.run(ctx, stop)
}

// run owns the fetch cadence: one immediate cycle, then one per tick.
func (p *Poller) run(ctx context.Context, stop <-chan struct{}) {
	p.fetchCycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			p.deactivate()
			return
		case <-ticker.C:
			p.fetchCycle(ctx)
		}
	}
}

// Stop halts future fetch cycles and marks the poller inactive.
//
// Stop does not abort a cycle that is already in flight; its result may
// still be applied after Stop returns, which only affects local display
// state. Stop is idempotent and safe to call when never started.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	p.active = false
	close(p.stop)
}

// deactivate marks the poller inactive after a context-driven exit.
func (p *Poller) deactivate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
}

// Clear discards the history and resets all tracking state, returning the
// poller to its initial appearance.
//
// The poller itself does not refuse a Clear while active; the HTTP surface
// is expected to block that combination.
func (p *Poller) Clear() {
	p.mu.Lock()
	p.current = SentinelStatus
	p.lastRaw = ""
	p.conn = LabelIdle
	p.mu.Unlock()

	p.log.Clear()
}

// Active reports whether the polling loop is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// State returns a snapshot of the poller for the observing UI.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Status:        p.current,
		Connection:    p.conn,
		Active:        p.active,
		HistoryLength: p.log.Len(),
	}
}

// SetBaseURL replaces the status base URL at runtime. The next fetch cycle
// uses the new value; cycles already in flight finish against the old one.
func (p *Poller) SetBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid status URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("status URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("status URL missing host: %q", raw)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseURL = strings.TrimRight(raw, "/")
	return nil
}

// BaseURL returns the current status base URL.
func (p *Poller) BaseURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.baseURL
}

// fetchCycle performs one fetch and applies the decision policy.
//
// Failures are absorbed here: transport errors, non-2xx responses and
// unparseable bodies all set the connection label to [LabelError] and end
// the cycle without touching the history. A response that parses but lacks
// a status field is a silent no-op.
func (p *Poller) fetchCycle(ctx context.Context) {
	p.mu.Lock()
	target := p.baseURL + statusPath
	p.mu.Unlock()

	resp := p.client.Fetch(ctx, target)
	if resp.Error != nil {
		p.setConnection(LabelError)
		p.logger.Warn("status fetch failed", "url", target, "error", resp.Error.Error())
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.setConnection(LabelError)
		p.logger.Warn("status fetch returned non-success", "url", target, "status_code", resp.StatusCode)
		return
	}

	payload := envelope.Unwrap(resp.Body)
	if !json.Valid(payload) {
		p.setConnection(LabelError)
		p.logger.Warn("status response is not valid JSON", "url", target)
		return
	}

	raw, ok := envelope.Field(payload, "status")
	if !ok {
		// parsed fine but carries no status
		return
	}

	p.apply(raw)
}

// apply runs the decision policy against a freshly fetched raw status.
func (p *Poller) apply(raw string) {
	p.mu.Lock()

	var record string
	var recorded bool

	switch {
	case raw == p.lastRaw && raw != SentinelStatus:
		// the remote reports the same coarse status repeatedly while work
		// is in flight; show liveness without re-recording the status
		if p.current != ProcessingStatus {
			p.current = ProcessingStatus
			p.conn = LabelProcessing
			record, recorded = ProcessingStatus, true
		}
	case raw != p.current:
		p.current = raw
		p.lastRaw = raw
		p.conn = LabelUpdated
		record, recorded = raw, true
	default:
		p.conn = LabelNoChange
	}
	p.mu.Unlock()

	if recorded {
		p.log.Append(record)
		p.logger.Debug("status recorded", "status", record)
	}
}

// setConnection updates only the connection label.
func (p *Poller) setConnection(label Label) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn = label
}
