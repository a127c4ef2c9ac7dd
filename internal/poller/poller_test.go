package poller

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/askeland/chatpoll/internal/history"
)

// statusScript serves a scripted sequence of raw statuses, one per request.
// The last element repeats once the script is exhausted.
type statusScript struct {
	mu       sync.Mutex
	statuses []string
	calls    int
}

func (s *statusScript) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	status := s.statuses[i]
	s.mu.Unlock()

	fmt.Fprintf(w, `{"status":%q}`, status)
}

func newTestPoller(t *testing.T, baseURL string) (*Poller, *history.Log) {
	t.Helper()
	log := history.NewLog()
	p := New(baseURL, 50*time.Millisecond, 2*time.Second, log, nil)
	return p, log
}

// cycle drives one deterministic fetch cycle without the timer loop.
func cycle(p *Poller, n int) {
	for i := 0; i < n; i++ {
		p.fetchCycle(context.Background())
	}
}

func statusTexts(entries []history.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Status
	}
	return out
}

func TestPoller_ChangedStatusRecorded(t *testing.T) {
	script := &statusScript{statuses: []string{"queued", "running", "done"}}
	srv := httptest.NewServer(http.HandlerFunc(script.handler))
	defer srv.Close()

	p, log := newTestPoller(t, srv.URL)
	cycle(p, 3)

	got := statusTexts(log.Snapshot())
	want := []string{"queued", "running", "done"}
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	state := p.State()
	if state.Status != "done" {
		t.Errorf("State().Status = %q, want %q", state.Status, "done")
	}
	if state.Connection != LabelUpdated {
		t.Errorf("State().Connection = %q, want %q", state.Connection, LabelUpdated)
	}
}

func TestPoller_RepeatSynthesizesOneProcessingEntry(t *testing.T) {
	script := &statusScript{statuses: []string{"working", "working", "working", "done"}}
	srv := httptest.NewServer(http.HandlerFunc(script.handler))
	defer srv.Close()

	p, log := newTestPoller(t, srv.URL)
	cycle(p, 4)

	got := statusTexts(log.Snapshot())
	want := []string{"working", ProcessingStatus, "done"}
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPoller_SentinelExemptFromProcessingRule(t *testing.T) {
	script := &statusScript{statuses: []string{SentinelStatus, SentinelStatus, "done"}}
	srv := httptest.NewServer(http.HandlerFunc(script.handler))
	defer srv.Close()

	p, log := newTestPoller(t, srv.URL)

	cycle(p, 1)
	if got := p.State().Status; got != SentinelStatus {
		t.Errorf("after first fetch State().Status = %q, want %q", got, SentinelStatus)
	}
	if n := log.Len(); n != 0 {
		t.Errorf("after first fetch history length = %v, want 0", n)
	}

	cycle(p, 1)
	if got := p.State().Status; got != SentinelStatus {
		t.Errorf("after repeated sentinel State().Status = %q, want %q", got, SentinelStatus)
	}
	if n := log.Len(); n != 0 {
		t.Errorf("repeated sentinel appended history, length = %v, want 0", n)
	}

	cycle(p, 1)
	if got := p.State().Status; got != "done" {
		t.Errorf("after change State().Status = %q, want %q", got, "done")
	}
	got := statusTexts(log.Snapshot())
	if len(got) != 1 || got[0] != "done" {
		t.Errorf("history = %v, want [done]", got)
	}
}

func TestPoller_OscillationTreatedAsChange(t *testing.T) {
	// A after B is a change relative to the last change-producing fetch,
	// not a repeat of the earlier A
	script := &statusScript{statuses: []string{"a", "b", "a"}}
	srv := httptest.NewServer(http.HandlerFunc(script.handler))
	defer srv.Close()

	p, log := newTestPoller(t, srv.URL)
	cycle(p, 3)

	got := statusTexts(log.Snapshot())
	want := []string{"a", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPoller_HistoryOnlyGrows(t *testing.T) {
	script := &statusScript{statuses: []string{"a", "a", "b", "b", "c", "c", "c"}}
	srv := httptest.NewServer(http.HandlerFunc(script.handler))
	defer srv.Close()

	p, log := newTestPoller(t, srv.URL)

	prev := 0
	for i := 0; i < 7; i++ {
		cycle(p, 1)
		n := log.Len()
		if n < prev {
			t.Fatalf("history shrank from %v to %v after cycle %d", prev, n, i+1)
		}
		prev = n
	}

	entries := log.Snapshot()
	for i := 1; i < len(entries); i++ {
		if entries[i].ID <= entries[i-1].ID {
			t.Errorf("entry IDs not strictly increasing: %v then %v", entries[i-1].ID, entries[i].ID)
		}
	}
}

func TestPoller_FetchFailuresDoNotTouchHistory(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-success HTTP status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "not json")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p, log := newTestPoller(t, srv.URL)
			cycle(p, 1)

			if n := log.Len(); n != 0 {
				t.Errorf("history length = %v, want 0", n)
			}
			if got := p.State().Connection; got != LabelError {
				t.Errorf("State().Connection = %q, want %q", got, LabelError)
			}
		})
	}
}

func TestPoller_TransportFailureSetsErrorLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening any more

	p, log := newTestPoller(t, srv.URL)
	cycle(p, 1)

	if n := log.Len(); n != 0 {
		t.Errorf("history length = %v, want 0", n)
	}
	if got := p.State().Connection; got != LabelError {
		t.Errorf("State().Connection = %q, want %q", got, LabelError)
	}
}

func TestPoller_MissingStatusFieldIsNoOp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"other":"field"}`)
	}))
	defer srv.Close()

	p, log := newTestPoller(t, srv.URL)
	cycle(p, 1)

	if n := log.Len(); n != 0 {
		t.Errorf("history length = %v, want 0", n)
	}
	if got := p.State().Connection; got != LabelIdle {
		t.Errorf("State().Connection = %q, want %q", got, LabelIdle)
	}
}

func TestPoller_EnvelopeWrappedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"statusCode":200,"body":"{\"status\":\"wrapped\"}"}`)
	}))
	defer srv.Close()

	p, log := newTestPoller(t, srv.URL)
	cycle(p, 1)

	got := statusTexts(log.Snapshot())
	if len(got) != 1 || got[0] != "wrapped" {
		t.Fatalf("history = %v, want [wrapped]", got)
	}
	if state := p.State(); state.Status != "wrapped" {
		t.Errorf("State().Status = %q, want %q", state.Status, "wrapped")
	}
}

func TestPoller_StartIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		fmt.Fprint(w, `{"status":"steady"}`)
	}))
	defer srv.Close()

	p, _ := newTestPoller(t, srv.URL)

	p.Start(context.Background())
	p.Start(context.Background())
	defer p.Stop()

	if !p.Active() {
		t.Fatal("Active() = false after Start")
	}

	// a duplicated ticker would roughly double the request rate
	time.Sleep(275 * time.Millisecond)
	mu.Lock()
	got := calls
	mu.Unlock()

	// one immediate fetch plus ~5 ticks at 50ms; allow slack but catch doubling
	if got > 9 {
		t.Errorf("observed %d fetches, suggesting duplicate timers", got)
	}
}

func TestPoller_StopThenClearResetsSession(t *testing.T) {
	script := &statusScript{statuses: []string{"working", "working", "working"}}
	srv := httptest.NewServer(http.HandlerFunc(script.handler))
	defer srv.Close()

	p, log := newTestPoller(t, srv.URL)

	cycle(p, 2) // "working" then a processing repeat
	if n := log.Len(); n != 2 {
		t.Fatalf("history length = %v, want 2", n)
	}

	p.Stop()
	p.Stop() // idempotent
	p.Clear()

	if n := log.Len(); n != 0 {
		t.Errorf("history length after Clear = %v, want 0", n)
	}
	state := p.State()
	if state.Status != SentinelStatus {
		t.Errorf("State().Status after Clear = %q, want %q", state.Status, SentinelStatus)
	}
	if state.Connection != LabelIdle {
		t.Errorf("State().Connection after Clear = %q, want %q", state.Connection, LabelIdle)
	}

	// next session treats the same status as brand new
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for log.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("no history recorded after restart")
		case <-time.After(10 * time.Millisecond):
		}
	}

	entries := log.Snapshot()
	if entries[0].Status != "working" {
		t.Errorf("first entry after restart = %q, want %q", entries[0].Status, "working")
	}
	if entries[0].ID != 1 {
		t.Errorf("first ID after restart = %v, want 1", entries[0].ID)
	}
}

func TestPoller_ContextCancelStopsLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"steady"}`)
	}))
	defer srv.Close()

	p, _ := newTestPoller(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	deadline := time.After(2 * time.Second)
	for p.Active() {
		select {
		case <-deadline:
			t.Fatal("poller still active after context cancellation")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPoller_SetBaseURL(t *testing.T) {
	p, _ := newTestPoller(t, "http://example.com")

	if err := p.SetBaseURL("http://other.example.com/"); err != nil {
		t.Fatalf("SetBaseURL() error = %v", err)
	}
	if got := p.BaseURL(); got != "http://other.example.com" {
		t.Errorf("BaseURL() = %q, want %q", got, "http://other.example.com")
	}

	invalid := []string{"", "ftp://example.com", "http://", "://bad"}
	for _, u := range invalid {
		if err := p.SetBaseURL(u); err == nil {
			t.Errorf("SetBaseURL(%q) = nil, want error", u)
		}
	}
}
