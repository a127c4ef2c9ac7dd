package history

import (
	"sync"
	"testing"
	"time"
)

func TestNewLog(t *testing.T) {
	log := NewLog()
	if log == nil {
		t.Fatal("NewLog() = nil")
	}

	if log.Len() != 0 {
		t.Errorf("Len() = %v, want 0", log.Len())
	}
}

func TestLog_AppendAssignsIncreasingIDs(t *testing.T) {
	log := NewLog()

	statuses := []string{"queued", "running", "done"}
	for _, s := range statuses {
		log.Append(s)
	}

	entries := log.Snapshot()
	if len(entries) != len(statuses) {
		t.Fatalf("Snapshot() = %v entries, want %v", len(entries), len(statuses))
	}

	for i, e := range entries {
		if e.ID != int64(i+1) {
			t.Errorf("entries[%d].ID = %v, want %v", i, e.ID, i+1)
		}
		if e.Status != statuses[i] {
			t.Errorf("entries[%d].Status = %q, want %q", i, e.Status, statuses[i])
		}
		if e.ObservedAt.IsZero() {
			t.Errorf("entries[%d].ObservedAt is zero", i)
		}
	}
}

func TestLog_SnapshotIsCopy(t *testing.T) {
	log := NewLog()
	log.Append("running")

	snap := log.Snapshot()
	snap[0].Status = "tampered"

	if got := log.Snapshot()[0].Status; got != "running" {
		t.Errorf("Snapshot()[0].Status = %q, want %q", got, "running")
	}
}

func TestLog_ClearResetsIDs(t *testing.T) {
	log := NewLog()
	log.Append("running")
	log.Append("done")

	log.Clear()

	if log.Len() != 0 {
		t.Fatalf("Len() after Clear = %v, want 0", log.Len())
	}

	entry := log.Append("fresh")
	if entry.ID != 1 {
		t.Errorf("first ID after Clear = %v, want 1", entry.ID)
	}
}

func TestLog_Subscribe(t *testing.T) {
	log := NewLog()

	ch := log.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go func() {
		log.Append("running")
	}()

	select {
	case entry := <-ch:
		if entry.Status != "running" {
			t.Errorf("received Status = %q, want %q", entry.Status, "running")
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive entry")
	}
}

func TestLog_MultipleSubscribers(t *testing.T) {
	log := NewLog()

	ch1 := log.Subscribe()
	ch2 := log.Subscribe()

	log.Append("running")

	for i, ch := range []<-chan Entry{ch1, ch2} {
		select {
		case entry := <-ch:
			if entry.Status != "running" {
				t.Errorf("subscriber %d received Status = %q, want %q", i, entry.Status, "running")
			}
		case <-time.After(1 * time.Second):
			t.Errorf("subscriber %d did not receive entry", i)
		}
	}
}

func TestLog_UnsubscribeClosesChannel(t *testing.T) {
	log := NewLog()

	ch := log.Subscribe()
	log.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received entry on unsubscribed channel")
		}
	case <-time.After(1 * time.Second):
		t.Error("unsubscribed channel was not closed")
	}

	// appending after unsubscribe must not panic
	log.Append("running")

	// double unsubscribe is a no-op
	log.Unsubscribe(ch)
}

func TestLog_ConcurrentAppends(t *testing.T) {
	log := NewLog()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append("status")
		}()
	}
	wg.Wait()

	entries := log.Snapshot()
	if len(entries) != n {
		t.Fatalf("Snapshot() = %v entries, want %v", len(entries), n)
	}

	seen := make(map[int64]bool, n)
	for _, e := range entries {
		if seen[e.ID] {
			t.Errorf("duplicate ID %v", e.ID)
		}
		seen[e.ID] = true
	}
}
