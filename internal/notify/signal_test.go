package notify

import (
	"testing"
	"time"
)

func TestSignal_RaiseWithNoListeners(t *testing.T) {
	s := NewSignal()

	// must not block or panic
	s.Raise()
}

func TestSignal_ListenReceivesRaise(t *testing.T) {
	s := NewSignal()
	ch := s.Listen()

	s.Raise()

	select {
	case <-ch:
	case <-time.After(1 * time.Second):
		t.Error("listener did not receive raise")
	}
}

func TestSignal_AllListenersReceive(t *testing.T) {
	s := NewSignal()
	ch1 := s.Listen()
	ch2 := s.Listen()
	ch3 := s.Listen()

	s.Raise()

	for i, ch := range []<-chan struct{}{ch1, ch2, ch3} {
		select {
		case <-ch:
		case <-time.After(1 * time.Second):
			t.Errorf("listener %d did not receive raise", i)
		}
	}
}

func TestSignal_RepeatedRaisesCoalesce(t *testing.T) {
	s := NewSignal()
	ch := s.Listen()

	s.Raise()
	s.Raise()
	s.Raise()

	// exactly one pending raise
	<-ch
	select {
	case <-ch:
		t.Error("expected repeated raises to coalesce into one")
	default:
	}
}

func TestSignal_DropClosesChannel(t *testing.T) {
	s := NewSignal()
	ch := s.Listen()

	s.Drop(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received value on dropped channel")
		}
	case <-time.After(1 * time.Second):
		t.Error("dropped channel was not closed")
	}

	// raise after drop must not panic, and double drop is a no-op
	s.Raise()
	s.Drop(ch)
}
