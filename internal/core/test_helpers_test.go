package core

import (
	"testing"
	"time"

	"github.com/vovakirdan/relaychat/internal/store/memory"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// drain empties the channel and returns what it held.
func drain(ch <-chan *Event) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func expectNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()
	for _, ev := range drain(ch) {
		if ev.Kind == kind {
			t.Fatalf("unexpected event kind %v: %+v", kind, ev)
		}
	}
}

func newTestRelay(t *testing.T) (*Relay, *memory.Store) {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { st.Close() })
	return NewRelay(NewRegistry(), st, nil, DefaultOptions()), st
}

func relayStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { st.Close() })
	return st
}
