package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHub_publishSubscribe(t *testing.T) {
	t.Parallel()
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.Publish(Event{Type: TypeTurn, SessionID: "deal1_b1", SenderID: "b1", Message: "hi"})

	select {
	case raw := <-ch:
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != TypeTurn || ev.SessionID != "deal1_b1" {
			t.Fatalf("event = %+v", ev)
		}
		if ev.Timestamp.IsZero() {
			t.Fatal("timestamp not stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestHub_slowSubscriberDropsNotBlocks(t *testing.T) {
	t.Parallel()
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	// Overfill the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(ch)+50; i++ {
			h.Publish(Event{Type: TypeTurn})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

func TestHub_unsubscribeCloses(t *testing.T) {
	t.Parallel()
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel not closed after unsubscribe")
	}
	// Double unsubscribe is a no-op.
	h.Unsubscribe(ch)
}
