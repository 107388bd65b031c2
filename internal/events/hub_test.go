package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	h := NewHub(8)

	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish("command.submitted", map[string]string{"type": "show"})

	select {
	case ev := <-ch:
		if ev.Type != "command.submitted" {
			t.Errorf("Expected type 'command.submitted', got %q", ev.Type)
		}
		if ev.ID != 1 {
			t.Errorf("Expected ID 1, got %d", ev.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}
}

func TestSnapshotSince(t *testing.T) {
	h := NewHub(8)

	h.Publish("a", nil)
	h.Publish("b", nil)
	h.Publish("c", nil)

	all := h.SnapshotSince(0)
	if len(all) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(all))
	}
	if all[0].Type != "a" || all[2].Type != "c" {
		t.Errorf("Snapshot out of order: %v", all)
	}

	tail := h.SnapshotSince(all[1].ID)
	if len(tail) != 1 || tail[0].Type != "c" {
		t.Errorf("Expected only 'c' after ID %d, got %v", all[1].ID, tail)
	}
}

func TestRingOverwrite(t *testing.T) {
	h := NewHub(2)

	h.Publish("a", nil)
	h.Publish("b", nil)
	h.Publish("c", nil)

	got := h.SnapshotSince(0)
	if len(got) != 2 {
		t.Fatalf("Expected 2 buffered events, got %d", len(got))
	}
	if got[0].Type != "b" || got[1].Type != "c" {
		t.Errorf("Expected oldest event evicted, got %v", got)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(4)

	// Subscriber that never reads. Publishes must still return.
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			h.Publish("tick", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub(4)

	ch, cancel := h.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed after cancel")
	}

	// Second cancel must be a no-op.
	cancel()
}
