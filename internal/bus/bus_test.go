package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("daemon.", 10)
	defer unsub()

	b.Publish(Event{Kind: "daemon.status_changed", Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != "daemon.status_changed" {
			t.Errorf("got kind %q, want daemon.status_changed", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	b.Publish(Event{Kind: "daemon.status_changed"})
	b.Publish(Event{Kind: "message.sent"})

	select {
	case evt := <-ch:
		if evt.Kind != "message.sent" {
			t.Errorf("got kind %q, want message.sent", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// The daemon event must not have been delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPathChangedSubtree(t *testing.T) {
	b := New()
	// Observing a user key must also see writes under it.
	ch, unsub := b.Subscribe(PathChanged("a-example-com"), 10)
	defer unsub()

	b.Publish(Event{Kind: PathChanged("a-example-com/conversations")})
	b.Publish(Event{Kind: PathChanged("b-example-com/conversations")})

	select {
	case evt := <-ch:
		if evt.Kind != PathChanged("a-example-com/conversations") {
			t.Errorf("got kind %q", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("write under another user key delivered: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("daemon.", 10)
	unsub()

	b.Publish(Event{Kind: "daemon.status_changed"})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	b.Publish(Event{Kind: "test.one"})
	// Dropped: buffer is full and Publish never blocks.
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
}
