package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/alexcole/firechat/internal/bus"
)

// ErrNotFound is returned by Get when no value exists at a path. Whether
// that means "empty" or "not yet created" is up to the caller's context.
var ErrNotFound = errors.New("store: path not found")

// Store is the hierarchical key-path value store the sync layer runs
// against. Values are whole JSON documents: a Set atomically replaces the
// entire document at one path. There are no multi-path transactions, so
// concurrent read-modify-write sequences on the same path race with
// last-write-wins semantics.
type Store interface {
	// Get returns the JSON document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (json.RawMessage, error)

	// Set marshals v and atomically replaces the document at path.
	Set(ctx context.Context, path string, v any) error

	// Observe returns a snapshot stream for path and the subtree below
	// it. The current value, if any, is delivered first; every later
	// successful Set on the subtree delivers another snapshot. The
	// channel closes when ctx is done or the cancel func is called.
	Observe(ctx context.Context, path string) (<-chan Snapshot, func())
}

// Snapshot is one observed value.
type Snapshot struct {
	Path  string
	Value json.RawMessage
}

// observe implements Observe on top of the bus for every backend: an
// initial Get, then bus path-change events for the subtree.
func observe(ctx context.Context, s Store, b *bus.Bus, path string) (<-chan Snapshot, func()) {
	ctx, cancel := context.WithCancel(ctx)
	events, unsub := b.Subscribe(bus.PathChanged(path), 64)
	out := make(chan Snapshot, 16)

	go func() {
		defer close(out)
		defer unsub()

		if v, err := s.Get(ctx, path); err == nil {
			select {
			case out <- Snapshot{Path: path, Value: v}:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case evt := <-events:
				pc, ok := evt.Payload.(bus.PathChange)
				if !ok {
					continue
				}
				select {
				case out <- Snapshot{Path: pc.Path, Value: pc.Value}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel
}

// publish emits the path-change event after a successful Set.
func publish(b *bus.Bus, path string, value json.RawMessage) {
	if b == nil {
		return
	}
	b.Publish(bus.Event{
		Kind:      bus.PathChanged(path),
		Timestamp: time.Now(),
		Payload:   bus.PathChange{Path: path, Value: value},
	})
}
