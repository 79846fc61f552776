package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/alexcole/firechat/internal/bus"
)

// Memory is an in-process Store. Tests run against it, and it is the
// fallback backend when no persistent one is configured. It honors the
// same contract as the remote backends: per-path atomic replace,
// last-write-wins, change events on the bus.
type Memory struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
	bus  *bus.Bus
}

// NewMemory creates an empty in-memory store publishing changes on b.
func NewMemory(b *bus.Bus) *Memory {
	return &Memory{
		data: make(map[string]json.RawMessage),
		bus:  b,
	}
}

// Get returns the document at path, or ErrNotFound.
func (m *Memory) Get(_ context.Context, path string) (json.RawMessage, error) {
	m.mu.RLock()
	v, ok := m.data[path]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Set replaces the document at path.
func (m *Memory) Set(_ context.Context, path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", path, err)
	}
	m.mu.Lock()
	m.data[path] = raw
	m.mu.Unlock()

	publish(m.bus, path, raw)
	return nil
}

// Observe streams snapshots for path and its subtree.
func (m *Memory) Observe(ctx context.Context, path string) (<-chan Snapshot, func()) {
	return observe(ctx, m, m.bus, path)
}
