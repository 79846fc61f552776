package bus

import (
	"encoding/json"
	"time"
)

// Event is a domain event published on the bus. Kind is a dot-separated
// name; subscribers match on prefixes.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Store-change events carry the written path in the kind itself, so a
// prefix subscription on a path observes the whole subtree under it, the
// way the backing store's native observation works.
const pathChangedPrefix = "store.changed:"

// PathChanged returns the event kind for a write at path. Subscribing to
// PathChanged(p) delivers writes at p and at every path below it.
func PathChanged(path string) string {
	return pathChangedPrefix + path
}

// PathChange is the payload of a store-change event.
type PathChange struct {
	Path  string
	Value json.RawMessage
}
