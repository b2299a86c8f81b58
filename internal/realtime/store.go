// Package realtime abstracts the shared key-path observable store the chat
// engine runs on. Values live in flat collections addressed by slash-delimited
// paths ("rooms", "rooms/{id}/messages"). Every change to a collection is
// delivered to its subscribers as a full snapshot that replaces whatever the
// subscriber cached before; there is no incremental diffing and no merge
// logic, last writer wins.
package realtime

import (
	"context"
	"encoding/json"
)

// Entry is one child of a collection. Keys are store-generated and
// lexicographically time-ordered, so key order is chronological.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// Snapshot is the full state of one collection, ascending by key.
type Snapshot []Entry

// Keys returns the entry keys in snapshot order.
func (s Snapshot) Keys() []string {
	keys := make([]string, len(s))
	for i, e := range s {
		keys[i] = e.Key
	}
	return keys
}

// SnapshotFunc receives the authoritative state of a collection. Handlers for
// a given path are invoked in the order the store emits changes; they must
// not call back into the store.
type SnapshotFunc func(Snapshot)

// Subscription is the handle returned by Subscribe, used to cancel delivery.
type Subscription struct {
	path   string
	id     string
	cancel func() error
}

func (s *Subscription) Path() string { return s.path }

// Store is the adapter over the real-time backend. Two implementations
// exist: a file-backed single-process store and a Redis+NATS shared store.
type Store interface {
	// Push appends v under a fresh store-generated key and returns that key.
	Push(ctx context.Context, path string, v interface{}) (string, error)
	// Set writes v under an explicit key.
	Set(ctx context.Context, path, key string, v interface{}) error
	// Remove deletes the collection at path and every collection below it.
	Remove(ctx context.Context, path string) error
	// Snapshot reads the current state of the collection at path.
	Snapshot(ctx context.Context, path string) (Snapshot, error)
	// Subscribe registers fn for path. The current snapshot is delivered
	// once immediately, then again on every change until Unsubscribe.
	Subscribe(ctx context.Context, path string, fn SnapshotFunc) (*Subscription, error)
	// Unsubscribe tears down a subscription. Safe to call once per handle.
	Unsubscribe(sub *Subscription) error
	Close() error
}
