package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mgulec/taskroom/internal/nats"
	"github.com/mgulec/taskroom/internal/redis"
	"github.com/mgulec/taskroom/pkg/logger"
)

const keyPrefix = "rt:"

// RemoteStore is the shared generation of the chat backend: collection data
// lives in Redis (one hash per path), change notifications travel over NATS
// (one subject per path). On every notification a subscriber re-reads the
// full collection and treats it as authoritative, so all clients converge on
// whatever Redis holds; concurrent writers race and the last one wins.
type RemoteStore struct {
	redis *redis.Client
	nats  *nats.Client
	logg  logger.Logger
}

func NewRemoteStore(rc *redis.Client, nc *nats.Client, logg logger.Logger) *RemoteStore {
	return &RemoteStore{redis: rc, nats: nc, logg: logg}
}

// subjectFor maps a store path to its NATS subject ("rooms/x/messages" ->
// "store.rooms.x.messages").
func subjectFor(path string) string {
	return "store." + strings.ReplaceAll(path, "/", ".")
}

func (s *RemoteStore) Push(ctx context.Context, path string, v interface{}) (string, error) {
	key := NewPushID()
	if err := s.Set(ctx, path, key, v); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RemoteStore) Set(ctx context.Context, path, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", path, err)
	}
	if err := s.redis.HSet(ctx, keyPrefix+path, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := s.nats.Publish(subjectFor(path), nil); err != nil {
		// The write is durable; only the notification failed. Subscribers
		// catch up on the next change.
		s.logg.Errorf("notify %s: %v", path, err)
	}
	return nil
}

func (s *RemoteStore) Remove(ctx context.Context, path string) error {
	keys, err := s.redis.ScanKeys(ctx, keyPrefix+path+"/*")
	if err != nil {
		return err
	}
	keys = append(keys, keyPrefix+path)
	if err := s.redis.Del(ctx, keys...); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	for _, k := range keys {
		if err := s.nats.Publish(subjectFor(strings.TrimPrefix(k, keyPrefix)), nil); err != nil {
			s.logg.Errorf("notify removal of %s: %v", k, err)
		}
	}
	return nil
}

func (s *RemoteStore) Snapshot(ctx context.Context, path string) (Snapshot, error) {
	fields, err := s.redis.HGetAll(ctx, keyPrefix+path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	snap := make(Snapshot, 0, len(fields))
	for k, v := range fields {
		snap = append(snap, Entry{Key: k, Value: json.RawMessage(v)})
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].Key < snap[j].Key })
	return snap, nil
}

func (s *RemoteStore) Subscribe(ctx context.Context, path string, fn SnapshotFunc) (*Subscription, error) {
	id := uuid.NewString()
	subKey := path + ":" + id

	deliver := func() {
		snap, err := s.Snapshot(ctx, path)
		if err != nil {
			s.logg.Errorf("snapshot %s: %v", path, err)
			return
		}
		fn(snap)
	}

	// NATS invokes handlers for one subscription sequentially, so per-path
	// delivery order follows emission order.
	if err := s.nats.Subscribe(subjectFor(path), subKey, func([]byte) {
		deliver()
	}); err != nil {
		return nil, err
	}

	deliver()

	return &Subscription{
		path:   path,
		id:     id,
		cancel: func() error { return s.nats.Unsubscribe(subKey) },
	}, nil
}

func (s *RemoteStore) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.cancel()
}

func (s *RemoteStore) Close() error {
	s.nats.CleanupSubscriptions()
	return nil
}
