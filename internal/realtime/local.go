package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mgulec/taskroom/internal/jsonstore"
	"github.com/mgulec/taskroom/pkg/logger"
)

// LocalStore is the single-process generation of the chat backend: the whole
// tree is one JSON document on disk, rewritten wholesale on every mutation,
// with in-process subscriber fanout. Nothing is shared between server
// instances.
type LocalStore struct {
	mu   sync.Mutex
	docs *jsonstore.Store
	name string
	tree map[string]map[string]json.RawMessage
	subs map[string]map[string]SnapshotFunc
	logg logger.Logger
}

func NewLocalStore(docs *jsonstore.Store, name string, logg logger.Logger) (*LocalStore, error) {
	s := &LocalStore{
		docs: docs,
		name: name,
		tree: make(map[string]map[string]json.RawMessage),
		subs: make(map[string]map[string]SnapshotFunc),
		logg: logg,
	}
	if err := docs.Load(name, &s.tree); err != nil {
		return nil, fmt.Errorf("load local store: %w", err)
	}
	if s.tree == nil {
		s.tree = make(map[string]map[string]json.RawMessage)
	}
	return s, nil
}

func (s *LocalStore) Push(ctx context.Context, path string, v interface{}) (string, error) {
	key := NewPushID()
	if err := s.Set(ctx, path, key, v); err != nil {
		return "", err
	}
	return key, nil
}

func (s *LocalStore) Set(_ context.Context, path, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.tree[path]
	if !ok {
		coll = make(map[string]json.RawMessage)
		s.tree[path] = coll
	}
	coll[key] = raw

	if err := s.persistLocked(); err != nil {
		return err
	}
	s.notifyLocked(path)
	return nil
}

func (s *LocalStore) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]string, 0, 1)
	for p := range s.tree {
		if p == path || strings.HasPrefix(p, path+"/") {
			delete(s.tree, p)
			removed = append(removed, p)
		}
	}

	if err := s.persistLocked(); err != nil {
		return err
	}
	// Subscribers of wiped paths get an empty snapshot, including paths that
	// held no data but have listeners attached.
	notified := make(map[string]bool, len(removed))
	for _, p := range removed {
		s.notifyLocked(p)
		notified[p] = true
	}
	for p := range s.subs {
		if !notified[p] && (p == path || strings.HasPrefix(p, path+"/")) {
			s.notifyLocked(p)
		}
	}
	return nil
}

func (s *LocalStore) Snapshot(_ context.Context, path string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(path), nil
}

func (s *LocalStore) Subscribe(_ context.Context, path string, fn SnapshotFunc) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	if s.subs[path] == nil {
		s.subs[path] = make(map[string]SnapshotFunc)
	}
	s.subs[path][id] = fn

	// Initial delivery, same as every later one: the full current state.
	fn(s.snapshotLocked(path))

	return &Subscription{
		path: path,
		id:   id,
		cancel: func() error {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[path], id)
			return nil
		},
	}, nil
}

func (s *LocalStore) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.cancel()
}

func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = make(map[string]map[string]SnapshotFunc)
	return nil
}

// snapshotLocked builds the ascending-key view of one collection.
func (s *LocalStore) snapshotLocked(path string) Snapshot {
	coll := s.tree[path]
	snap := make(Snapshot, 0, len(coll))
	for k, v := range coll {
		snap = append(snap, Entry{Key: k, Value: v})
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].Key < snap[j].Key })
	return snap
}

func (s *LocalStore) persistLocked() error {
	if err := s.docs.Save(s.name, s.tree); err != nil {
		return fmt.Errorf("persist local store: %w", err)
	}
	return nil
}

// notifyLocked delivers the current snapshot of path to its subscribers.
// Mutations are serialized on s.mu, so per-path delivery order matches
// mutation order. Handlers must not call back into the store.
func (s *LocalStore) notifyLocked(path string) {
	snap := s.snapshotLocked(path)
	for _, fn := range s.subs[path] {
		fn(snap)
	}
}
