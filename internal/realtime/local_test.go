package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgulec/taskroom/internal/jsonstore"
	"github.com/mgulec/taskroom/pkg/logger"
)

func setupLocalStore(t *testing.T) (*LocalStore, *jsonstore.Store) {
	docs, err := jsonstore.New(t.TempDir())
	require.NoError(t, err)

	store, err := NewLocalStore(docs, "testdoc", logger.NewLogger("error", ""))
	require.NoError(t, err)
	return store, docs
}

type payload struct {
	Value string `json:"value"`
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	store, _ := setupLocalStore(t)
	ctx := context.Background()

	_, err := store.Push(ctx, "items", payload{Value: "first"})
	require.NoError(t, err)

	var got Snapshot
	sub, err := store.Subscribe(ctx, "items", func(snap Snapshot) { got = snap })
	require.NoError(t, err)
	defer store.Unsubscribe(sub)

	require.Len(t, got, 1)
	var p payload
	require.NoError(t, json.Unmarshal(got[0].Value, &p))
	assert.Equal(t, "first", p.Value)
}

func TestEverySnapshotIsFullReplace(t *testing.T) {
	store, _ := setupLocalStore(t)
	ctx := context.Background()

	var snapshots []Snapshot
	sub, err := store.Subscribe(ctx, "items", func(snap Snapshot) {
		snapshots = append(snapshots, snap)
	})
	require.NoError(t, err)
	defer store.Unsubscribe(sub)

	_, err = store.Push(ctx, "items", payload{Value: "a"})
	require.NoError(t, err)
	_, err = store.Push(ctx, "items", payload{Value: "b"})
	require.NoError(t, err)

	// Initial empty snapshot, then one entry, then two.
	require.Len(t, snapshots, 3)
	assert.Len(t, snapshots[0], 0)
	assert.Len(t, snapshots[1], 1)
	assert.Len(t, snapshots[2], 2)
}

func TestSnapshotKeyOrderIsInsertionOrder(t *testing.T) {
	store, _ := setupLocalStore(t)
	ctx := context.Background()

	k1, err := store.Push(ctx, "items", payload{Value: "a"})
	require.NoError(t, err)
	k2, err := store.Push(ctx, "items", payload{Value: "b"})
	require.NoError(t, err)
	k3, err := store.Push(ctx, "items", payload{Value: "c"})
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx, "items")
	require.NoError(t, err)
	assert.Equal(t, []string{k1, k2, k3}, snap.Keys())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	store, _ := setupLocalStore(t)
	ctx := context.Background()

	calls := 0
	sub, err := store.Subscribe(ctx, "items", func(Snapshot) { calls++ })
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	require.NoError(t, store.Unsubscribe(sub))

	_, err = store.Push(ctx, "items", payload{Value: "late"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRemoveClearsSubtree(t *testing.T) {
	store, _ := setupLocalStore(t)
	ctx := context.Background()

	roomID, err := store.Push(ctx, "rooms", payload{Value: "room"})
	require.NoError(t, err)
	_, err = store.Push(ctx, "rooms/"+roomID+"/messages", payload{Value: "hello"})
	require.NoError(t, err)

	var lastRooms, lastMsgs Snapshot
	subRooms, err := store.Subscribe(ctx, "rooms", func(s Snapshot) { lastRooms = s })
	require.NoError(t, err)
	defer store.Unsubscribe(subRooms)
	subMsgs, err := store.Subscribe(ctx, "rooms/"+roomID+"/messages", func(s Snapshot) { lastMsgs = s })
	require.NoError(t, err)
	defer store.Unsubscribe(subMsgs)

	require.Len(t, lastRooms, 1)
	require.Len(t, lastMsgs, 1)

	require.NoError(t, store.Remove(ctx, "rooms"))

	assert.Len(t, lastRooms, 0)
	assert.Len(t, lastMsgs, 0)
}

func TestDataSurvivesReopen(t *testing.T) {
	docs, err := jsonstore.New(t.TempDir())
	require.NoError(t, err)

	store, err := NewLocalStore(docs, "testdoc", logger.NewLogger("error", ""))
	require.NoError(t, err)

	ctx := context.Background()
	key, err := store.Push(ctx, "items", payload{Value: "persisted"})
	require.NoError(t, err)

	reopened, err := NewLocalStore(docs, "testdoc", logger.NewLogger("error", ""))
	require.NoError(t, err)

	snap, err := reopened.Snapshot(ctx, "items")
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, key, snap[0].Key)
}
