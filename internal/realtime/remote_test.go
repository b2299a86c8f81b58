package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgulec/taskroom/internal/nats"
	"github.com/mgulec/taskroom/internal/redis"
	"github.com/mgulec/taskroom/pkg/logger"
)

// Integration tests against live Redis and NATS. Skipped unless both URLs
// are provided, e.g.
//
//	TASKROOM_TEST_REDIS_URL=redis://localhost:6379/15 \
//	TASKROOM_TEST_NATS_URL=nats://localhost:4222 go test ./internal/realtime
func setupRemoteStore(t *testing.T) *RemoteStore {
	redisURL := os.Getenv("TASKROOM_TEST_REDIS_URL")
	natsURL := os.Getenv("TASKROOM_TEST_NATS_URL")
	if redisURL == "" || natsURL == "" {
		t.Skip("TASKROOM_TEST_REDIS_URL and TASKROOM_TEST_NATS_URL not set")
	}

	ctx := context.Background()

	nc, err := nats.NewClient(natsURL)
	require.NoError(t, err)

	rc, err := redis.NewClient(ctx, redisURL)
	require.NoError(t, err)
	require.NoError(t, rc.FlushAll(ctx))

	t.Cleanup(func() {
		rc.FlushAll(ctx)
		rc.Close()
		nc.Close()
	})

	return NewRemoteStore(rc, nc, logger.NewLogger("error", ""))
}

func TestRemotePushAndSnapshot(t *testing.T) {
	store := setupRemoteStore(t)
	ctx := context.Background()

	k1, err := store.Push(ctx, "items", payload{Value: "a"})
	require.NoError(t, err)
	k2, err := store.Push(ctx, "items", payload{Value: "b"})
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx, "items")
	require.NoError(t, err)
	assert.Equal(t, []string{k1, k2}, snap.Keys())
}

func TestRemoteSubscribeSeesChanges(t *testing.T) {
	store := setupRemoteStore(t)
	ctx := context.Background()

	snapshots := make(chan Snapshot, 4)
	sub, err := store.Subscribe(ctx, "items", func(s Snapshot) { snapshots <- s })
	require.NoError(t, err)
	defer store.Unsubscribe(sub)

	// Initial snapshot of the empty collection.
	select {
	case snap := <-snapshots:
		assert.Len(t, snap, 0)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	_, err = store.Push(ctx, "items", payload{Value: "live"})
	require.NoError(t, err)

	select {
	case snap := <-snapshots:
		assert.Len(t, snap, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("change was not delivered")
	}
}

func TestRemoteRemoveSubtree(t *testing.T) {
	store := setupRemoteStore(t)
	ctx := context.Background()

	roomID, err := store.Push(ctx, "rooms", payload{Value: "room"})
	require.NoError(t, err)
	_, err = store.Push(ctx, "rooms/"+roomID+"/messages", payload{Value: "msg"})
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, "rooms"))

	rooms, err := store.Snapshot(ctx, "rooms")
	require.NoError(t, err)
	assert.Len(t, rooms, 0)

	msgs, err := store.Snapshot(ctx, "rooms/"+roomID+"/messages")
	require.NoError(t, err)
	assert.Len(t, msgs, 0)
}
