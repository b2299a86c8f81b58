package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgulec/taskroom/internal/domain"
	"github.com/mgulec/taskroom/internal/jsonstore"
	"github.com/mgulec/taskroom/internal/realtime"
	"github.com/mgulec/taskroom/pkg/logger"
)

func setupChat(t *testing.T) (*ChatService, realtime.Store) {
	docs, err := jsonstore.New(t.TempDir())
	require.NoError(t, err)

	store, err := realtime.NewLocalStore(docs, "chatrooms", logger.NewLogger("error", ""))
	require.NoError(t, err)

	svc, err := NewChatService(context.Background(), store, true, logger.NewLogger("error", ""))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	return svc, store
}

func TestCreateRoomAndAutoJoin(t *testing.T) {
	svc, _ := setupChat(t)
	ctx := context.Background()

	id, room, err := svc.CreateRoom(ctx, "alpha", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "alpha", room.Name)

	// The standing subscription already reflects the write, so join finds it.
	gotID, gotRoom, err := svc.JoinRoom("alpha", "secret123")
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, room, gotRoom)
}

func TestCreateRoomRejectsEmptyFields(t *testing.T) {
	svc, _ := setupChat(t)
	ctx := context.Background()

	_, _, err := svc.CreateRoom(ctx, "", "pw")
	assert.ErrorIs(t, err, ErrEmptyRoomFields)
	_, _, err = svc.CreateRoom(ctx, "name", "")
	assert.ErrorIs(t, err, ErrEmptyRoomFields)
}

func TestCreateDuplicateNameRejected(t *testing.T) {
	svc, _ := setupChat(t)
	ctx := context.Background()

	_, _, err := svc.CreateRoom(ctx, "alpha", "secret123")
	require.NoError(t, err)

	_, _, err = svc.CreateRoom(ctx, "alpha", "other")
	assert.ErrorIs(t, err, ErrRoomExists)
}

func TestRoomNamesAreCaseSensitive(t *testing.T) {
	svc, _ := setupChat(t)
	ctx := context.Background()

	_, _, err := svc.CreateRoom(ctx, "alpha", "pw1")
	require.NoError(t, err)
	_, _, err = svc.CreateRoom(ctx, "Alpha", "pw2")
	require.NoError(t, err)
}

func TestJoinFailures(t *testing.T) {
	svc, _ := setupChat(t)
	ctx := context.Background()

	_, _, err := svc.CreateRoom(ctx, "alpha", "secret123")
	require.NoError(t, err)

	_, _, err = svc.JoinRoom("beta", "whatever")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, _, err = svc.JoinRoom("alpha", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestDirectoryListsRoomsWithMessageCounts(t *testing.T) {
	svc, store := setupChat(t)
	ctx := context.Background()

	id, room, err := svc.CreateRoom(ctx, "alpha", "secret123")
	require.NoError(t, err)

	session := NewRoomSession(store, "ayse", func(string, []domain.Message) {}, logger.NewLogger("error", ""))
	require.NoError(t, session.Enter(ctx, id, room))
	require.NoError(t, session.Send(ctx, "hello"))
	require.NoError(t, session.Send(ctx, "again"))

	infos, err := svc.Directory(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, 2, infos[0].MessageCount)
}

func TestDirectoryHiddenWhenNotEnumerable(t *testing.T) {
	docs, err := jsonstore.New(t.TempDir())
	require.NoError(t, err)
	store, err := realtime.NewLocalStore(docs, "chatrooms", logger.NewLogger("error", ""))
	require.NoError(t, err)

	svc, err := NewChatService(context.Background(), store, false, logger.NewLogger("error", ""))
	require.NoError(t, err)
	defer svc.Close()

	_, _, err = svc.CreateRoom(context.Background(), "hidden", "pw")
	require.NoError(t, err)

	infos, err := svc.Directory(context.Background())
	require.NoError(t, err)
	assert.Nil(t, infos)
}

func TestWipeRoomsClearsEverything(t *testing.T) {
	svc, store := setupChat(t)
	ctx := context.Background()

	id, room, err := svc.CreateRoom(ctx, "alpha", "secret123")
	require.NoError(t, err)

	session := NewRoomSession(store, "ayse", func(string, []domain.Message) {}, logger.NewLogger("error", ""))
	require.NoError(t, session.Enter(ctx, id, room))
	require.NoError(t, session.Send(ctx, "doomed"))

	require.NoError(t, svc.WipeRooms(ctx))

	_, _, err = svc.JoinRoom("alpha", "secret123")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	snap, err := store.Snapshot(ctx, "rooms")
	require.NoError(t, err)
	assert.Len(t, snap, 0)
}
