package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mgulec/taskroom/internal/domain"
	"github.com/mgulec/taskroom/internal/realtime"
	"github.com/mgulec/taskroom/pkg/logger"
)

// MessageHandler receives the full message list of the active room whenever
// the store emits a snapshot.
type MessageHandler func(roomID string, msgs []domain.Message)

// RoomSession tracks one client's active room and its message-stream
// subscription. A client holds at most one subscription at a time: Enter
// tears down the previous one before establishing the next, so a violated
// leave/enter ordering can never stack duplicate listeners.
type RoomSession struct {
	store    realtime.Store
	username string
	onMsgs   MessageHandler
	logg     logger.Logger

	mu     sync.Mutex
	roomID string
	room   domain.Room
	sub    *realtime.Subscription
}

func NewRoomSession(store realtime.Store, username string, onMsgs MessageHandler, logg logger.Logger) *RoomSession {
	return &RoomSession{
		store:    store,
		username: username,
		onMsgs:   onMsgs,
		logg:     logg,
	}
}

// Enter makes roomID the active room. Re-entering the active room is a no-op;
// entering a different room unsubscribes the old stream first.
func (s *RoomSession) Enter(ctx context.Context, roomID string, room domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		if s.roomID == roomID {
			return nil
		}
		if err := s.store.Unsubscribe(s.sub); err != nil {
			return fmt.Errorf("leave %s: %w", s.roomID, err)
		}
		s.sub = nil
	}

	handler := s.onMsgs
	sub, err := s.store.Subscribe(ctx, messagesPath(roomID), func(snap realtime.Snapshot) {
		msgs := make([]domain.Message, 0, len(snap))
		for _, e := range snap {
			var m domain.Message
			if err := json.Unmarshal(e.Value, &m); err != nil {
				continue
			}
			msgs = append(msgs, m)
		}
		handler(roomID, msgs)
	})
	if err != nil {
		return fmt.Errorf("enter %s: %w", roomID, err)
	}

	s.roomID = roomID
	s.room = room
	s.sub = sub
	return nil
}

// Send pushes a message into the active room. Empty text or no active room is
// a no-op; there is no optimistic insert, the UI updates when the
// subscription echoes the write back.
func (s *RoomSession) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	roomID := s.roomID
	s.mu.Unlock()

	if text == "" || roomID == "" {
		return nil
	}

	msg := domain.Message{
		Text:      text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Sender:    s.username,
	}
	if _, err := s.store.Push(ctx, messagesPath(roomID), msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Leave tears down the active subscription. Safe to call with none active.
func (s *RoomSession) Leave() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return nil
	}
	err := s.store.Unsubscribe(s.sub)
	s.sub = nil
	s.roomID = ""
	s.room = domain.Room{}
	return err
}

// Active reports the current room, if any.
func (s *RoomSession) Active() (string, domain.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID, s.room, s.sub != nil
}

// Username is the sender stamped on every outgoing message.
func (s *RoomSession) Username() string { return s.username }
