package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mgulec/taskroom/internal/domain"
	"github.com/mgulec/taskroom/internal/realtime"
	"github.com/mgulec/taskroom/pkg/logger"
)

const roomsPath = "rooms"

var (
	ErrEmptyRoomFields = errors.New("room name and password cannot be empty")
	ErrRoomExists      = errors.New("room with this name already exists")
	ErrRoomNotFound    = errors.New("room not found")
	ErrWrongPassword   = errors.New("incorrect password")
)

func messagesPath(roomID string) string {
	return roomsPath + "/" + roomID + "/messages"
}

// ChatService is the room directory. It keeps a standing subscription on the
// rooms collection and wholesale-replaces its cache on every snapshot, so
// name-uniqueness checks run against an eventually-consistent view: two
// clients can still create the same name concurrently. That race is part of
// the contract; both records land in the store and join matches whichever
// scans first.
type ChatService struct {
	store realtime.Store

	mu    sync.RWMutex
	rooms map[string]domain.Room

	sub        *realtime.Subscription
	enumerable bool
	logg       logger.Logger
}

// NewChatService builds the directory and establishes the rooms subscription.
// enumerable controls whether Directory lists anything; the shared backend
// hides rooms so they are only discoverable by exact name and password.
func NewChatService(ctx context.Context, store realtime.Store, enumerable bool, logg logger.Logger) (*ChatService, error) {
	s := &ChatService{
		store:      store,
		rooms:      make(map[string]domain.Room),
		enumerable: enumerable,
		logg:       logg,
	}

	sub, err := store.Subscribe(ctx, roomsPath, s.replaceCache)
	if err != nil {
		return nil, fmt.Errorf("subscribe rooms: %w", err)
	}
	s.sub = sub
	return s, nil
}

func (s *ChatService) replaceCache(snap realtime.Snapshot) {
	rooms := make(map[string]domain.Room, len(snap))
	for _, e := range snap {
		var r domain.Room
		if err := json.Unmarshal(e.Value, &r); err != nil {
			s.logg.Errorf("skip malformed room %s: %v", e.Key, err)
			continue
		}
		rooms[e.Key] = r
	}

	s.mu.Lock()
	s.rooms = rooms
	s.mu.Unlock()
}

// CreateRoom writes a new room record and returns its store key. Duplicate
// names are rejected against the latest cached snapshot.
func (s *ChatService) CreateRoom(ctx context.Context, name, password string) (string, domain.Room, error) {
	if name == "" || password == "" {
		return "", domain.Room{}, ErrEmptyRoomFields
	}

	s.mu.RLock()
	for _, r := range s.rooms {
		if r.Name == name {
			s.mu.RUnlock()
			return "", domain.Room{}, ErrRoomExists
		}
	}
	s.mu.RUnlock()

	room := domain.Room{
		Name:      name,
		Password:  password,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	id, err := s.store.Push(ctx, roomsPath, room)
	if err != nil {
		return "", domain.Room{}, fmt.Errorf("create room: %w", err)
	}

	s.logg.Infof("room %q created as %s", name, id)
	return id, room, nil
}

// JoinRoom scans the cached directory for an exact name match and checks the
// password with plain equality.
func (s *ChatService) JoinRoom(name, password string) (string, domain.Room, error) {
	if name == "" || password == "" {
		return "", domain.Room{}, ErrEmptyRoomFields
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, r := range s.rooms {
		if r.Name == name {
			if r.Password != password {
				return "", domain.Room{}, ErrWrongPassword
			}
			return id, r, nil
		}
	}
	return "", domain.Room{}, ErrRoomNotFound
}

// Directory enumerates the known rooms with their message counts. Returns nil
// when enumeration is disabled.
func (s *ChatService) Directory(ctx context.Context) ([]domain.RoomInfo, error) {
	if !s.enumerable {
		return nil, nil
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.rooms))
	cached := make(map[string]domain.Room, len(s.rooms))
	for id, r := range s.rooms {
		ids = append(ids, id)
		cached[id] = r
	}
	s.mu.RUnlock()

	infos := make([]domain.RoomInfo, 0, len(ids))
	for _, id := range ids {
		snap, err := s.store.Snapshot(ctx, messagesPath(id))
		if err != nil {
			return nil, fmt.Errorf("count messages for %s: %w", id, err)
		}
		infos = append(infos, domain.RoomInfo{
			ID:           id,
			Name:         cached[id].Name,
			CreatedAt:    cached[id].CreatedAt,
			MessageCount: len(snap),
		})
	}
	return infos, nil
}

// WipeRooms is the admin bulk delete: every room and every message goes.
func (s *ChatService) WipeRooms(ctx context.Context) error {
	s.logg.Warnf("wiping all rooms")
	return s.store.Remove(ctx, roomsPath)
}

// Close tears down the directory subscription.
func (s *ChatService) Close() error {
	if s.sub == nil {
		return nil
	}
	err := s.store.Unsubscribe(s.sub)
	s.sub = nil
	return err
}
