package websocket

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mgulec/taskroom/internal/domain"
	"github.com/mgulec/taskroom/internal/metrics"
	"github.com/mgulec/taskroom/internal/protocol"
	"github.com/mgulec/taskroom/internal/realtime"
	"github.com/mgulec/taskroom/pkg/logger"
	"github.com/mgulec/taskroom/service"
)

const maxCmdRPS = 20

// Connection is one attached client: its own display name, its own active
// room, its own subscriptions. It plays the role of a browser session, so
// identity lives exactly as long as the connection does.
type Connection struct {
	ID   string
	Ws   *websocket.Conn
	Send chan protocol.Event
	Hub  *Hub

	Tasks    *service.TaskService
	Chat     *service.ChatService
	Store    realtime.Store
	Metrics  *metrics.Metrics
	Validate *validator.Validate
	Logger   logger.Logger

	// RootCtx outlives individual commands; store subscriptions hang off it.
	RootCtx context.Context

	session     *service.RoomSession
	username    string
	chatActive  bool
	pendingWipe bool
	limiter     *rate.Limiter

	// sendMu guards Send against the hub closing it while a store
	// subscription handler is still delivering on another goroutine.
	sendMu     sync.Mutex
	sendClosed bool
}

// CloseSend closes the send channel exactly once. Only the hub calls this;
// enqueue checks the flag under the same mutex, so no goroutine can write
// to the channel after it is closed.
func (c *Connection) CloseSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.Send)
}

// ReadPump consumes commands until the peer goes away, then tears down the
// session subscription and unregisters from the hub.
func (c *Connection) ReadPump() {
	defer func() {
		if c.session != nil {
			_ = c.session.Leave()
		}
		c.Hub.Unregister <- c
		c.Ws.Close()
	}()

	if c.limiter == nil {
		c.limiter = rate.NewLimiter(rate.Limit(maxCmdRPS), 2*maxCmdRPS)
	}

	// First thing every client sees: the current task list.
	c.enqueue(taskListEvent(c.Tasks.List(), c.Tasks.Stats()))

	for {
		var cmd protocol.Command
		if err := c.Ws.ReadJSON(&cmd); err != nil {
			c.Logger.Debugf("connection %s closed: %v", c.ID, err)
			return
		}

		if !c.limiter.Allow() {
			c.enqueue(errorEvent("too many commands, slow down"))
			continue
		}
		if err := c.Validate.Struct(cmd); err != nil {
			c.enqueue(errorEvent("malformed command"))
			continue
		}

		c.Metrics.Commands.WithLabelValues(cmd.Type).Inc()
		c.dispatch(cmd)
	}
}

// WritePump drains the send channel onto the socket.
func (c *Connection) WritePump() {
	defer c.Ws.Close()

	for ev := range c.Send {
		if err := c.Ws.WriteJSON(ev); err != nil {
			c.Logger.Debugf("write to %s failed: %v", c.ID, err)
			return
		}
	}
}

func (c *Connection) dispatch(cmd protocol.Command) {
	switch cmd.Type {
	case protocol.CmdAddTask:
		c.handleAddTask(cmd.Text)
	case protocol.CmdToggleTask:
		if err := c.Tasks.Toggle(cmd.ID); err != nil {
			c.enqueue(errorEvent(err.Error()))
		}
	case protocol.CmdDeleteTask:
		c.Tasks.Delete(cmd.ID)
	case protocol.CmdSetUsername:
		c.handleSetUsername(cmd.Name)
	case protocol.CmdCreateRoom:
		c.handleCreateRoom(cmd.Name, cmd.Password)
	case protocol.CmdJoinRoom:
		c.handleJoinRoom(cmd.Name, cmd.Password)
	case protocol.CmdSendMessage:
		c.handleSendMessage(cmd.Text)
	case protocol.CmdLeaveRoom:
		c.handleLeaveRoom()
	case protocol.CmdLeaveChat:
		c.handleLeaveChat()
	case protocol.CmdWipeRooms:
		c.handleWipeRooms(cmd.Confirm)
	}
}

func (c *Connection) handleAddTask(text string) {
	outcome, _, err := c.Tasks.Add(text)
	if err != nil {
		c.enqueue(errorEvent(err.Error()))
		return
	}

	switch outcome {
	case service.OutcomeAdded:
		c.Metrics.TasksCreated.Inc()
	case service.OutcomeEmpty:
		c.enqueue(protocol.Event{Type: protocol.EventInputRejected, Field: protocol.FieldTask})
	case service.OutcomeSecretCode:
		c.activateChat()
	case service.OutcomeAdminWipe:
		c.pendingWipe = true
		c.enqueue(protocol.Event{Type: protocol.EventConfirmWipe})
	}
}

// activateChat is the secret-code gate. Wiring runs at most once per
// connection; repeat activations just re-send the current chat state.
func (c *Connection) activateChat() {
	c.chatActive = true

	if c.username == "" {
		c.enqueue(protocol.Event{Type: protocol.EventChatActivated, NeedUsername: true})
		return
	}
	c.enqueue(protocol.Event{Type: protocol.EventChatActivated})
	c.sendDirectory()
}

func (c *Connection) handleSetUsername(name string) {
	name = trimmed(name)
	if name == "" {
		c.enqueue(protocol.Event{Type: protocol.EventInputRejected, Field: protocol.FieldUsername})
		return
	}
	if c.username != "" {
		// Chosen once per session; later attempts are ignored.
		c.enqueue(protocol.Event{Type: protocol.EventUsernameAccepted, Name: c.username})
		return
	}

	c.username = name
	c.enqueue(protocol.Event{Type: protocol.EventUsernameAccepted, Name: name})
	if c.chatActive {
		c.sendDirectory()
	}
}

// sessionFor lazily builds the room session once the display name is known.
func (c *Connection) sessionFor() *service.RoomSession {
	if c.session == nil {
		c.session = service.NewRoomSession(c.Store, c.username, func(roomID string, msgs []domain.Message) {
			c.enqueue(protocol.Event{
				Type:     protocol.EventMessages,
				Room:     roomID,
				Messages: protocol.MessageViews(msgs, c.username),
			})
		}, c.Logger)
	}
	return c.session
}

func (c *Connection) handleCreateRoom(name, password string) {
	if c.username == "" {
		c.enqueue(errorEvent("choose a display name first"))
		return
	}

	id, room, err := c.Chat.CreateRoom(c.RootCtx, trimmed(name), trimmed(password))
	if err != nil {
		c.enqueue(errorEvent(err.Error()))
		return
	}
	c.Metrics.RoomsCreated.Inc()
	c.enterRoom(id, room)
}

func (c *Connection) handleJoinRoom(name, password string) {
	if c.username == "" {
		c.enqueue(errorEvent("choose a display name first"))
		return
	}

	id, room, err := c.Chat.JoinRoom(trimmed(name), trimmed(password))
	if err != nil {
		c.enqueue(errorEvent(err.Error()))
		return
	}
	c.enterRoom(id, room)
}

func (c *Connection) enterRoom(id string, room domain.Room) {
	if err := c.sessionFor().Enter(c.RootCtx, id, room); err != nil {
		c.enqueue(errorEvent(err.Error()))
		return
	}
	c.enqueue(protocol.Event{Type: protocol.EventRoomEntered, Name: room.Name, Room: id})
}

func (c *Connection) handleSendMessage(text string) {
	if c.session == nil {
		return
	}
	if err := c.session.Send(c.RootCtx, text); err != nil {
		c.enqueue(errorEvent(err.Error()))
		return
	}
	if _, _, active := c.session.Active(); active {
		c.Metrics.MessagesSent.Inc()
	}
}

func (c *Connection) handleLeaveRoom() {
	if c.session != nil {
		if err := c.session.Leave(); err != nil {
			c.Logger.Errorf("leave room: %v", err)
		}
	}
	c.enqueue(protocol.Event{Type: protocol.EventRoomLeft})
	c.sendDirectory()
}

func (c *Connection) handleLeaveChat() {
	if c.session != nil {
		if err := c.session.Leave(); err != nil {
			c.Logger.Errorf("leave chat: %v", err)
		}
	}
	c.chatActive = false
	c.enqueue(taskListEvent(c.Tasks.List(), c.Tasks.Stats()))
}

func (c *Connection) handleWipeRooms(confirm bool) {
	if !c.pendingWipe || !confirm {
		c.pendingWipe = false
		return
	}
	c.pendingWipe = false

	if err := c.Chat.WipeRooms(c.RootCtx); err != nil {
		c.enqueue(errorEvent(err.Error()))
		return
	}
	c.enqueue(protocol.Event{Type: protocol.EventWipeDone})
}

// sendDirectory emits the room listing when the backend allows enumeration;
// the shared backend returns nothing and clients show the join/create form
// only.
func (c *Connection) sendDirectory() {
	rooms, err := c.Chat.Directory(c.RootCtx)
	if err != nil {
		c.enqueue(errorEvent(err.Error()))
		return
	}
	c.enqueue(protocol.Event{Type: protocol.EventRoomDirectory, Rooms: rooms})
}

// enqueue hands an event to the write pump without ever blocking the caller;
// a full buffer drops the event and relies on the next snapshot to catch the
// client up. Events for a connection the hub already dropped are discarded.
func (c *Connection) enqueue(ev protocol.Event) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return
	}
	select {
	case c.Send <- ev:
	default:
		c.Logger.Warnf("send buffer full on %s, dropping %s", c.ID, ev.Type)
	}
}

func taskListEvent(tasks []domain.Task, stats domain.TaskStats) protocol.Event {
	return protocol.Event{
		Type:  protocol.EventTaskList,
		Tasks: protocol.TaskViews(tasks),
		Stats: &stats,
	}
}

func errorEvent(msg string) protocol.Event {
	return protocol.Event{Type: protocol.EventError, Message: msg}
}

func trimmed(s string) string { return strings.TrimSpace(s) }
