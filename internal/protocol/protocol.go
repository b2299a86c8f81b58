// Package protocol defines the JSON command/event surface spoken over the
// websocket. One envelope struct per direction with omitempty fields, so the
// wire stays readable and the codec trivial.
package protocol

import "github.com/mgulec/taskroom/internal/domain"

// Command types (client to server).
const (
	CmdAddTask     = "add_task"
	CmdToggleTask  = "toggle_task"
	CmdDeleteTask  = "delete_task"
	CmdSetUsername = "set_username"
	CmdCreateRoom  = "create_room"
	CmdJoinRoom    = "join_room"
	CmdSendMessage = "send_message"
	CmdLeaveRoom   = "leave_room"
	CmdLeaveChat   = "leave_chat"
	CmdWipeRooms   = "wipe_rooms"
)

// Event types (server to client).
const (
	EventTaskList         = "task_list"
	EventInputRejected    = "input_rejected"
	EventChatActivated    = "chat_activated"
	EventUsernameAccepted = "username_accepted"
	EventRoomDirectory    = "room_directory"
	EventRoomEntered      = "room_entered"
	EventRoomLeft         = "room_left"
	EventMessages         = "messages"
	EventConfirmWipe      = "confirm_wipe"
	EventWipeDone         = "wipe_done"
	EventError            = "error"
)

// Input fields named by input_rejected so the client knows what to shake.
const (
	FieldTask     = "task"
	FieldUsername = "username"
)

type Command struct {
	Type     string `json:"type" validate:"required,oneof=add_task toggle_task delete_task set_username create_room join_room send_message leave_room leave_chat wipe_rooms"`
	Text     string `json:"text,omitempty"`
	ID       int64  `json:"id,omitempty" validate:"required_if=Type toggle_task,required_if=Type delete_task"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
	Confirm  bool   `json:"confirm,omitempty"`
}

// TaskView is the client-facing task shape; Removing is transient server
// state the client renders as the removal animation.
type TaskView struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"createdAt"`
	Removing  bool   `json:"removing,omitempty"`
}

// MessageView is a message with the own-message cue resolved against the
// session's display name.
type MessageView struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	Own       bool   `json:"own,omitempty"`
}

type Event struct {
	Type         string            `json:"type"`
	Tasks        []TaskView        `json:"tasks,omitempty"`
	Stats        *domain.TaskStats `json:"stats,omitempty"`
	Field        string            `json:"field,omitempty"`
	NeedUsername bool              `json:"needUsername,omitempty"`
	Name         string            `json:"name,omitempty"`
	Rooms        []domain.RoomInfo `json:"rooms,omitempty"`
	Room         string            `json:"room,omitempty"`
	Messages     []MessageView     `json:"messages,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// TaskViews converts domain tasks for the wire.
func TaskViews(tasks []domain.Task) []TaskView {
	views := make([]TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = TaskView{
			ID:        t.ID,
			Text:      t.Text,
			Completed: t.Completed,
			CreatedAt: t.CreatedAt,
			Removing:  t.Removing,
		}
	}
	return views
}

// MessageViews converts domain messages, marking those sent by username.
func MessageViews(msgs []domain.Message, username string) []MessageView {
	views := make([]MessageView, len(msgs))
	for i, m := range msgs {
		views[i] = MessageView{
			Text:      m.Text,
			Timestamp: m.Timestamp,
			Sender:    m.Sender,
			Own:       m.Sender == username,
		}
	}
	return views
}
