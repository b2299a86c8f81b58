package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/mgulec/taskroom/internal/domain"
	"github.com/mgulec/taskroom/internal/protocol"
)

var addr = flag.String("addr", "localhost:8080", "server address")

type viewKind int

const (
	viewTasks viewKind = iota
	viewUsername
	viewDirectory
	viewRoom
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	doneStyle     = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	removingStyle = lipgloss.NewStyle().Faint(true).Foreground(lipgloss.Color("203"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	ownStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	senderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

type eventMsg protocol.Event

type connClosedMsg struct{}

type model struct {
	conn   *websocket.Conn
	events chan protocol.Event

	view viewKind

	taskInput textinput.Model
	userInput textinput.Model
	nameInput textinput.Model
	passInput textinput.Model
	msgInput  textinput.Model

	tasks  []protocol.TaskView
	stats  domain.TaskStats
	cursor int

	rooms    []domain.RoomInfo
	roomName string
	messages []protocol.MessageView

	joinMode       bool
	passFocused    bool
	confirmingWipe bool

	username string
	status   string
}

func newModel(conn *websocket.Conn) model {
	mk := func(placeholder string) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = 256
		return ti
	}

	m := model{
		conn:      conn,
		events:    make(chan protocol.Event, 64),
		taskInput: mk("What needs to be done?"),
		userInput: mk("Choose a display name"),
		nameInput: mk("Room name"),
		passInput: mk("Room password"),
		msgInput:  mk("Type a message"),
	}
	m.taskInput.Focus()
	m.passInput.EchoMode = textinput.EchoPassword
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), textinput.Blink)
}

func (m model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return connClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *model) send(cmd protocol.Command) {
	if err := m.conn.WriteJSON(cmd); err != nil {
		m.status = "connection lost: " + err.Error()
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case connClosedMsg:
		return m, tea.Quit
	case eventMsg:
		m.applyEvent(protocol.Event(msg))
		return m, m.waitForEvent()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m.updateFocusedInput(msg)
}

func (m *model) applyEvent(ev protocol.Event) {
	switch ev.Type {
	case protocol.EventTaskList:
		m.tasks = ev.Tasks
		if ev.Stats != nil {
			m.stats = *ev.Stats
		}
		if m.cursor >= len(m.tasks) {
			m.cursor = 0
		}
	case protocol.EventInputRejected:
		if ev.Field == protocol.FieldUsername {
			m.status = "Display name cannot be empty"
		} else {
			m.status = "Task cannot be empty"
		}
	case protocol.EventChatActivated:
		m.status = ""
		if ev.NeedUsername {
			m.view = viewUsername
			m.focusOnly(&m.userInput)
		} else {
			m.view = viewDirectory
			m.focusOnly(&m.nameInput)
		}
	case protocol.EventUsernameAccepted:
		m.username = ev.Name
		m.view = viewDirectory
		m.focusOnly(&m.nameInput)
	case protocol.EventRoomDirectory:
		m.rooms = ev.Rooms
	case protocol.EventRoomEntered:
		m.roomName = ev.Name
		m.messages = nil
		m.view = viewRoom
		m.focusOnly(&m.msgInput)
	case protocol.EventRoomLeft:
		m.view = viewDirectory
		m.focusOnly(&m.nameInput)
	case protocol.EventMessages:
		m.messages = ev.Messages
	case protocol.EventConfirmWipe:
		m.confirmingWipe = true
		m.status = "Delete ALL chat rooms and messages forever? (y/n)"
	case protocol.EventWipeDone:
		m.status = "All chat rooms have been deleted."
	case protocol.EventError:
		m.status = ev.Message
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmingWipe {
		switch msg.String() {
		case "y":
			m.confirmingWipe = false
			m.status = ""
			m.send(protocol.Command{Type: protocol.CmdWipeRooms, Confirm: true})
		case "n", "esc":
			m.confirmingWipe = false
			m.status = ""
		}
		return m, nil
	}

	switch m.view {
	case viewTasks:
		return m.handleTasksKey(msg)
	case viewUsername:
		if msg.Type == tea.KeyEnter {
			m.send(protocol.Command{Type: protocol.CmdSetUsername, Name: m.userInput.Value()})
			m.userInput.Reset()
			return m, nil
		}
	case viewDirectory:
		return m.handleDirectoryKey(msg)
	case viewRoom:
		switch msg.Type {
		case tea.KeyEnter:
			m.send(protocol.Command{Type: protocol.CmdSendMessage, Text: m.msgInput.Value()})
			m.msgInput.Reset()
			return m, nil
		case tea.KeyEsc:
			m.send(protocol.Command{Type: protocol.CmdLeaveRoom})
			return m, nil
		}
	}
	return m.updateFocusedInput(msg)
}

func (m model) handleTasksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.status = ""
		m.send(protocol.Command{Type: protocol.CmdAddTask, Text: m.taskInput.Value()})
		m.taskInput.Reset()
		return m, nil
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
		return m, nil
	case "ctrl+t":
		if m.cursor < len(m.tasks) {
			m.send(protocol.Command{Type: protocol.CmdToggleTask, ID: m.tasks[m.cursor].ID})
		}
		return m, nil
	case "ctrl+d":
		if m.cursor < len(m.tasks) {
			m.send(protocol.Command{Type: protocol.CmdDeleteTask, ID: m.tasks[m.cursor].ID})
		}
		return m, nil
	}
	return m.updateFocusedInput(msg)
}

func (m model) handleDirectoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab:
		m.passFocused = !m.passFocused
		if m.passFocused {
			m.focusOnly(&m.passInput)
		} else {
			m.focusOnly(&m.nameInput)
		}
		return m, nil
	case tea.KeyCtrlT:
		m.joinMode = !m.joinMode
		return m, nil
	case tea.KeyEnter:
		cmdType := protocol.CmdCreateRoom
		if m.joinMode {
			cmdType = protocol.CmdJoinRoom
		}
		m.status = ""
		m.send(protocol.Command{Type: cmdType, Name: m.nameInput.Value(), Password: m.passInput.Value()})
		m.nameInput.Reset()
		m.passInput.Reset()
		m.passFocused = false
		m.focusOnly(&m.nameInput)
		return m, nil
	case tea.KeyEsc:
		m.send(protocol.Command{Type: protocol.CmdLeaveChat})
		m.view = viewTasks
		m.focusOnly(&m.taskInput)
		return m, nil
	}
	return m.updateFocusedInput(msg)
}

func (m *model) focusOnly(target *textinput.Model) {
	for _, ti := range []*textinput.Model{&m.taskInput, &m.userInput, &m.nameInput, &m.passInput, &m.msgInput} {
		ti.Blur()
	}
	target.Focus()
}

func (m model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case viewTasks:
		m.taskInput, cmd = m.taskInput.Update(msg)
	case viewUsername:
		m.userInput, cmd = m.userInput.Update(msg)
	case viewDirectory:
		if m.passFocused {
			m.passInput, cmd = m.passInput.Update(msg)
		} else {
			m.nameInput, cmd = m.nameInput.Update(msg)
		}
	case viewRoom:
		m.msgInput, cmd = m.msgInput.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	switch m.view {
	case viewUsername:
		return m.usernameView()
	case viewDirectory:
		return m.directoryView()
	case viewRoom:
		return m.roomView()
	default:
		return m.tasksView()
	}
}

func (m model) tasksView() string {
	s := titleStyle.Render("My Tasks") + "\n\n" + m.taskInput.View() + "\n\n"

	if len(m.tasks) == 0 {
		s += helpStyle.Render("No tasks yet. Add one above!") + "\n"
	}
	for i, t := range m.tasks {
		box := "☐"
		line := t.Text
		switch {
		case t.Removing:
			line = removingStyle.Render(line)
		case t.Completed:
			box = "☑"
			line = doneStyle.Render(line)
		}
		prefix := "  "
		if i == m.cursor {
			prefix = selectedStyle.Render("> ")
		}
		s += fmt.Sprintf("%s%s %s\n", prefix, box, line)
	}

	word := "tasks"
	if m.stats.Total == 1 {
		word = "task"
	}
	s += fmt.Sprintf("\n%d %s, %d completed\n", m.stats.Total, word, m.stats.Completed)
	s += m.statusLine()
	s += helpStyle.Render("enter add · ctrl+t toggle · ctrl+d delete · ctrl+c quit")
	return s
}

func (m model) usernameView() string {
	return titleStyle.Render("Who are you?") + "\n\n" +
		m.userInput.View() + "\n" + m.statusLine() +
		helpStyle.Render("enter confirm")
}

func (m model) directoryView() string {
	mode := "Create a room"
	if m.joinMode {
		mode = "Join a room"
	}
	s := titleStyle.Render("Secret Chat") + "  " + helpStyle.Render("("+m.username+")") + "\n\n"
	s += mode + "\n" + m.nameInput.View() + "\n" + m.passInput.View() + "\n"

	if len(m.rooms) > 0 {
		s += "\nRooms:\n"
		for _, r := range m.rooms {
			s += fmt.Sprintf("  %s (%d messages)\n", r.Name, r.MessageCount)
		}
	} else {
		s += "\n" + helpStyle.Render("Enter a room name and password to join or create a room.") + "\n"
	}

	s += m.statusLine()
	s += helpStyle.Render("enter submit · tab field · ctrl+t create/join · esc back to tasks")
	return s
}

func (m model) roomView() string {
	s := titleStyle.Render("# "+m.roomName) + "\n\n"

	if len(m.messages) == 0 {
		s += helpStyle.Render("No messages yet. Start the conversation!") + "\n"
	}
	for _, msg := range m.messages {
		ts := msg.Timestamp
		if t, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
			ts = t.Local().Format("15:04")
		}
		sender := senderStyle.Render(msg.Sender)
		if msg.Own {
			sender = ownStyle.Render(msg.Sender + " (You)")
		}
		s += fmt.Sprintf("[%s] %s: %s\n", ts, sender, msg.Text)
	}

	s += "\n" + m.msgInput.View() + "\n" + m.statusLine()
	s += helpStyle.Render("enter send · esc leave room")
	return s
}

func (m model) statusLine() string {
	if m.status == "" {
		return "\n"
	}
	return "\n" + statusStyle.Render(m.status) + "\n\n"
}

func main() {
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to server: %v", err)
	}
	defer conn.Close()

	m := newModel(conn)

	go func() {
		defer close(m.events)
		for {
			var ev protocol.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			m.events <- ev
		}
	}()

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
