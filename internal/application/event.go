package application

import (
	"strings"
	"time"
)

type EventKind string

const (
	EventCommand  EventKind = "command"
	EventCallback EventKind = "callback"
	EventPhoto    EventKind = "photo"
	EventText     EventKind = "text"
)

// Event is one inbound update from the messaging transport, already reduced to the
// fields the dispatcher needs. Ids are the platform's external ids as strings.
type Event struct {
	Kind     EventKind
	SenderID string
	// ChatID is where replies go; equal to SenderID in private chats.
	ChatID string

	Username  string
	FirstName string
	LastName  string

	Command string // without the leading slash, lower-cased
	Args    string

	CallbackID   string
	CallbackData string

	PhotoRef string // largest photo size
	Text     string

	ReceivedAt time.Time
}

// Label names the event for logs and metrics: the command as "/name", else the kind.
func (e *Event) Label() string {
	if e.Kind == EventCommand && e.Command != "" {
		return "/" + e.Command
	}
	return string(e.Kind)
}

// FirstArg returns the first whitespace-separated argument of a command.
func (e *Event) FirstArg() string {
	fields := strings.Fields(e.Args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// replyTo is the recipient for replies to this event.
func (e *Event) replyTo() string {
	if e.ChatID != "" {
		return e.ChatID
	}
	return e.SenderID
}
