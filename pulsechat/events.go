package pulsechat

import (
	"github.com/coder/websocket"

	"github.com/pulsechat/pulsechat-sdk-go/pulsechat/rest"
)

// EventKind identifies a demultiplexed inbound event.
type EventKind int

const (
	KindChatMessage EventKind = iota
	KindTypingStart
	KindTypingStop
	KindMessageRead
	KindUserOnline
	KindUserOffline
	KindRoomUpdated
	KindConnectionOpened
	KindConnectionClosed
	KindConnectionError
)

// String returns the wire-level name of an event kind.
func (k EventKind) String() string {
	switch k {
	case KindChatMessage:
		return "chat_message"
	case KindTypingStart:
		return "typing_start"
	case KindTypingStop:
		return "typing_stop"
	case KindMessageRead:
		return "message_read"
	case KindUserOnline:
		return "user_online"
	case KindUserOffline:
		return "user_offline"
	case KindRoomUpdated:
		return "room_updated"
	case KindConnectionOpened:
		return "connection_opened"
	case KindConnectionClosed:
		return "connection_closed"
	case KindConnectionError:
		return "connection_error"
	default:
		return "unknown"
	}
}

// Event is the closed set of things the connection manager can emit. Every
// inbound frame maps to exactly one of the concrete types below.
type Event interface {
	Kind() EventKind
}

// MessageEvent carries a broadcast chat message. TempID is the sender's
// client-side identifier echoed back by the server, when present.
type MessageEvent struct {
	Message rest.Message
	TempID  string
}

func (MessageEvent) Kind() EventKind { return KindChatMessage }

// TypingEvent signals that a user started or stopped composing.
type TypingEvent struct {
	RoomID  string
	User    rest.User
	Started bool
}

func (e TypingEvent) Kind() EventKind {
	if e.Started {
		return KindTypingStart
	}
	return KindTypingStop
}

// ReadEvent signals that a user read a message.
type ReadEvent struct {
	MessageID string
	RoomID    string
	Reader    rest.User
}

func (ReadEvent) Kind() EventKind { return KindMessageRead }

// PresenceEvent signals a participant going online or offline.
type PresenceEvent struct {
	UserID string
	Online bool
}

func (e PresenceEvent) Kind() EventKind {
	if e.Online {
		return KindUserOnline
	}
	return KindUserOffline
}

// RoomEvent carries an updated room summary.
type RoomEvent struct {
	Room rest.Room
}

func (RoomEvent) Kind() EventKind { return KindRoomUpdated }

// OpenEvent signals the channel is established.
type OpenEvent struct {
	RoomID string
}

func (OpenEvent) Kind() EventKind { return KindConnectionOpened }

// CloseEvent signals the channel closed.
type CloseEvent struct {
	Code   websocket.StatusCode
	Reason string
}

func (CloseEvent) Kind() EventKind { return KindConnectionClosed }

// ErrorEvent carries a transport-level error.
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) Kind() EventKind { return KindConnectionError }
