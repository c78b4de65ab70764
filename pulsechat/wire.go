package pulsechat

import (
	"encoding/json"
	"fmt"

	"github.com/pulsechat/pulsechat-sdk-go/pulsechat/rest"
)

// Frames are flat JSON objects discriminated by a "type" field.
const (
	frameChatMessage = "chat_message"
	frameTypingStart = "typing_start"
	frameTypingStop  = "typing_stop"
	frameMessageRead = "message_read"
	frameUserOnline  = "user_online"
	frameUserOffline = "user_offline"
	frameRoomUpdated = "room_updated"
)

// Outbound frames.

type chatSendFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	RoomID  string `json:"room_id"`
	// TempID lets the server echo the broadcast back with the sender's
	// client identifier, so either the broadcast or the REST confirmation
	// can reconcile the optimistic entry.
	TempID string `json:"temp_id,omitempty"`
}

type typingSendFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type readSendFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	RoomID    string `json:"room_id"`
}

// Inbound frame payloads.

type envelope struct {
	Type string `json:"type"`
}

type messageFrame struct {
	Message rest.Message `json:"message"`
	TempID  string       `json:"temp_id"`
}

type typingFrame struct {
	RoomID string    `json:"room_id"`
	User   rest.User `json:"user"`
}

type readFrame struct {
	MessageID string    `json:"message_id"`
	RoomID    string    `json:"room_id"`
	User      rest.User `json:"user"`
}

type presenceFrame struct {
	UserID string `json:"user_id"`
}

type roomFrame struct {
	Room rest.Room `json:"room"`
}

// decodeFrame turns raw frame bytes into a typed event. A nil event with a
// nil error means the frame kind is unrecognized and should be dropped.
func decodeFrame(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}

	switch env.Type {
	case frameChatMessage:
		var f messageFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s frame: %w", env.Type, err)
		}
		return MessageEvent{Message: f.Message, TempID: f.TempID}, nil
	case frameTypingStart, frameTypingStop:
		var f typingFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s frame: %w", env.Type, err)
		}
		return TypingEvent{RoomID: f.RoomID, User: f.User, Started: env.Type == frameTypingStart}, nil
	case frameMessageRead:
		var f readFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s frame: %w", env.Type, err)
		}
		return ReadEvent{MessageID: f.MessageID, RoomID: f.RoomID, Reader: f.User}, nil
	case frameUserOnline, frameUserOffline:
		var f presenceFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s frame: %w", env.Type, err)
		}
		return PresenceEvent{UserID: f.UserID, Online: env.Type == frameUserOnline}, nil
	case frameRoomUpdated:
		var f roomFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s frame: %w", env.Type, err)
		}
		return RoomEvent{Room: f.Room}, nil
	default:
		return nil, nil
	}
}
