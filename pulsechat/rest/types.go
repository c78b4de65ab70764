package rest

import "time"

// MessageType identifies the kind of a message body.
type MessageType string

const (
	MessageText MessageType = "text"
)

// User is a participant summary as the backend serializes it.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Online   bool   `json:"is_online"`
}

// Room is a chat room record.
type Room struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar,omitempty"`
	Participants []User    `json:"participants"`
	LastMessage  *Message  `json:"last_message,omitempty"`
	UnreadCount  int       `json:"unread_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message is a persisted message record.
type Message struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"room_id"`
	Content    string      `json:"content"`
	Sender     User        `json:"sender"`
	Type       MessageType `json:"message_type"`
	ReadBy     []string    `json:"read_by,omitempty"`
	LikesCount int         `json:"likes_count"`
	IsLiked    bool        `json:"is_liked"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CreateRoomRequest is the request body for creating a room.
type CreateRoomRequest struct {
	Name         string   `json:"name"`
	Avatar       string   `json:"avatar,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// SendMessageRequest is the request body for persisting a message.
type SendMessageRequest struct {
	Content string      `json:"content"`
	Type    MessageType `json:"message_type,omitempty"`
}

// LikeResult is the response to liking a message.
type LikeResult struct {
	LikesCount int  `json:"likes_count"`
	Liked      bool `json:"liked"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
