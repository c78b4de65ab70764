package pulsechat

import (
	"time"

	"github.com/pulsechat/pulsechat-sdk-go/pulsechat/rest"
)

// Message is a timeline entry. A pending entry has only a client-generated
// TempID; once the backend assigns a durable ID the entry is confirmed in
// place. TempID is kept after confirmation so a late echo of either
// identifier still dedups.
type Message struct {
	ID         string
	TempID     string
	RoomID     string
	Content    string
	Sender     rest.User
	Type       rest.MessageType
	ReadBy     []string
	LikesCount int
	IsLiked    bool
	CreatedAt  time.Time
	Sending    bool
}

// Pending reports whether the entry is still awaiting server confirmation.
func (m Message) Pending() bool {
	return m.ID == "" && m.TempID != ""
}

// messageFromRecord converts a persisted record into a timeline entry.
func messageFromRecord(rec rest.Message) Message {
	return Message{
		ID:         rec.ID,
		RoomID:     rec.RoomID,
		Content:    rec.Content,
		Sender:     rec.Sender,
		Type:       rec.Type,
		ReadBy:     rec.ReadBy,
		LikesCount: rec.LikesCount,
		IsLiked:    rec.IsLiked,
		CreatedAt:  rec.CreatedAt,
	}
}

func messagesFromRecords(recs []rest.Message) []Message {
	out := make([]Message, 0, len(recs))
	for _, rec := range recs {
		out = append(out, messageFromRecord(rec))
	}
	return out
}

// matches is the dedup rule: two entries refer to the same logical message
// when any of their identifiers line up, durable against durable, temp
// against temp, or one side's temp against the other's durable id (the
// optimistic-confirm race seen from either direction).
func (m Message) matches(in Message) bool {
	if m.ID != "" && m.ID == in.ID {
		return true
	}
	if m.TempID != "" && (m.TempID == in.TempID || m.TempID == in.ID) {
		return true
	}
	if in.TempID != "" && m.ID == in.TempID {
		return true
	}
	return false
}

// reconcile replaces a pending entry with its confirmed record without
// moving it: the result keeps the pending entry's TempID and takes
// everything else from the record.
func reconcile(pending Message, rec rest.Message) Message {
	confirmed := messageFromRecord(rec)
	confirmed.TempID = pending.TempID
	return confirmed
}
