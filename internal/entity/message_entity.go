package entity

import "time"

type MessageType string

const (
	MessageText    MessageType = "text"
	MessageImage   MessageType = "image"
	MessageVideo   MessageType = "video"
	MessageFile    MessageType = "file"
	MessageUnknown MessageType = "unknown"
)

// ParseMessageType normalizes a wire string to a known message type.
// Unrecognized values map to MessageUnknown instead of passing through.
func ParseMessageType(s string) MessageType {
	switch MessageType(s) {
	case MessageText, MessageImage, MessageVideo, MessageFile:
		return MessageType(s)
	default:
		return MessageUnknown
	}
}

type Message struct {
	Id         string      `json:"id"`
	ChatRoomId string      `json:"chatRoomId"`
	Sender     User        `json:"sender"`
	Type       MessageType `json:"messageType"`
	Content    string      `json:"content"`
	Caption    string      `json:"caption,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	SeenBy     []string    `json:"seenBy"`
	DeletedFor []string    `json:"deletedFor,omitempty"`

	// ClientId is set by this client on optimistic sends and echoed back
	// by the server so the pending entry can be reconciled.
	ClientId string `json:"clientId,omitempty"`
	Pending  bool   `json:"-"`
}

func (m *Message) SeenByUser(userId string) bool {
	for _, id := range m.SeenBy {
		if id == userId {
			return true
		}
	}
	return false
}

// MarkSeenBy adds userId to the seen set. Returns false if it was
// already present. SeenBy only grows; entries are never removed.
func (m *Message) MarkSeenBy(userId string) bool {
	if m.SeenByUser(userId) {
		return false
	}
	m.SeenBy = append(m.SeenBy, userId)
	return true
}
