package entity

import "time"

type NotificationType string

const (
	NotificationMessage     NotificationType = "message"
	NotificationLike        NotificationType = "like"
	NotificationComment     NotificationType = "comment"
	NotificationFollow      NotificationType = "follow"
	NotificationShare       NotificationType = "share"
	NotificationAdmin       NotificationType = "admin"
	NotificationChatCreated NotificationType = "chat_created"
	NotificationGroupInvite NotificationType = "group_invite"
	NotificationGroupUpdate NotificationType = "group_update"
	NotificationUnknown     NotificationType = "unknown"
)

// ParseNotificationType normalizes a wire string to a known type so
// downstream switches never see an arbitrary value.
func ParseNotificationType(s string) NotificationType {
	switch NotificationType(s) {
	case NotificationMessage, NotificationLike, NotificationComment,
		NotificationFollow, NotificationShare, NotificationAdmin,
		NotificationChatCreated, NotificationGroupInvite, NotificationGroupUpdate:
		return NotificationType(s)
	default:
		return NotificationUnknown
	}
}

// NotificationData is the deep-link payload attached to a notification.
type NotificationData struct {
	PostId     string `json:"postId,omitempty"`
	ChatRoomId string `json:"chatRoomId,omitempty"`
	SenderId   string `json:"senderId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
}

type NotificationItem struct {
	Id        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      NotificationData `json:"data"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
	Sender    *User            `json:"sender,omitempty"`
}

type NotificationIndexFilter struct {
	Types      []NotificationType `json:"types,omitempty"`
	UnreadOnly bool               `json:"unreadOnly,omitempty"`
}
