package entity

// PushPayload is the shape delivered by the push provider and by the
// real-time "notification" event.
type PushPayload struct {
	Notification PushNotification `json:"notification"`
	Data         PushData         `json:"data"`
}

type PushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type PushData struct {
	Type       string `json:"type"`
	PostId     string `json:"postId,omitempty"`
	ChatRoomId string `json:"chatRoomId,omitempty"`
	SenderId   string `json:"senderId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
}
