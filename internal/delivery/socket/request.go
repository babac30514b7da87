package socket

import (
	"time"

	"ripple/internal/entity"
)

// Inbound wire shapes for the named socket events.

type messageEvent struct {
	Id         string      `json:"id"`
	ChatRoomId string      `json:"chatRoomId"`
	Sender     entity.User `json:"sender"`
	Type       string      `json:"messageType"`
	Content    string      `json:"content"`
	Caption    string      `json:"caption,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	SeenBy     []string    `json:"seenBy,omitempty"`
	ClientId   string      `json:"clientId,omitempty"`
}

func (e messageEvent) toEntity() entity.Message {
	return entity.Message{
		Id:         e.Id,
		ChatRoomId: e.ChatRoomId,
		Sender:     e.Sender,
		Type:       entity.ParseMessageType(e.Type),
		Content:    e.Content,
		Caption:    e.Caption,
		CreatedAt:  e.CreatedAt,
		SeenBy:     e.SeenBy,
		ClientId:   e.ClientId,
	}
}

type typingEvent struct {
	ChatRoomId string `json:"chatRoomId"`
	UserId     string `json:"userId"`
	IsTyping   bool   `json:"isTyping"`
}

type seenEvent struct {
	MessageId string `json:"messageId"`
	UserId    string `json:"userId"`
}
