package repository

import (
	"context"
	"fmt"
	"io"

	"ripple/infrastructure/api"
	"ripple/internal/entity"
)

// CreateChatOutcome mirrors the backend's tri-state create response.
type CreateChatOutcome string

const (
	OutcomeChatCreated         CreateChatOutcome = "chat_created"
	OutcomePermissionRequested CreateChatOutcome = "permission_request"
)

// CreateChatResult carries exactly one of Room or Request depending on
// Outcome. Callers route the user on it: open the chat, or show that a
// request was sent.
type CreateChatResult struct {
	Outcome CreateChatOutcome
	Room    *entity.ChatRoom
	Request *entity.PermissionRequest
}

type ChatRepository interface {
	Index(ctx context.Context) ([]entity.ChatRoom, error)
	Create(ctx context.Context, participantIds []string, isGroup bool, name, message string) (CreateChatResult, error)
	Messages(ctx context.Context, chatId string, page, limit int) ([]entity.Message, bool, error)
	UploadMedia(ctx context.Context, chatId, filename string, file io.Reader, msgType entity.MessageType, caption string) (entity.Message, error)
	Delete(ctx context.Context, chatId string) error
	DeleteMessage(ctx context.Context, messageId string) error

	PermissionRequests(ctx context.Context, direction entity.PermissionDirection) ([]entity.PermissionRequest, error)
	RespondPermissionRequest(ctx context.Context, requestId string, approve bool) (*entity.ChatRoom, error)
}

type chatRepository struct {
	client *api.Client
}

func NewChatRepository(client *api.Client) ChatRepository {
	return &chatRepository{client: client}
}

func (r *chatRepository) Index(ctx context.Context) ([]entity.ChatRoom, error) {
	var out struct {
		Chats []entity.ChatRoom `json:"chats"`
	}
	if err := r.client.Get(ctx, "/chats", &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

func (r *chatRepository) Create(ctx context.Context, participantIds []string, isGroup bool, name, message string) (CreateChatResult, error) {
	body := struct {
		Participants []string `json:"participants"`
		IsGroup      bool     `json:"isGroup"`
		Name         string   `json:"name,omitempty"`
		Message      string   `json:"message,omitempty"`
	}{participantIds, isGroup, name, message}

	var out struct {
		Status  string                    `json:"status"`
		Chat    *entity.ChatRoom          `json:"chat,omitempty"`
		Request *entity.PermissionRequest `json:"request,omitempty"`
	}
	if err := r.client.Post(ctx, "/chats/create", body, &out); err != nil {
		return CreateChatResult{}, err
	}

	switch CreateChatOutcome(out.Status) {
	case OutcomeChatCreated:
		if out.Chat == nil {
			return CreateChatResult{}, fmt.Errorf("create chat: status %q without chat payload", out.Status)
		}
		return CreateChatResult{Outcome: OutcomeChatCreated, Room: out.Chat}, nil
	case OutcomePermissionRequested:
		if out.Request == nil {
			return CreateChatResult{}, fmt.Errorf("create chat: status %q without request payload", out.Status)
		}
		return CreateChatResult{Outcome: OutcomePermissionRequested, Request: out.Request}, nil
	default:
		return CreateChatResult{}, fmt.Errorf("create chat: unexpected status %q", out.Status)
	}
}

func (r *chatRepository) Messages(ctx context.Context, chatId string, page, limit int) ([]entity.Message, bool, error) {
	path := fmt.Sprintf("/chats/%s/messages?page=%d&limit=%d", chatId, page, limit)
	var out struct {
		Messages []entity.Message `json:"messages"`
		HasMore  bool             `json:"hasMore"`
	}
	if err := r.client.Get(ctx, path, &out); err != nil {
		return nil, false, err
	}
	return out.Messages, out.HasMore, nil
}

func (r *chatRepository) UploadMedia(ctx context.Context, chatId, filename string, file io.Reader, msgType entity.MessageType, caption string) (entity.Message, error) {
	fields := map[string]string{
		"messageType": string(msgType),
	}
	if caption != "" {
		fields["caption"] = caption
	}
	var out struct {
		Message entity.Message `json:"message"`
	}
	if err := r.client.Upload(ctx, "/chats/media/"+chatId, "media", filename, file, fields, &out); err != nil {
		return entity.Message{}, err
	}
	return out.Message, nil
}

func (r *chatRepository) Delete(ctx context.Context, chatId string) error {
	return r.client.Delete(ctx, "/chats/"+chatId, nil)
}

func (r *chatRepository) DeleteMessage(ctx context.Context, messageId string) error {
	return r.client.Delete(ctx, "/chats/message/"+messageId, nil)
}

func (r *chatRepository) PermissionRequests(ctx context.Context, direction entity.PermissionDirection) ([]entity.PermissionRequest, error) {
	var out struct {
		Requests []entity.PermissionRequest `json:"requests"`
	}
	path := "/chats/permission-requests?direction=" + string(direction)
	if err := r.client.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

func (r *chatRepository) RespondPermissionRequest(ctx context.Context, requestId string, approve bool) (*entity.ChatRoom, error) {
	body := struct {
		Approve bool `json:"approve"`
	}{approve}

	var out struct {
		Chat *entity.ChatRoom `json:"chat,omitempty"`
	}
	path := "/chats/permission-requests/" + requestId + "/respond"
	if err := r.client.Post(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return out.Chat, nil
}
