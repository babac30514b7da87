package repository

import (
	"context"
	"fmt"
	"strings"

	"ripple/infrastructure/api"
	"ripple/internal/entity"
)

// NotificationPage is one page of the server-side notification feed
// plus the authoritative unread count.
type NotificationPage struct {
	Items       []entity.NotificationItem
	HasMore     bool
	UnreadCount int
}

type NotificationRepository interface {
	Index(ctx context.Context, page, limit int, filter entity.NotificationIndexFilter) (NotificationPage, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	RegisterFCMToken(ctx context.Context, token string) error
}

type notificationRepository struct {
	client *api.Client
}

func NewNotificationRepository(client *api.Client) NotificationRepository {
	return &notificationRepository{client: client}
}

func (r *notificationRepository) Index(ctx context.Context, page, limit int, filter entity.NotificationIndexFilter) (NotificationPage, error) {
	path := fmt.Sprintf("/notifications?page=%d&limit=%d", page, limit)
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		path += "&type=" + strings.Join(types, ",")
	}
	if filter.UnreadOnly {
		path += "&unread=true"
	}

	var out struct {
		Notifications []entity.NotificationItem `json:"notifications"`
		HasMore       bool                      `json:"hasMore"`
		UnreadCount   int                       `json:"unreadCount"`
	}
	if err := r.client.Get(ctx, path, &out); err != nil {
		return NotificationPage{}, err
	}
	return NotificationPage{
		Items:       out.Notifications,
		HasMore:     out.HasMore,
		UnreadCount: out.UnreadCount,
	}, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	return r.client.Put(ctx, "/notifications/"+id+"/read", nil, nil)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context) error {
	return r.client.Put(ctx, "/notifications/read-all", nil, nil)
}

func (r *notificationRepository) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, "/notifications/"+id, nil)
}

func (r *notificationRepository) RegisterFCMToken(ctx context.Context, token string) error {
	body := struct {
		Token string `json:"token"`
	}{token}
	return r.client.Post(ctx, "/notifications/fcm-token", body, nil)
}
