package store

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"ripple/internal/entity"
	"ripple/internal/repository"
)

type NotificationStore interface {
	FetchPage(ctx context.Context, page, limit int, filter entity.NotificationIndexFilter) error
	Items() []entity.NotificationItem
	UnreadCount() int
	HasMore() bool

	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	ReceivePush(payload entity.PushPayload)

	// Close waits for any background reconcile fetch to finish.
	Close()
}

type notificationStore struct {
	repo repository.NotificationRepository

	mu      sync.RWMutex
	items   []entity.NotificationItem
	unread  int
	hasMore bool
	page    int

	wg sync.WaitGroup
}

func NewNotificationStore(repo repository.NotificationRepository) NotificationStore {
	return &notificationStore{repo: repo, hasMore: true}
}

// FetchPage loads one feed page: page 1 replaces the cached feed,
// later pages append. The server's unread count is authoritative.
func (s *notificationStore) FetchPage(ctx context.Context, page, limit int, filter entity.NotificationIndexFilter) error {
	result, err := s.repo.Index(ctx, page, limit, filter)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if page == 1 {
		s.items = result.Items
	} else {
		s.items = append(s.items, result.Items...)
	}
	s.unread = result.UnreadCount
	s.hasMore = result.HasMore
	s.page = page
	return nil
}

func (s *notificationStore) Items() []entity.NotificationItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.NotificationItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *notificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unread < 0 {
		return 0
	}
	return s.unread
}

func (s *notificationStore) HasMore() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasMore
}

func (s *notificationStore) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Id == id {
			if !s.items[i].Read {
				s.items[i].Read = true
				s.decrementUnreadLocked()
			}
			break
		}
	}
	return nil
}

func (s *notificationStore) MarkAllRead(ctx context.Context) error {
	if err := s.repo.MarkAllRead(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		s.items[i].Read = true
	}
	s.unread = 0
	return nil
}

// Delete removes the notification; the unread counter drops only when
// the removed item was unread.
func (s *notificationStore) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Id == id {
			if !s.items[i].Read {
				s.decrementUnreadLocked()
			}
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}

// ReceivePush converts a push payload into a feed item, prepends it,
// bumps the unread counter, and kicks off a background re-fetch so the
// feed reconciles against server truth instead of trusting the payload.
func (s *notificationStore) ReceivePush(payload entity.PushPayload) {
	item := entity.NotificationItem{
		Id:        uuid.New().String(),
		Type:      entity.ParseNotificationType(payload.Data.Type),
		Title:     payload.Notification.Title,
		Message:   payload.Notification.Body,
		Data: entity.NotificationData{
			PostId:     payload.Data.PostId,
			ChatRoomId: payload.Data.ChatRoomId,
			SenderId:   payload.Data.SenderId,
			SenderName: payload.Data.SenderName,
		},
		Read:      false,
		CreatedAt: time.Now(),
	}
	if payload.Data.SenderId != "" {
		item.Sender = &entity.User{Id: payload.Data.SenderId, Name: payload.Data.SenderName}
	}

	s.mu.Lock()
	s.items = append([]entity.NotificationItem{item}, s.items...)
	s.unread++
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.FetchPage(ctx, 1, defaultNotificationPageSize, entity.NotificationIndexFilter{}); err != nil {
			log.Printf("store: notification reconcile fetch: %v", err)
		}
	}()
}

const defaultNotificationPageSize = 20

func (s *notificationStore) decrementUnreadLocked() {
	if s.unread > 0 {
		s.unread--
	}
}

func (s *notificationStore) Close() {
	s.wg.Wait()
}
