package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ripple/internal/entity"
	"ripple/internal/repository"
)

type fakeNotifRepo struct {
	mu         sync.Mutex
	indexFn    func(ctx context.Context, page, limit int, filter entity.NotificationIndexFilter) (repository.NotificationPage, error)
	indexCalls int
	marked     []string
	markedAll  int
	deleted    []string
}

func (f *fakeNotifRepo) Index(ctx context.Context, page, limit int, filter entity.NotificationIndexFilter) (repository.NotificationPage, error) {
	f.mu.Lock()
	f.indexCalls++
	f.mu.Unlock()
	if f.indexFn != nil {
		return f.indexFn(ctx, page, limit, filter)
	}
	return repository.NotificationPage{}, nil
}

func (f *fakeNotifRepo) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeNotifRepo) MarkAllRead(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedAll++
	return nil
}

func (f *fakeNotifRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeNotifRepo) RegisterFCMToken(ctx context.Context, token string) error {
	return nil
}

func notifItem(id string, read bool) entity.NotificationItem {
	return entity.NotificationItem{Id: id, Type: entity.NotificationLike, Read: read}
}

func TestFetchPageReplacesThenAppends(t *testing.T) {
	repo := &fakeNotifRepo{
		indexFn: func(_ context.Context, page, _ int, _ entity.NotificationIndexFilter) (repository.NotificationPage, error) {
			switch page {
			case 1:
				return repository.NotificationPage{
					Items:       []entity.NotificationItem{notifItem("n1", false), notifItem("n2", true)},
					HasMore:     true,
					UnreadCount: 5,
				}, nil
			default:
				return repository.NotificationPage{
					Items:       []entity.NotificationItem{notifItem("n3", false)},
					HasMore:     false,
					UnreadCount: 5,
				}, nil
			}
		},
	}
	s := NewNotificationStore(repo)
	defer s.Close()

	if err := s.FetchPage(context.Background(), 1, 20, entity.NotificationIndexFilter{}); err != nil {
		t.Fatal(err)
	}
	if got := s.Items(); len(got) != 2 {
		t.Fatalf("page 1 items = %d", len(got))
	}
	// the server's count is authoritative even when it exceeds what the
	// loaded window shows
	if s.UnreadCount() != 5 {
		t.Fatalf("unread = %d; want server's 5", s.UnreadCount())
	}
	if !s.HasMore() {
		t.Fatal("hasMore lost")
	}

	if err := s.FetchPage(context.Background(), 2, 20, entity.NotificationIndexFilter{}); err != nil {
		t.Fatal(err)
	}
	got := s.Items()
	if len(got) != 3 || got[2].Id != "n3" {
		t.Fatalf("page 2 items = %+v", got)
	}
	if s.HasMore() {
		t.Fatal("hasMore not cleared on last page")
	}

	// page 1 again resets the feed
	if err := s.FetchPage(context.Background(), 1, 20, entity.NotificationIndexFilter{}); err != nil {
		t.Fatal(err)
	}
	if got := s.Items(); len(got) != 2 {
		t.Fatalf("refetched page 1 items = %d", len(got))
	}
}

func TestMarkReadDecrementsOnce(t *testing.T) {
	repo := &fakeNotifRepo{
		indexFn: func(_ context.Context, _, _ int, _ entity.NotificationIndexFilter) (repository.NotificationPage, error) {
			return repository.NotificationPage{
				Items:       []entity.NotificationItem{notifItem("n1", false), notifItem("n2", true)},
				UnreadCount: 1,
			}, nil
		},
	}
	s := NewNotificationStore(repo)
	defer s.Close()
	s.FetchPage(context.Background(), 1, 20, entity.NotificationIndexFilter{})

	if err := s.MarkRead(context.Background(), "n1"); err != nil {
		t.Fatal(err)
	}
	if s.UnreadCount() != 0 {
		t.Fatalf("unread = %d", s.UnreadCount())
	}
	// marking an already-read item must not go negative
	if err := s.MarkRead(context.Background(), "n1"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkRead(context.Background(), "n2"); err != nil {
		t.Fatal(err)
	}
	if s.UnreadCount() != 0 {
		t.Fatalf("unread after repeats = %d", s.UnreadCount())
	}
}

func TestMarkAllReadZeroesEverything(t *testing.T) {
	repo := &fakeNotifRepo{
		indexFn: func(_ context.Context, _, _ int, _ entity.NotificationIndexFilter) (repository.NotificationPage, error) {
			return repository.NotificationPage{
				Items:       []entity.NotificationItem{notifItem("n1", false), notifItem("n2", false)},
				UnreadCount: 7,
			}, nil
		},
	}
	s := NewNotificationStore(repo)
	defer s.Close()
	s.FetchPage(context.Background(), 1, 20, entity.NotificationIndexFilter{})

	if err := s.MarkAllRead(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.UnreadCount() != 0 {
		t.Fatalf("unread = %d", s.UnreadCount())
	}
	for _, item := range s.Items() {
		if !item.Read {
			t.Fatalf("item %s still unread", item.Id)
		}
	}
	if repo.markedAll != 1 {
		t.Fatalf("server calls = %d", repo.markedAll)
	}
}

func TestDeleteDecrementsOnlyUnread(t *testing.T) {
	repo := &fakeNotifRepo{
		indexFn: func(_ context.Context, _, _ int, _ entity.NotificationIndexFilter) (repository.NotificationPage, error) {
			return repository.NotificationPage{
				Items:       []entity.NotificationItem{notifItem("n1", false), notifItem("n2", true)},
				UnreadCount: 1,
			}, nil
		},
	}
	s := NewNotificationStore(repo)
	defer s.Close()
	s.FetchPage(context.Background(), 1, 20, entity.NotificationIndexFilter{})

	if err := s.Delete(context.Background(), "n2"); err != nil { // read item
		t.Fatal(err)
	}
	if s.UnreadCount() != 1 {
		t.Fatalf("deleting a read item changed unread to %d", s.UnreadCount())
	}
	if err := s.Delete(context.Background(), "n1"); err != nil { // unread item
		t.Fatal(err)
	}
	if s.UnreadCount() != 0 {
		t.Fatalf("unread = %d", s.UnreadCount())
	}
	if got := s.Items(); len(got) != 0 {
		t.Fatalf("items = %+v", got)
	}
}

func TestFetchErrorLeavesStateUntouched(t *testing.T) {
	boom := errors.New("backend down")
	fail := false
	repo := &fakeNotifRepo{
		indexFn: func(_ context.Context, _, _ int, _ entity.NotificationIndexFilter) (repository.NotificationPage, error) {
			if fail {
				return repository.NotificationPage{}, boom
			}
			return repository.NotificationPage{
				Items:       []entity.NotificationItem{notifItem("n1", false)},
				UnreadCount: 1,
			}, nil
		},
	}
	s := NewNotificationStore(repo)
	defer s.Close()
	s.FetchPage(context.Background(), 1, 20, entity.NotificationIndexFilter{})

	fail = true
	if err := s.FetchPage(context.Background(), 1, 20, entity.NotificationIndexFilter{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if got := s.Items(); len(got) != 1 {
		t.Fatalf("failed fetch mutated the feed: %+v", got)
	}
	if s.UnreadCount() != 1 {
		t.Fatalf("failed fetch mutated unread: %d", s.UnreadCount())
	}
}

func TestReceivePushPrependsAndReconciles(t *testing.T) {
	server := repository.NotificationPage{
		Items: []entity.NotificationItem{
			{Id: "n-server", Type: entity.NotificationMessage, Read: false},
		},
		UnreadCount: 3,
	}
	repo := &fakeNotifRepo{
		indexFn: func(_ context.Context, _, _ int, _ entity.NotificationIndexFilter) (repository.NotificationPage, error) {
			return server, nil
		},
	}
	s := NewNotificationStore(repo)

	s.ReceivePush(entity.PushPayload{
		Notification: entity.PushNotification{Title: "New message", Body: "hi"},
		Data: entity.PushData{
			Type:       "message",
			ChatRoomId: "r1",
			SenderId:   "u2",
			SenderName: "Beta",
		},
	})

	// before reconcile lands the provisional item may still be first;
	// Close waits for the background fetch
	s.Close()

	got := s.Items()
	if len(got) != 1 || got[0].Id != "n-server" {
		t.Fatalf("reconciled feed = %+v", got)
	}
	if s.UnreadCount() != 3 {
		t.Fatalf("unread = %d; want server's 3", s.UnreadCount())
	}
	repo.mu.Lock()
	calls := repo.indexCalls
	repo.mu.Unlock()
	if calls != 1 {
		t.Fatalf("reconcile fetches = %d", calls)
	}
}

func TestReceivePushProvisionalItem(t *testing.T) {
	block := make(chan struct{})
	repo := &fakeNotifRepo{
		indexFn: func(ctx context.Context, _, _ int, _ entity.NotificationIndexFilter) (repository.NotificationPage, error) {
			<-block
			return repository.NotificationPage{}, ctx.Err()
		},
	}
	s := NewNotificationStore(repo)

	s.ReceivePush(entity.PushPayload{
		Notification: entity.PushNotification{Title: "Someone liked your post"},
		Data:         entity.PushData{Type: "like", PostId: "p1", SenderId: "u2"},
	})

	got := s.Items()
	if len(got) != 1 {
		t.Fatalf("items = %+v", got)
	}
	item := got[0]
	if item.Id == "" || item.Read {
		t.Fatalf("provisional item = %+v", item)
	}
	if item.Type != entity.NotificationLike {
		t.Fatalf("type = %s", item.Type)
	}
	if item.Data.PostId != "p1" || item.Sender == nil || item.Sender.Id != "u2" {
		t.Fatalf("deep-link data = %+v sender = %+v", item.Data, item.Sender)
	}
	if s.UnreadCount() != 1 {
		t.Fatalf("unread = %d", s.UnreadCount())
	}

	// unknown types normalize instead of leaking arbitrary strings
	s.ReceivePush(entity.PushPayload{Data: entity.PushData{Type: "definitely-new"}})
	if got := s.Items(); got[0].Type != entity.NotificationUnknown {
		t.Fatalf("unknown type = %s", got[0].Type)
	}

	close(block)
	s.Close()
}
