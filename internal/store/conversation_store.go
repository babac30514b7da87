package store

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ripple/infrastructure/cache"
	"ripple/infrastructure/socket"
	"ripple/internal/entity"
	"ripple/internal/repository"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Emitter is the outbound half of the transport the store needs.
type Emitter interface {
	Emit(event string, payload any) error
}

// RoomState tracks the per-room lifecycle the presentation layer
// renders from.
type RoomState string

const (
	RoomInactive RoomState = "inactive"
	RoomLoading  RoomState = "loading"
	RoomActive   RoomState = "active"
	RoomErrored  RoomState = "errored"
)

type ConversationStore interface {
	// Room list
	ListRooms(ctx context.Context) ([]entity.ChatRoom, error)
	Rooms() []entity.ChatRoom
	Room(roomId string) (entity.ChatRoom, bool)
	RoomState(roomId string) RoomState

	// Active room lifecycle
	OpenRoom(ctx context.Context, roomId string) error
	CloseRoom(roomId string)
	ActiveRoom() string

	// Messages
	FetchMessages(ctx context.Context, roomId string, page int) error
	Messages(roomId string) []entity.Message
	Cursor(roomId string) (currentPage int, hasMore bool)
	SendMessage(ctx context.Context, roomId, content string, msgType entity.MessageType) (entity.Message, error)
	SendMedia(ctx context.Context, roomId, filename string, file io.Reader, msgType entity.MessageType, caption string) (entity.Message, error)
	ReceiveMessage(msg entity.Message)
	DeleteMessage(ctx context.Context, messageId string) error
	DeleteChat(ctx context.Context, roomId string) error

	// Read receipts
	MarkSeen(messageId, userId string) error
	ReceiveSeen(messageId, userId string)

	// Typing indicators
	SetTyping(roomId, userId string, isTyping bool)
	NotifyTyping(roomId string, isTyping bool) error
	TypingUsers(roomId string) []string

	// Unread bookkeeping
	UnreadCount(roomId string) int

	// Chat creation and permission requests
	CreateChat(ctx context.Context, participantIds []string, isGroup bool, name, message string) (repository.CreateChatResult, error)
	PermissionRequests(ctx context.Context, direction entity.PermissionDirection) ([]entity.PermissionRequest, error)
	RespondPermissionRequest(ctx context.Context, requestId string, approve bool) error

	Close()
}

type cursor struct {
	CurrentPage int
	HasMore     bool
}

type conversationStore struct {
	repo      repository.ChatRepository
	emitter   Emitter
	typing    *cache.MemCache
	typingTTL time.Duration
	selfId    string
	pageSize  int

	mu       sync.RWMutex
	order    []string
	rooms    map[string]*entity.ChatRoom
	states   map[string]RoomState
	messages map[string][]entity.Message
	cursors  map[string]*cursor
	unread   map[string]int
	inflight map[string]bool
	gens     map[string]uint64
	roomOf   map[string]string // messageId -> roomId
	requests map[string]entity.PermissionRequest
	active   string
}

func NewConversationStore(repo repository.ChatRepository, emitter Emitter, selfId string, pageSize int, typingTTL time.Duration) ConversationStore {
	return &conversationStore{
		repo:      repo,
		emitter:   emitter,
		typing:    cache.NewMemCache(typingTTL),
		typingTTL: typingTTL,
		selfId:    selfId,
		pageSize:  pageSize,

		rooms:    make(map[string]*entity.ChatRoom),
		states:   make(map[string]RoomState),
		messages: make(map[string][]entity.Message),
		cursors:  make(map[string]*cursor),
		unread:   make(map[string]int),
		inflight: make(map[string]bool),
		gens:     make(map[string]uint64),
		roomOf:   make(map[string]string),
		requests: make(map[string]entity.PermissionRequest),
	}
}

// ListRooms fetches the room list and replaces the cached one. The
// server's ordering (updatedAt descending) is preserved as-is. Per-room
// state for rooms that survive the refresh is kept.
func (s *conversationStore) ListRooms(ctx context.Context) ([]entity.ChatRoom, error) {
	rooms, err := s.repo.Index(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.order = s.order[:0]
	seen := make(map[string]bool, len(rooms))
	for i := range rooms {
		room := rooms[i]
		s.order = append(s.order, room.Id)
		s.rooms[room.Id] = &room
		seen[room.Id] = true
		if _, ok := s.states[room.Id]; !ok {
			s.states[room.Id] = RoomInactive
		}
	}
	for id := range s.rooms {
		if !seen[id] {
			s.dropRoomLocked(id)
		}
	}
	s.mu.Unlock()

	return s.Rooms(), nil
}

func (s *conversationStore) Rooms() []entity.ChatRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.ChatRoom, 0, len(s.order))
	for _, id := range s.order {
		if room := s.rooms[id]; room != nil {
			out = append(out, *room)
		}
	}
	return out
}

func (s *conversationStore) Room(roomId string) (entity.ChatRoom, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomId]
	if !ok {
		return entity.ChatRoom{}, false
	}
	return *room, true
}

func (s *conversationStore) RoomState(roomId string) RoomState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.states[roomId]; ok {
		return st
	}
	return RoomInactive
}

// OpenRoom makes the room the active one, loads the first page if no
// messages are cached yet, and resets the unread counter.
func (s *conversationStore) OpenRoom(ctx context.Context, roomId string) error {
	s.mu.Lock()
	if _, ok := s.rooms[roomId]; !ok {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	if s.active != "" && s.active != roomId {
		s.states[s.active] = RoomInactive
	}
	s.active = roomId
	s.unread[roomId] = 0
	needFetch := len(s.messages[roomId]) == 0
	if needFetch {
		s.states[roomId] = RoomLoading
	} else {
		s.states[roomId] = RoomActive
	}
	s.mu.Unlock()

	if !needFetch {
		return nil
	}
	if err := s.fetchPage(ctx, roomId, 1); err != nil {
		s.mu.Lock()
		if s.active == roomId {
			s.states[roomId] = RoomErrored
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.active == roomId {
		s.states[roomId] = RoomActive
	}
	s.mu.Unlock()
	return nil
}

func (s *conversationStore) CloseRoom(roomId string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == roomId {
		s.active = ""
	}
	if _, ok := s.states[roomId]; ok {
		s.states[roomId] = RoomInactive
	}
}

func (s *conversationStore) ActiveRoom() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// FetchMessages loads one page of history. Page 1 replaces the loaded
// window; later pages splice older messages in front of it. A second
// call while a fetch for the room is in flight is a no-op, and results
// for a room that was deleted or reset mid-flight are discarded.
func (s *conversationStore) FetchMessages(ctx context.Context, roomId string, page int) error {
	return s.fetchPage(ctx, roomId, page)
}

func (s *conversationStore) fetchPage(ctx context.Context, roomId string, page int) error {
	s.mu.Lock()
	if s.inflight[roomId] {
		s.mu.Unlock()
		return nil
	}
	s.inflight[roomId] = true
	gen := s.gens[roomId]
	s.mu.Unlock()

	msgs, hasMore, err := s.repo.Messages(ctx, roomId, page, s.pageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, roomId)

	if s.gens[roomId] != gen {
		// room was deleted or reset while the request was in flight
		return nil
	}
	if err != nil {
		return err
	}

	if page == 1 {
		for _, old := range s.messages[roomId] {
			delete(s.roomOf, old.Id)
		}
		s.messages[roomId] = nil
	}

	existing := make(map[string]bool, len(s.messages[roomId]))
	for _, m := range s.messages[roomId] {
		if m.Id != "" {
			existing[m.Id] = true
		}
	}

	// pages arrive newest-window first; older pages go in front so the
	// loaded window stays in chronological order
	fresh := make([]entity.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Id != "" && existing[m.Id] {
			continue
		}
		fresh = append(fresh, m)
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].CreatedAt.Before(fresh[j].CreatedAt)
	})

	if page == 1 {
		s.messages[roomId] = fresh
	} else {
		s.messages[roomId] = append(fresh, s.messages[roomId]...)
	}
	for _, m := range fresh {
		if m.Id != "" {
			s.roomOf[m.Id] = roomId
		}
	}

	cur := s.cursors[roomId]
	if cur == nil {
		cur = &cursor{}
		s.cursors[roomId] = cur
	}
	if page > cur.CurrentPage {
		cur.CurrentPage = page
	}
	cur.HasMore = hasMore
	return nil
}

func (s *conversationStore) Messages(roomId string) []entity.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[roomId]
	out := make([]entity.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (s *conversationStore) Cursor(roomId string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur := s.cursors[roomId]
	if cur == nil {
		return 0, true
	}
	return cur.CurrentPage, cur.HasMore
}

type outgoingMessage struct {
	ChatRoomId string `json:"chatRoomId"`
	ClientId   string `json:"clientId"`
	Type       string `json:"messageType"`
	Content    string `json:"content"`
	Caption    string `json:"caption,omitempty"`
}

// SendMessage appends a pending entry immediately and emits the frame.
// The socket echo carrying the same clientId reconciles the entry with
// its server-assigned id.
func (s *conversationStore) SendMessage(ctx context.Context, roomId, content string, msgType entity.MessageType) (entity.Message, error) {
	s.mu.RLock()
	_, ok := s.rooms[roomId]
	s.mu.RUnlock()
	if !ok {
		return entity.Message{}, ErrRoomNotFound
	}

	pending := entity.Message{
		ChatRoomId: roomId,
		Sender:     entity.User{Id: s.selfId},
		Type:       msgType,
		Content:    content,
		CreatedAt:  time.Now(),
		ClientId:   uuid.New().String(),
		Pending:    true,
	}

	err := s.emitter.Emit(socket.EventMessage, outgoingMessage{
		ChatRoomId: roomId,
		ClientId:   pending.ClientId,
		Type:       string(msgType),
		Content:    content,
	})
	if err != nil {
		return entity.Message{}, err
	}

	s.mu.Lock()
	s.appendLocked(roomId, pending)
	s.mu.Unlock()
	return pending, nil
}

// SendMedia uploads the file over REST first; the resulting message
// arrives back through the socket echo like a text send, but the upload
// response already carries the stored message, so it is applied
// directly with echo deduplication handling the overlap.
func (s *conversationStore) SendMedia(ctx context.Context, roomId, filename string, file io.Reader, msgType entity.MessageType, caption string) (entity.Message, error) {
	s.mu.RLock()
	_, ok := s.rooms[roomId]
	s.mu.RUnlock()
	if !ok {
		return entity.Message{}, ErrRoomNotFound
	}

	msg, err := s.repo.UploadMedia(ctx, roomId, filename, file, msgType, caption)
	if err != nil {
		return entity.Message{}, err
	}
	s.ReceiveMessage(msg)
	return msg, nil
}

// ReceiveMessage applies an inbound message event: reconcile a pending
// own echo, or append. The room's lastMessage/updatedAt follow the
// message, and the unread counter bumps only when the room is not the
// active one.
func (s *conversationStore) ReceiveMessage(msg entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomId := msg.ChatRoomId
	if roomId == "" {
		return
	}

	if msg.Id != "" {
		if existingRoom, ok := s.roomOf[msg.Id]; ok && existingRoom == roomId {
			return
		}
	}

	msg.Pending = false
	if !s.reconcileLocked(roomId, msg) {
		s.appendLocked(roomId, msg)
	}

	if msg.Sender.Id != s.selfId && s.active != roomId {
		s.unread[roomId]++
	}

	// arrival clears the sender's typing flag
	s.typing.Delete(typingKey(roomId, msg.Sender.Id))
}

// reconcileLocked swaps a pending optimistic entry for its echo.
func (s *conversationStore) reconcileLocked(roomId string, msg entity.Message) bool {
	if msg.ClientId == "" || msg.Sender.Id != s.selfId {
		return false
	}
	msgs := s.messages[roomId]
	for i := range msgs {
		if msgs[i].Pending && msgs[i].ClientId == msg.ClientId {
			msgs[i] = msg
			if msg.Id != "" {
				s.roomOf[msg.Id] = roomId
			}
			s.touchRoomLocked(roomId, msg)
			return true
		}
	}
	return false
}

func (s *conversationStore) appendLocked(roomId string, msg entity.Message) {
	s.messages[roomId] = append(s.messages[roomId], msg)
	if msg.Id != "" {
		s.roomOf[msg.Id] = roomId
	}
	s.touchRoomLocked(roomId, msg)
}

func (s *conversationStore) touchRoomLocked(roomId string, msg entity.Message) {
	room := s.rooms[roomId]
	if room == nil {
		// message for a room the list has not caught up with yet; a
		// chat_created notification or the next ListRooms fills it in
		room = &entity.ChatRoom{Id: roomId}
		s.rooms[roomId] = room
		s.states[roomId] = RoomInactive
		s.order = append([]string{roomId}, s.order...)
	}
	last := msg
	room.LastMessage = &last
	room.UpdatedAt = msg.CreatedAt
}

// MarkSeen records that userId has displayed the message and notifies
// the peer over the socket. The room's unread counter drops when the
// reader is this client. Applying it twice is a no-op.
func (s *conversationStore) MarkSeen(messageId, userId string) error {
	s.mu.Lock()
	roomId, ok := s.roomOf[messageId]
	if !ok {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	added := false
	msgs := s.messages[roomId]
	for i := range msgs {
		if msgs[i].Id == messageId {
			added = msgs[i].MarkSeenBy(userId)
			break
		}
	}
	if added && userId == s.selfId && s.unread[roomId] > 0 {
		s.unread[roomId]--
	}
	s.mu.Unlock()

	if !added {
		return nil
	}
	return s.emitter.Emit(socket.EventMessageSeen, seenEvent{
		MessageId:  messageId,
		ChatRoomId: roomId,
		UserId:     userId,
	})
}

// ReceiveSeen applies an inbound read receipt. Idempotent.
func (s *conversationStore) ReceiveSeen(messageId, userId string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomId, ok := s.roomOf[messageId]
	if !ok {
		return
	}
	msgs := s.messages[roomId]
	for i := range msgs {
		if msgs[i].Id == messageId {
			msgs[i].MarkSeenBy(userId)
			return
		}
	}
}

type seenEvent struct {
	MessageId  string `json:"messageId"`
	ChatRoomId string `json:"chatRoomId"`
	UserId     string `json:"userId"`
}

type typingEvent struct {
	ChatRoomId string `json:"chatRoomId"`
	UserId     string `json:"userId"`
	IsTyping   bool   `json:"isTyping"`
}

func typingKey(roomId, userId string) string {
	return "typing:" + roomId + ":" + userId
}

// SetTyping applies an inbound typing event. Start events are
// idempotent (set semantics) and expire on their own when no refresh
// arrives, so a peer that disconnects mid-typing does not stick.
func (s *conversationStore) SetTyping(roomId, userId string, isTyping bool) {
	if isTyping {
		s.typing.Set(typingKey(roomId, userId), true, s.typingTTL)
	} else {
		s.typing.Delete(typingKey(roomId, userId))
	}
}

// NotifyTyping tells the peers whether this client is typing.
func (s *conversationStore) NotifyTyping(roomId string, isTyping bool) error {
	return s.emitter.Emit(socket.EventUserTyping, typingEvent{
		ChatRoomId: roomId,
		UserId:     s.selfId,
		IsTyping:   isTyping,
	})
}

func (s *conversationStore) TypingUsers(roomId string) []string {
	prefix := "typing:" + roomId + ":"
	keys := s.typing.KeysWithPrefix(prefix)
	users := make([]string, 0, len(keys))
	for _, k := range keys {
		users = append(users, strings.TrimPrefix(k, prefix))
	}
	sort.Strings(users)
	return users
}

func (s *conversationStore) UnreadCount(roomId string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.unread[roomId]
	if n < 0 {
		return 0
	}
	return n
}

// DeleteMessage removes the message server-side and locally, fixing up
// the room's lastMessage when the removed one was most recent.
func (s *conversationStore) DeleteMessage(ctx context.Context, messageId string) error {
	s.mu.RLock()
	roomId, ok := s.roomOf[messageId]
	s.mu.RUnlock()
	if !ok {
		return ErrMessageNotFound
	}

	if err := s.repo.DeleteMessage(ctx, messageId); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[roomId]
	for i := range msgs {
		if msgs[i].Id == messageId {
			s.messages[roomId] = append(msgs[:i], msgs[i+1:]...)
			break
		}
	}
	delete(s.roomOf, messageId)

	if room := s.rooms[roomId]; room != nil && room.LastMessage != nil && room.LastMessage.Id == messageId {
		rest := s.messages[roomId]
		if len(rest) > 0 {
			last := rest[len(rest)-1]
			room.LastMessage = &last
			room.UpdatedAt = last.CreatedAt
		} else {
			room.LastMessage = nil
		}
	}
	return nil
}

// DeleteChat removes the room server-side, then cascade-clears every
// piece of per-room state: list entry, messages, cursor, typing set,
// unread counter, in-flight bookkeeping.
func (s *conversationStore) DeleteChat(ctx context.Context, roomId string) error {
	s.mu.RLock()
	_, ok := s.rooms[roomId]
	s.mu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}

	if err := s.repo.Delete(ctx, roomId); err != nil {
		return err
	}

	s.mu.Lock()
	s.dropRoomLocked(roomId)
	s.mu.Unlock()
	return nil
}

func (s *conversationStore) dropRoomLocked(roomId string) {
	for _, m := range s.messages[roomId] {
		if m.Id != "" {
			delete(s.roomOf, m.Id)
		}
	}
	delete(s.messages, roomId)
	delete(s.rooms, roomId)
	delete(s.states, roomId)
	delete(s.cursors, roomId)
	delete(s.unread, roomId)
	delete(s.inflight, roomId)
	s.gens[roomId]++ // any in-flight fetch result is now stale

	for i, id := range s.order {
		if id == roomId {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.active == roomId {
		s.active = ""
	}
	for _, key := range s.typing.KeysWithPrefix("typing:" + roomId + ":") {
		s.typing.Delete(key)
	}
}

// CreateChat returns the backend's tri-state outcome: a materialized
// room (merged into the list without duplication), a pending permission
// request, or an error such as api.ErrContactRestricted.
func (s *conversationStore) CreateChat(ctx context.Context, participantIds []string, isGroup bool, name, message string) (repository.CreateChatResult, error) {
	result, err := s.repo.Create(ctx, participantIds, isGroup, name, message)
	if err != nil {
		return repository.CreateChatResult{}, err
	}

	s.mu.Lock()
	switch result.Outcome {
	case repository.OutcomeChatCreated:
		s.mergeRoomLocked(*result.Room)
	case repository.OutcomePermissionRequested:
		s.requests[result.Request.Id] = *result.Request
	}
	s.mu.Unlock()
	return result, nil
}

func (s *conversationStore) mergeRoomLocked(room entity.ChatRoom) {
	if existing, ok := s.rooms[room.Id]; ok {
		*existing = room
		return
	}
	s.rooms[room.Id] = &room
	s.states[room.Id] = RoomInactive
	s.order = append([]string{room.Id}, s.order...)
}

func (s *conversationStore) PermissionRequests(ctx context.Context, direction entity.PermissionDirection) ([]entity.PermissionRequest, error) {
	reqs, err := s.repo.PermissionRequests(ctx, direction)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	for _, req := range reqs {
		s.requests[req.Id] = req
	}
	s.mu.Unlock()
	return reqs, nil
}

// RespondPermissionRequest resolves a received request. Approval
// materializes the room and merges it without duplication.
func (s *conversationStore) RespondPermissionRequest(ctx context.Context, requestId string, approve bool) error {
	room, err := s.repo.RespondPermissionRequest(ctx, requestId, approve)
	if err != nil {
		return err
	}

	s.mu.Lock()
	req, ok := s.requests[requestId]
	if ok {
		if approve {
			req.Status = entity.PermissionApproved
		} else {
			req.Status = entity.PermissionDenied
		}
		s.requests[requestId] = req
	}
	if approve && room != nil {
		s.mergeRoomLocked(*room)
	}
	s.mu.Unlock()

	if !ok {
		log.Printf("store: responded to unknown permission request %s", requestId)
	}
	return nil
}

func (s *conversationStore) Close() {
	s.typing.Close()
}
