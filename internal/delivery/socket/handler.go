package socket

import (
	"encoding/json"
	"log"

	transport "ripple/infrastructure/socket"
	"ripple/internal/entity"
	"ripple/internal/store"
)

// Handler binds inbound socket events to store mutations. Events are
// dispatched by the transport's single read pump, so handlers run in
// arrival order.
type Handler struct {
	bus   transport.Bus
	conv  store.ConversationStore
	notif store.NotificationStore
	subs  []transport.Subscription
}

func NewHandler(bus transport.Bus, conv store.ConversationStore, notif store.NotificationStore) *Handler {
	return &Handler{
		bus:   bus,
		conv:  conv,
		notif: notif,
	}
}

// Bind subscribes to every inbound event. Call Unbind on teardown;
// the pair is symmetric, so Bind after Unbind is safe.
func (h *Handler) Bind() {
	h.subs = append(h.subs,
		h.bus.On(transport.EventMessage, h.handleMessage),
		h.bus.On(transport.EventUserTyping, h.handleTyping),
		h.bus.On(transport.EventMessageSeen, h.handleSeen),
		h.bus.On(transport.EventNotification, h.handleNotification),
	)
}

func (h *Handler) Unbind() {
	for _, sub := range h.subs {
		h.bus.Off(sub)
	}
	h.subs = nil
}

func (h *Handler) handleMessage(payload json.RawMessage) {
	var event messageEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("delivery: bad message event: %v", err)
		return
	}
	h.conv.ReceiveMessage(event.toEntity())
}

func (h *Handler) handleTyping(payload json.RawMessage) {
	var event typingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("delivery: bad typing event: %v", err)
		return
	}
	h.conv.SetTyping(event.ChatRoomId, event.UserId, event.IsTyping)
}

func (h *Handler) handleSeen(payload json.RawMessage) {
	var event seenEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("delivery: bad seen event: %v", err)
		return
	}
	h.conv.ReceiveSeen(event.MessageId, event.UserId)
}

func (h *Handler) handleNotification(payload json.RawMessage) {
	var event entity.PushPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("delivery: bad notification event: %v", err)
		return
	}
	h.notif.ReceivePush(event)
}
