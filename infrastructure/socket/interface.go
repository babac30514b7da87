package socket

import (
	"context"
	"encoding/json"
)

// Named events carried over the socket. Payloads are JSON.
const (
	EventMessage      = "message"
	EventUserTyping   = "userTyping"
	EventMessageSeen  = "messageSeen"
	EventNotification = "notification"
)

type Handler func(payload json.RawMessage)

// Subscription identifies one registration so Off is symmetric with On
// even when the same handler function is registered twice.
type Subscription struct {
	event string
	id    uint64
}

type Bus interface {
	Connect(ctx context.Context) error
	Close() error
	On(event string, h Handler) Subscription
	Off(sub Subscription)
	Emit(event string, payload any) error
	State() State
}
