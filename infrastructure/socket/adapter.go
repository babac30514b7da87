package socket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateClosed       State = "closed"
)

var (
	ErrOutboxFull = errors.New("socket: outbox is full")
	ErrClosed     = errors.New("socket: adapter is closed")
)

// frame is the wire format: a named event with a JSON payload.
type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

const defaultOutboxSize = 64

// Adapter wraps a websocket connection behind On/Off/Emit. A single
// read pump dispatches inbound frames in arrival order, once per
// registration. Connection loss triggers a reconnect loop with
// exponential backoff; frames emitted while disconnected queue in a
// bounded outbox and flush in order before the adapter reports
// connected again.
type Adapter struct {
	url    string
	header http.Header

	mu       sync.RWMutex
	handlers map[string]map[uint64]Handler
	nextID   uint64
	state    State

	writeMu   sync.Mutex // serializes conn writes and outbox access
	conn      *websocket.Conn
	outbox    [][]byte
	maxOutbox int

	initialBackoff time.Duration
	maxBackoff     time.Duration

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewAdapter(url string, header http.Header) *Adapter {
	return &Adapter{
		url:            url,
		header:         header,
		handlers:       make(map[string]map[uint64]Handler),
		state:          StateDisconnected,
		maxOutbox:      defaultOutboxSize,
		initialBackoff: time.Second,
		maxBackoff:     30 * time.Second,
		done:           make(chan struct{}),
	}
}

// SetOutboxSize bounds how many frames may queue while disconnected.
// Must be called before Connect.
func (a *Adapter) SetOutboxSize(n int) {
	a.maxOutbox = n
}

// SetBackoff tunes the reconnect policy. Must be called before Connect.
func (a *Adapter) SetBackoff(initial, max time.Duration) {
	a.initialBackoff = initial
	a.maxBackoff = max
}

func (a *Adapter) Connect(ctx context.Context) error {
	if a.isClosed() {
		return ErrClosed
	}
	a.setState(StateConnecting)
	conn, err := a.dial(ctx)
	if err != nil {
		a.setState(StateDisconnected)
		return err
	}
	if err := a.attach(conn); err != nil {
		conn.Close()
		a.setState(StateDisconnected)
		return err
	}
	a.wg.Add(1)
	go a.run(ctx, conn)
	return nil
}

func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		a.writeMu.Lock()
		if a.conn != nil {
			a.conn.Close()
			a.conn = nil
		}
		a.writeMu.Unlock()
		a.setState(StateClosed)
	})
	a.wg.Wait()
	return nil
}

func (a *Adapter) On(event string, h Handler) Subscription {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextID++
	id := a.nextID
	m := a.handlers[event]
	if m == nil {
		m = make(map[uint64]Handler)
		a.handlers[event] = m
	}
	m[id] = h
	return Subscription{event: event, id: id}
}

func (a *Adapter) Off(sub Subscription) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if m := a.handlers[sub.event]; m != nil {
		delete(m, sub.id)
		if len(m) == 0 {
			delete(a.handlers, sub.event)
		}
	}
}

// Emit sends a named event. While disconnected the frame queues and is
// flushed in order on reconnect; a full outbox returns ErrOutboxFull.
func (a *Adapter) Emit(event string, payload any) error {
	if a.isClosed() {
		return ErrClosed
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(frame{Event: event, Payload: raw})
	if err != nil {
		return err
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if a.conn == nil {
		return a.enqueueLocked(data)
	}
	if err := a.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		// connection is going down; the read pump will notice and
		// reconnect, so keep the frame for the flush
		return a.enqueueLocked(data)
	}
	return nil
}

func (a *Adapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Adapter) enqueueLocked(data []byte) error {
	if len(a.outbox) >= a.maxOutbox {
		return ErrOutboxFull
	}
	a.outbox = append(a.outbox, data)
	return nil
}

func (a *Adapter) run(ctx context.Context, conn *websocket.Conn) {
	defer a.wg.Done()
	for {
		a.readLoop(conn)
		a.detach()
		conn.Close()

		if a.isClosed() || ctx.Err() != nil {
			return
		}

		a.setState(StateConnecting)
		next, err := a.reconnect(ctx)
		if err != nil {
			if !a.isClosed() {
				a.setState(StateDisconnected)
				log.Printf("socket: reconnect abandoned: %v", err)
			}
			return
		}
		conn = next
	}
}

func (a *Adapter) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !a.isClosed() {
				log.Printf("socket: read: %v", err)
			}
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Printf("socket: dropping malformed frame: %v", err)
			continue
		}
		a.dispatch(f)
	}
}

// dispatch calls every handler registered for the frame's event, in
// registration order.
func (a *Adapter) dispatch(f frame) {
	a.mu.RLock()
	m := a.handlers[f.Event]
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	list := make([]Handler, 0, len(ids))
	for _, id := range ids {
		list = append(list, m[id])
	}
	a.mu.RUnlock()

	for _, h := range list {
		h(f.Payload)
	}
}

// attach flushes the outbox over the new connection, then installs it.
// The adapter only reports connected once the queue has drained.
func (a *Adapter) attach(conn *websocket.Conn) error {
	if a.isClosed() {
		return ErrClosed
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	for len(a.outbox) > 0 {
		if err := conn.WriteMessage(websocket.TextMessage, a.outbox[0]); err != nil {
			return err
		}
		a.outbox = a.outbox[1:]
	}
	a.conn = conn
	a.setState(StateConnected)
	return nil
}

func (a *Adapter) detach() {
	a.writeMu.Lock()
	a.conn = nil
	a.writeMu.Unlock()
}

func (a *Adapter) reconnect(ctx context.Context) (*websocket.Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = a.initialBackoff
	bo.MaxInterval = a.maxBackoff
	bo.MaxElapsedTime = 0

	var conn *websocket.Conn
	op := func() error {
		select {
		case <-a.done:
			return backoff.Permanent(ErrClosed)
		default:
		}
		c, err := a.dial(ctx)
		if err != nil {
			return err
		}
		if err := a.attach(c); err != nil {
			c.Close()
			if errors.Is(err, ErrClosed) {
				return backoff.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return conn, nil
}

func (a *Adapter) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.url, a.header)
	return conn, err
}

func (a *Adapter) isClosed() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	if a.state != StateClosed || s == StateClosed {
		a.state = s
	}
	a.mu.Unlock()
}
