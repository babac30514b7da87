package session

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"

	"ripple/infrastructure/api"
	"ripple/infrastructure/push"
	"ripple/infrastructure/socket"
	"ripple/internal/config"
	delivery "ripple/internal/delivery/socket"
	"ripple/internal/entity"
	"ripple/internal/repository"
	"ripple/internal/store"
	"ripple/pkg/jwt"
)

var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrNotStarted     = errors.New("session not started")
)

// Session is the constructed client session: one transport, one
// identity, one set of stores, with an explicit start/close lifecycle.
// Nothing here is module state; callers hold the reference.
type Session struct {
	cfg        config.Config
	provider   push.Provider
	tokenCache TokenCache

	client    *api.Client
	auth      repository.AuthRepository
	chatRepo  repository.ChatRepository
	notifRepo repository.NotificationRepository

	// newBus builds the transport after login, once the bearer token
	// for the socket handshake is known
	newBus func(url string, header http.Header) socket.Bus

	mu           sync.Mutex
	started      bool
	pushInitDone bool
	accessToken  string
	refreshToken string
	identity     entity.TokenClaims
	pushState    PushState
	pushToken    string

	bus     socket.Bus
	conv    store.ConversationStore
	notif   store.NotificationStore
	handler *delivery.Handler

	wg sync.WaitGroup
}

func New(cfg config.Config, provider push.Provider) *Session {
	s := &Session{
		cfg:        cfg,
		provider:   provider,
		tokenCache: NewFileTokenCache(cfg.TokenCachePath),
		pushState:  PushUnregistered,
	}
	s.client = api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, s)
	s.auth = repository.NewAuthRepository(s.client)
	s.chatRepo = repository.NewChatRepository(s.client)
	s.notifRepo = repository.NewNotificationRepository(s.client)
	s.newBus = func(url string, header http.Header) socket.Bus {
		adapter := socket.NewAdapter(url, header)
		adapter.SetOutboxSize(cfg.OutboxSize)
		return adapter
	}
	return s
}

// AccessToken implements api.TokenSource.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// Start logs in, connects the transport, wires the stores, and brings
// up push. Push failures degrade to in-app-only notifications and
// never fail the start. Start is single-shot; a second call errors.
func (s *Session) Start(ctx context.Context, email, password string) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.mu.Unlock()

	auth, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	identity := entity.TokenClaims{UserId: auth.User.Id, Name: auth.User.Name}
	if claims, err := jwt.Parse(auth.AccessToken); err == nil {
		identity = *claims
	}

	s.mu.Lock()
	s.accessToken = auth.AccessToken
	s.refreshToken = auth.RefreshToken
	s.identity = identity
	s.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+auth.AccessToken)
	bus := s.newBus(s.cfg.SocketURL, header)
	if err := bus.Connect(ctx); err != nil {
		return err
	}

	conv := store.NewConversationStore(s.chatRepo, bus, identity.UserId, s.cfg.PageSize, s.cfg.TypingTTL)
	notif := store.NewNotificationStore(s.notifRepo)
	handler := delivery.NewHandler(bus, conv, notif)
	handler.Bind()

	s.mu.Lock()
	s.bus = bus
	s.conv = conv
	s.notif = notif
	s.handler = handler
	s.started = true
	s.mu.Unlock()

	s.initPush(ctx)

	if s.provider != nil && s.provider.Supported() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for payload := range s.provider.Messages() {
				notif.ReceivePush(payload)
			}
		}()
	}
	return nil
}

// Refresh swaps the token pair using the refresh token.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	refresh := s.refreshToken
	s.mu.Unlock()
	if refresh == "" {
		return ErrNotStarted
	}

	auth, err := s.auth.Refresh(ctx, refresh)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = auth.AccessToken
	if auth.RefreshToken != "" {
		s.refreshToken = auth.RefreshToken
	}
	s.mu.Unlock()
	return nil
}

// Logout invalidates the refresh token server-side, clears the token
// pair, and forgets the cached push token so the next account on this
// device starts the registration lifecycle from scratch.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refresh := s.refreshToken
	s.mu.Unlock()

	var err error
	if refresh != "" {
		err = s.auth.Logout(ctx, refresh)
	}

	if cerr := s.tokenCache.Clear(); cerr != nil {
		log.Printf("session: push token cache clear: %v", cerr)
	}

	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.pushToken = ""
	if s.pushState != PushUnsupported {
		s.pushState = PushUnregistered
	}
	s.mu.Unlock()
	return err
}

// Close tears the session down: unbind handlers, close the transport,
// stop the stores, and wait for background work.
func (s *Session) Close() error {
	s.mu.Lock()
	handler, bus, conv, notif := s.handler, s.bus, s.conv, s.notif
	s.handler, s.bus, s.conv, s.notif = nil, nil, nil, nil
	s.started = false
	s.mu.Unlock()

	if handler != nil {
		handler.Unbind()
	}
	var err error
	if bus != nil {
		err = bus.Close()
	}
	if conv != nil {
		conv.Close()
	}
	if notif != nil {
		notif.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Session) Identity() entity.TokenClaims {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Session) Conversations() store.ConversationStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv
}

func (s *Session) Notifications() store.NotificationStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notif
}

func (s *Session) Transport() socket.Bus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus
}

func logDegrade(reason string, err error) {
	log.Printf("session: push disabled (%s): %v", reason, err)
}
