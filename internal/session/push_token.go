package session

import (
	"context"
	"log"
)

// PushState is the push-token lifecycle. The client only reports push
// as enabled once the backend has acknowledged the registration.
type PushState string

const (
	PushUnsupported      PushState = "unsupported"
	PushUnregistered     PushState = "unregistered"
	PushLocallyCached    PushState = "locally-cached"
	PushServerRegistered PushState = "server-registered"
)

func (s *Session) PushStatus() PushState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushState
}

func (s *Session) PushEnabled() bool {
	return s.PushStatus() == PushServerRegistered
}

// initPush walks the token lifecycle on session start. A locally cached
// token is re-asserted with the backend because cache and server state
// can diverge (token rotation, reinstall); failing that, a fresh token
// is requested and registered. Permission denial or an unsupported
// platform degrades to in-app-only notifications. Runs at most once
// per session.
func (s *Session) initPush(ctx context.Context) {
	s.mu.Lock()
	if s.pushInitDone {
		s.mu.Unlock()
		return
	}
	s.pushInitDone = true
	s.mu.Unlock()

	if s.provider == nil || !s.provider.Supported() {
		s.setPushState(PushUnsupported)
		return
	}
	s.setPushState(PushUnregistered)

	cached, err := s.tokenCache.Load()
	if err != nil {
		log.Printf("session: push token cache read: %v", err)
	}
	if cached != "" {
		s.mu.Lock()
		s.pushToken = cached
		s.mu.Unlock()
		s.setPushState(PushLocallyCached)

		if err := s.notifRepo.RegisterFCMToken(ctx, cached); err == nil {
			s.setPushState(PushServerRegistered)
			return
		} else {
			log.Printf("session: cached push token rejected, requesting a fresh one: %v", err)
		}
	}

	token, err := s.provider.RequestToken(ctx)
	if err != nil {
		logDegrade("token request failed", err)
		if cached == "" {
			s.setPushState(PushUnregistered)
		}
		return
	}

	s.mu.Lock()
	s.pushToken = token
	s.mu.Unlock()
	if err := s.tokenCache.Store(token); err != nil {
		log.Printf("session: push token cache write: %v", err)
	}
	s.setPushState(PushLocallyCached)

	if err := s.notifRepo.RegisterFCMToken(ctx, token); err != nil {
		logDegrade("registration failed", err)
		return
	}
	s.setPushState(PushServerRegistered)
}

func (s *Session) setPushState(state PushState) {
	s.mu.Lock()
	s.pushState = state
	s.mu.Unlock()
}
