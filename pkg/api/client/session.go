package client

import (
	"context"
	"errors"
	"sync"
)

// SessionState is a point-in-time view of a SessionStore.
type SessionState struct {
	User    *User
	Loading bool
	Err     error
}

// SessionFetcher resolves the current user from the API.
type SessionFetcher interface {
	Me(ctx context.Context) (*User, error)
}

// SessionStore tracks who is signed in on the client side. Callers construct
// one explicitly and pass it to whatever needs it.
type SessionStore struct {
	mu      sync.RWMutex
	fetcher SessionFetcher
	state   SessionState
}

// NewSessionStore returns a store that starts in the loading state until the
// first FetchMe completes.
func NewSessionStore(fetcher SessionFetcher) *SessionStore {
	return &SessionStore{fetcher: fetcher, state: SessionState{Loading: true}}
}

// Get returns the current state.
func (s *SessionStore) Get() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Set records user as signed in.
func (s *SessionStore) Set(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionState{User: user}
}

// Clear forgets the signed-in user.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionState{}
}

// FetchMe refreshes the store from the API. Any failure leaves the store
// signed out; transport failures are also kept in the state and returned.
func (s *SessionStore) FetchMe(ctx context.Context) error {
	s.mu.Lock()
	s.state.Loading = true
	s.state.Err = nil
	s.mu.Unlock()

	user, err := s.fetcher.Me(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	var apiErr APIError
	switch {
	case err == nil:
		s.state = SessionState{User: user}
	case errors.As(err, &apiErr):
		s.state = SessionState{}
		return nil
	default:
		s.state = SessionState{Err: err}
	}
	return err
}
