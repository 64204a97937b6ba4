// Package chat is the client-side messaging core of the marketplace inbox: a
// normalized message store fed by a one-shot history fetch and a live
// websocket channel, plus the pure derivations that turn the flat message log
// into a conversation list and an active thread.
package chat

import "sync"

// Session is the explicit credential object handed to the history loader and
// the live channel. Its lifecycle is tied to login/logout calls by the owner;
// nothing in this package holds ambient global auth state.
type Session struct {
	mu     sync.RWMutex
	userID uint
	token  string
}

func NewSession(userID uint, token string) *Session {
	return &Session{userID: userID, token: token}
}

func (s *Session) UserID() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear revokes the credential on logout. Loads and connections keyed to the
// old token observe the change and discard their results.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.userID = 0
}

// Valid reports whether a credential is present.
func (s *Session) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}
