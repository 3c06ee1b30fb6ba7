package service

import (
	"fmt"
	"sync"
	"time"
)

// Session is one authenticated broker connection for an account.
type Session struct {
	AccountID int64
	Token     string
	CreatedAt time.Time
}

// SessionRegistry owns per-account broker sessions with an explicit
// create/evict lifecycle. The engine evicts a session whenever a broker
// call on it fails, forcing re-auth on the next attempt.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[int64]*Session),
	}
}

// Session returns the account's session, creating one on demand.
func (r *SessionRegistry) Session(accountID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[accountID]; ok {
		return s
	}
	s := &Session{
		AccountID: accountID,
		Token:     fmt.Sprintf("sess-%d-%d", accountID, time.Now().UnixNano()),
		CreatedAt: time.Now(),
	}
	r.sessions[accountID] = s
	return s
}

func (r *SessionRegistry) Evict(accountID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, accountID)
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
