package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions keeps opaque session tokens in memory with a TTL. Tokens are
// random uuids; nothing about the user is derivable from them.
type Sessions struct {
	mu      sync.Mutex
	ttl     time.Duration
	byToken map[string]session
}

type session struct {
	username  string
	expiresAt time.Time
}

// NewSessions creates a session store whose tokens live for ttl.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{
		ttl:     ttl,
		byToken: make(map[string]session),
	}
}

// Create issues a fresh token for username.
func (s *Sessions) Create(username string) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[token] = session{
		username:  username,
		expiresAt: time.Now().Add(s.ttl),
	}
	return token
}

// Lookup resolves a token to its username. Expired tokens are dropped
// on sight.
func (s *Sessions) Lookup(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byToken[token]
	if !ok {
		return "", false
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.byToken, token)
		return "", false
	}
	return sess.username, true
}

// Revoke invalidates a token. Revoking an unknown token is a no-op.
func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byToken, token)
}

// CleanExpired drops expired sessions and reports how many were
// removed. Satisfies cache.Cleaner so the janitor can sweep sessions
// alongside the read caches.
func (s *Sessions) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for token, sess := range s.byToken {
		if now.After(sess.expiresAt) {
			delete(s.byToken, token)
			removed++
		}
	}
	return removed
}
