package auth

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Session is the server-side record of a signed-in account. It holds the
// raw authorization fields so a refreshed token can be re-issued without a
// DB round-trip, and its presence gates token refresh: a revoked session
// makes the refresh fail even if the JWT itself is still valid.
type Session struct {
	UserID   string
	Raw      RawUser
	IssuedAt time.Time
}

// SessionStore is a TTL registry of active sessions, keyed by user ID.
// Entries expire on their own after the refresh-expiration delta; Revoke
// removes one eagerly (sign-out), Teardown clears everything.
type SessionStore struct {
	c *gocache.Cache
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{c: gocache.New(ttl, time.Minute)}
}

// Init registers (or replaces) the session for a user at sign-in.
func (s *SessionStore) Init(sess Session) {
	s.c.Set(sess.UserID, sess, gocache.DefaultExpiration)
}

func (s *SessionStore) Get(userID string) (Session, bool) {
	v, ok := s.c.Get(userID)
	if !ok {
		return Session{}, false
	}
	sess, ok := v.(Session)
	return sess, ok
}

func (s *SessionStore) Revoke(userID string) {
	s.c.Delete(userID)
}

func (s *SessionStore) Teardown() {
	s.c.Flush()
}
