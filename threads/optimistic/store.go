package optimistic

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kickback/api/internal/pkg/log"
	"github.com/kickback/api/internal/types"
)

// SessionStore keeps the most recently used sessions, one per user.
// Evicted sessions are closed, which flushes their pending deletions.
type SessionStore struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
	factory  func(user types.UserContext) *Session
}

// NewSessionStore creates a store holding up to capacity sessions built by factory
func NewSessionStore(capacity int, factory func(user types.UserContext) *Session) (*SessionStore, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	sessions, err := lru.NewWithEvict[string, *Session](capacity, func(userID string, s *Session) {
		log.Info("[SessionStore] Evicting session for user %s", userID)
		go s.Close()
	})
	if err != nil {
		return nil, err
	}
	return &SessionStore{sessions: sessions, factory: factory}, nil
}

// Get returns the session of user, creating it on first use
func (st *SessionStore) Get(user types.UserContext) *Session {
	key := user.UserID.String()

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions.Get(key); ok {
		return s
	}
	s := st.factory(user)
	st.sessions.Add(key, s)
	return s
}

// Peek returns an existing session without creating one or touching recency
func (st *SessionStore) Peek(userID string) (*Session, bool) {
	return st.sessions.Peek(userID)
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	return st.sessions.Len()
}

// Close closes every session
func (st *SessionStore) Close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, key := range st.sessions.Keys() {
		if s, ok := st.sessions.Peek(key); ok {
			s.Close()
		}
	}
	st.sessions.Purge()
}
