package session

import (
	"sync"
)

// Store maps connection ids to authenticated sessions. It is the single
// shared mutable resource of the gateway: the lifecycle controller writes it
// while the broadcast router and the stats aggregator read it concurrently,
// so every accessor copies on the way in and out.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Put attaches a session to connID, replacing any session already attached.
func (s *Store) Put(connID string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[connID] = sess.Clone()
}

func (s *Store) Get(connID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[connID]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

func (s *Store) Remove(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, connID)
}

// SetSubscriptionID records the subscription handle on connID's session in
// place, preserving everything else the session carries. Returns false when
// no session is attached (the connection disconnected in the meantime).
func (s *Store) SetSubscriptionID(connID, subscriptionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[connID]
	if !ok {
		return false
	}
	sess.SubscriptionID = subscriptionID
	return true
}

// All returns a copy of the current connection → session mapping.
func (s *Store) All() map[string]*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]*Session, len(s.sessions))
	for connID, sess := range s.sessions {
		result[connID] = sess.Clone()
	}
	return result
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ConnectionsBySubscription scans all live sessions and returns every
// connection whose session holds subscriptionID. Ids are unique across the
// store by construction, so at most one connection matches in practice, but
// all matches are returned to keep behavior well-defined should a duplicate
// ever appear.
func (s *Store) ConnectionsBySubscription(subscriptionID string) []string {
	if subscriptionID == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var conns []string
	for connID, sess := range s.sessions {
		if sess.SubscriptionID == subscriptionID {
			conns = append(conns, connID)
		}
	}
	return conns
}
