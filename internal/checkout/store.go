package checkout

import (
	"fmt"
	"sync"
	"time"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

// SessionStore holds checkout sessions in memory. Each session has its own
// lock so requests for one session apply in order while different sessions
// proceed in parallel. Sessions idle longer than the TTL are dropped.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu        sync.Mutex
	session   *Session
	expiresAt time.Time
	deleted   bool
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

func (s *SessionStore) Add(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.sessions[session.ID] = &sessionEntry{session: session, expiresAt: now.Add(s.ttl)}
}

// Acquire locks the session and returns it with a release func that must be
// called when done. Missing, expired and foreign sessions are ErrNotFound.
func (s *SessionStore) Acquire(customerID, id string) (*Session, func(), error) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok {
		return nil, nil, fmt.Errorf("checkout session %s: %w", id, domain.ErrNotFound)
	}

	entry.mu.Lock()
	now := s.now()
	if entry.deleted || entry.session.CustomerID != customerID || now.After(entry.expiresAt) {
		entry.mu.Unlock()
		return nil, nil, fmt.Errorf("checkout session %s: %w", id, domain.ErrNotFound)
	}

	release := func() {
		entry.expiresAt = s.now().Add(s.ttl)
		entry.mu.Unlock()
	}
	return entry.session, release, nil
}

// Delete drops the session. The caller must hold it via Acquire.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.sessions[id]; ok {
		entry.deleted = true
		delete(s.sessions, id)
	}
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// pruneLocked drops expired sessions that nobody holds.
func (s *SessionStore) pruneLocked(now time.Time) {
	for id, entry := range s.sessions {
		if !entry.mu.TryLock() {
			continue
		}
		if now.After(entry.expiresAt) {
			entry.deleted = true
			delete(s.sessions, id)
		}
		entry.mu.Unlock()
	}
}
