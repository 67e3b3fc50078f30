package game

import (
	"context"
	"sync"
	"time"
)

// SessionStore keeps in-flight sessions keyed by session id. Get fails with
// ErrSessionNotFound for unknown or expired ids.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Remove(ctx context.Context, id string) error
}

// MemoryStore is an in-process SessionStore. Sessions expire ttl after their
// last activity; expired entries are invisible to Get and dropped by Sweep.
// Sessions are copied on the way in and out.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore initializes a store with an injectable clock.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, newError(CodeSessionNotFound, "session %q not found", id)
	}
	if m.expiredLocked(session, m.now()) {
		delete(m.sessions, id)
		return nil, newError(CodeSessionNotFound, "session %q expired", id)
	}
	return session.clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, session *Session) error {
	if session == nil {
		return nil
	}
	m.mu.Lock()
	m.sessions[session.ID] = session.clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Sweep drops sessions idle for longer than the TTL and reports how many
// were removed.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, session := range m.sessions {
		if session == nil || m.expiredLocked(session, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored sessions, expired ones included until
// the next sweep.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) expiredLocked(session *Session, now time.Time) bool {
	if m.ttl <= 0 {
		return false
	}
	return now.Sub(session.LastActivityAt) > m.ttl
}
