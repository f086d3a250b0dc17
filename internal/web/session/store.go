package session

import (
	"context"
	"sync"
	"time"
)

// Store persists whole sessions keyed by browser session id. A missing or
// corrupt blob loads as the initial empty session, never as an error; the
// second return value reports whether a persisted session was found.
type Store interface {
	Load(ctx context.Context, sid string) (Session, bool)
	Save(ctx context.Context, sid string, s Session) error
	Delete(ctx context.Context, sid string) error
}

// MemoryStore keeps sessions in process memory. It backs tests and
// single-instance development runs; production uses the redis store.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store with the given session TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, sessions: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Load(_ context.Context, sid string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[sid]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(m.sessions, sid)
		return Initial(), false
	}
	return entry.session, true
}

func (m *MemoryStore) Save(_ context.Context, sid string, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sid] = memoryEntry{session: s, expiresAt: time.Now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sid)
	return nil
}
