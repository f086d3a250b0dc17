package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName carries the browser session id.
const CookieName = "itip_sid"

// saveTimeout bounds each write-through to the backing store.
const saveTimeout = 3 * time.Second

// Manager hands out one shared *State per browser session. Requests of the
// same session see the same State, so a logout triggered by one in-flight
// request is visible to every other request and to the next navigation.
// Mutations write through to the Store; restarts rehydrate from it.
type Manager struct {
	store  Store
	ttl    time.Duration
	secure bool
	logger *slog.Logger

	mu   sync.Mutex
	live map[string]*liveState
}

type liveState struct {
	state    *State
	lastSeen time.Time
}

// NewManager creates a session manager over the given store. secure controls
// the cookie's Secure attribute.
func NewManager(store Store, ttl time.Duration, secure bool, logger *slog.Logger) *Manager {
	m := &Manager{
		store:  store,
		ttl:    ttl,
		secure: secure,
		logger: logger,
		live:   make(map[string]*liveState),
	}
	go m.sweep()
	return m
}

// SessionID returns the request's session id, minting one and setting the
// cookie when absent.
func (m *Manager) SessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}

	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

// State returns the shared State for the session id, rehydrating from the
// store on first use and wiring the write-through persister.
func (m *Manager) State(ctx context.Context, sid string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.live[sid]; ok {
		entry.lastSeen = time.Now()
		return entry.state
	}

	persisted, _ := m.store.Load(ctx, sid)
	state := NewStateFrom(persisted)
	state.Subscribe(func(s Session) {
		saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := m.store.Save(saveCtx, sid, s); err != nil {
			m.logger.Error("session persist failed",
				slog.String("session_id", sid),
				slog.String("error", err.Error()),
			)
		}
	})

	m.live[sid] = &liveState{state: state, lastSeen: time.Now()}
	return state
}

// Load returns the current session value for a request without keeping a
// handle to the State. Guards use this on every navigation.
func (m *Manager) Load(ctx context.Context, r *http.Request) Session {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return Initial()
	}
	return m.State(ctx, c.Value).Snapshot()
}

// sweep drops live states idle past the session TTL; the persisted copy in
// the store remains authoritative.
func (m *Manager) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-m.ttl)
		m.mu.Lock()
		for sid, entry := range m.live {
			if entry.lastSeen.Before(cutoff) {
				delete(m.live, sid)
			}
		}
		m.mu.Unlock()
	}
}
