package apiclient

import (
	"log/slog"
	"sync"
	"time"

	"github.com/abdullah0035/itip-sub000/internal/web/session"
	"github.com/abdullah0035/itip-sub000/pkg/httpclient"
)

// Pool hands out one Client per browser session so the 403 debounce state is
// shared by every concurrent request of that session. The HTTP transport is
// shared across all clients.
type Pool struct {
	baseURL string
	httpc   *httpclient.Client
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[string]*poolEntry
}

type poolEntry struct {
	client   *Client
	lastSeen time.Time
}

// NewPool creates a client pool for the given backend base URL.
func NewPool(baseURL string, logger *slog.Logger) *Pool {
	p := &Pool{
		baseURL: baseURL,
		httpc:   httpclient.New(httpclient.NoRetryConfig(requestTimeout)),
		logger:  logger,
		clients: make(map[string]*poolEntry),
	}
	go p.sweep()
	return p
}

// For returns the session's client, creating it on first use.
func (p *Pool) For(sid string, state *session.State) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.clients[sid]; ok {
		entry.lastSeen = time.Now()
		return entry.client
	}

	client := New(p.baseURL, state, p.httpc, p.logger)
	p.clients[sid] = &poolEntry{client: client, lastSeen: time.Now()}
	return client
}

func (p *Pool) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		p.mu.Lock()
		for sid, entry := range p.clients {
			if entry.lastSeen.Before(cutoff) {
				delete(p.clients, sid)
			}
		}
		p.mu.Unlock()
	}
}
