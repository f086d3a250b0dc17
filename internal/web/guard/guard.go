// Package guard gates web routes on session login flags. Four variants cover
// audience (provider, customer) times direction (private requires a login,
// public requires its absence). A failed condition redirects; guards never
// decide layout and never call the backend.
package guard

import (
	"net/http"

	"github.com/abdullah0035/itip-sub000/internal/web/session"
)

// Redirect targets. Private guards bounce to their audience's public entry;
// public guards bounce an already-authenticated visitor to their dashboard.
const (
	ProviderEntryPath     = "/login"
	ProviderDashboardPath = "/dashboard"
	CustomerEntryPath     = "/customer-login"
	CustomerDashboardPath = "/customer-dashboard"
)

// Guard builds the four gate middlewares over a session manager. The session
// is loaded fresh on every request, so a logout fired by an in-flight 403 is
// seen on the very next navigation.
type Guard struct {
	sessions *session.Manager
}

// New creates a Guard over the given session manager.
func New(sessions *session.Manager) *Guard {
	return &Guard{sessions: sessions}
}

// ProviderPrivate passes when the provider flag is set, else redirects to the
// provider entry page.
func (g *Guard) ProviderPrivate(next http.Handler) http.Handler {
	return g.gate(next, func(s session.Session) bool { return s.ProviderLoggedIn }, ProviderEntryPath)
}

// ProviderPublic passes when the provider flag is clear, else redirects to
// the provider dashboard.
func (g *Guard) ProviderPublic(next http.Handler) http.Handler {
	return g.gate(next, func(s session.Session) bool { return !s.ProviderLoggedIn }, ProviderDashboardPath)
}

// CustomerPrivate passes when the customer flag is set, else redirects to the
// customer entry page.
func (g *Guard) CustomerPrivate(next http.Handler) http.Handler {
	return g.gate(next, func(s session.Session) bool { return s.CustomerLoggedIn }, CustomerEntryPath)
}

// CustomerPublic passes when the customer flag is clear, else redirects to
// the customer dashboard.
func (g *Guard) CustomerPublic(next http.Handler) http.Handler {
	return g.gate(next, func(s session.Session) bool { return !s.CustomerLoggedIn }, CustomerDashboardPath)
}

func (g *Guard) gate(next http.Handler, pass func(session.Session) bool, redirect string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !pass(g.sessions.Load(r.Context(), r)) {
			http.Redirect(w, r, redirect, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
