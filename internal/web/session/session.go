// Package session holds the per-browser authentication state of the web
// tier: login flags, the encoded credential, the encoded profile, and the
// post-login navigation target. All mutation goes through the State action
// set; nothing writes fields directly.
package session

import "sync"

// Kind selects which audience a login belongs to.
type Kind string

const (
	KindProvider Kind = "provider"
	KindCustomer Kind = "customer"
)

// DefaultPostLoginRedirect is where a fresh session lands after login unless
// a flow overrides it first.
const DefaultPostLoginRedirect = "/dashboard"

// Session is the persisted per-browser state. Token and Profile hold
// obscure-encoded blobs; both are empty strings when absent, never null.
// Epoch is a generation counter bumped on logout so late responses from a
// previous generation can be recognized and dropped.
type Session struct {
	ProviderLoggedIn  bool   `json:"provider_logged_in"`
	CustomerLoggedIn  bool   `json:"customer_logged_in"`
	Token             string `json:"token"`
	Profile           string `json:"profile"`
	PostLoginRedirect string `json:"post_login_redirect"`
	Epoch             uint64 `json:"epoch"`
}

// Initial returns the empty session every browser starts from and every
// logout returns to.
func Initial() Session {
	return Session{PostLoginRedirect: DefaultPostLoginRedirect}
}

// LoggedIn reports whether either audience flag is set.
func (s Session) LoggedIn() bool {
	return s.ProviderLoggedIn || s.CustomerLoggedIn
}

// State is the mutable session with its action set. A single State is shared
// by every request of one browser session; all actions run under one lock so
// no observer can see a half-applied transition.
type State struct {
	mu   sync.Mutex
	s    Session
	subs map[int]func(Session)
	next int
}

// NewState creates a State holding the initial empty session.
func NewState() *State {
	return NewStateFrom(Initial())
}

// NewStateFrom creates a State rehydrated from a persisted session.
func NewStateFrom(s Session) *State {
	return &State{s: s, subs: make(map[int]func(Session))}
}

// Snapshot returns a copy of the current session.
func (st *State) Snapshot() Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// Subscribe registers fn to run after every mutation with the new session
// value. The returned function cancels the subscription.
func (st *State) Subscribe(fn func(Session)) func() {
	st.mu.Lock()
	id := st.next
	st.next++
	st.subs[id] = fn
	st.mu.Unlock()

	return func() {
		st.mu.Lock()
		delete(st.subs, id)
		st.mu.Unlock()
	}
}

// Login records a successful authentication for one audience: the flag, the
// encoded token, and the encoded profile land in one transition.
func (st *State) Login(kind Kind, encodedToken, encodedProfile string) {
	st.mutate(func(s *Session) {
		s.ProviderLoggedIn = kind == KindProvider
		s.CustomerLoggedIn = kind == KindCustomer
		s.Token = encodedToken
		s.Profile = encodedProfile
	})
}

// Logout resets every field to its initial value and advances the epoch.
// The reset is atomic: no reader can observe a token without its flag or
// the reverse.
func (st *State) Logout() {
	st.mutate(func(s *Session) {
		epoch := s.Epoch
		*s = Initial()
		s.Epoch = epoch + 1
	})
}

// SetToken replaces the encoded credential, as after a token refresh.
func (st *State) SetToken(encoded string) {
	st.mutate(func(s *Session) { s.Token = encoded })
}

// SetProfile replaces the encoded profile, as after a profile update.
func (st *State) SetProfile(encoded string) {
	st.mutate(func(s *Session) { s.Profile = encoded })
}

// SetPostLoginRedirect overrides where the next successful login navigates.
func (st *State) SetPostLoginRedirect(path string) {
	st.mutate(func(s *Session) { s.PostLoginRedirect = path })
}

// mutate applies fn under the lock, then notifies subscribers with the new
// value outside it so a subscriber may call back into the State.
func (st *State) mutate(fn func(*Session)) {
	st.mu.Lock()
	fn(&st.s)
	snapshot := st.s
	subs := make([]func(Session), 0, len(st.subs))
	for _, fn := range st.subs {
		subs = append(subs, fn)
	}
	st.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}
