// Package layout derives page chrome decisions from the current path and
// session. Resolve is pure: no I/O, no mutation, same inputs same output.
// It informs rendering only; access control belongs to the guards.
package layout

import (
	"strings"

	"github.com/abdullah0035/itip-sub000/internal/web/session"
)

// Audience selects which sidebar item set applies.
type Audience string

const (
	AudienceNone     Audience = ""
	AudienceProvider Audience = "provider"
	AudienceCustomer Audience = "customer"
)

// Layout is the chrome decision for one rendered page.
type Layout struct {
	// ShowChrome is true only on a dashboard path whose audience is logged in.
	ShowChrome bool `json:"show_chrome"`
	// AuthStyled classifies login/signup pages for styling. Path-only; auth
	// state never factors in.
	AuthStyled bool `json:"auth_styled"`
	// Sidebar names the item set to render when chrome shows.
	Sidebar Audience `json:"sidebar,omitempty"`
}

var providerPrefixes = []string{"/dashboard", "/qr-codes", "/transactions", "/profile"}

var customerPrefixes = []string{"/customer-dashboard", "/customer-transactions", "/customer-profile"}

var authPaths = map[string]bool{
	"/login":           true,
	"/signup":          true,
	"/customer-login":  true,
	"/customer-signup": true,
}

// Resolve computes the layout for a path under the given session.
func Resolve(path string, s session.Session) Layout {
	l := Layout{AuthStyled: authPaths[path]}

	switch {
	case matchesPrefix(path, customerPrefixes):
		if s.CustomerLoggedIn {
			l.ShowChrome = true
			l.Sidebar = AudienceCustomer
		}
	case matchesPrefix(path, providerPrefixes):
		if s.ProviderLoggedIn {
			l.ShowChrome = true
			l.Sidebar = AudienceProvider
		}
	}

	return l
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
