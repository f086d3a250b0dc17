package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdullah0035/itip-sub000/internal/web/session"
)

func TestResolve(t *testing.T) {
	provider := session.Session{ProviderLoggedIn: true, Token: "t"}
	customer := session.Session{CustomerLoggedIn: true, Token: "t"}
	anonymous := session.Session{}

	tests := []struct {
		name string
		path string
		s    session.Session
		want Layout
	}{
		{"provider dashboard logged in", "/dashboard", provider, Layout{ShowChrome: true, Sidebar: AudienceProvider}},
		{"provider subpath logged in", "/qr-codes/abc", provider, Layout{ShowChrome: true, Sidebar: AudienceProvider}},
		{"provider dashboard anonymous", "/dashboard", anonymous, Layout{}},
		{"provider dashboard as customer", "/dashboard", customer, Layout{}},
		{"customer dashboard logged in", "/customer-dashboard", customer, Layout{ShowChrome: true, Sidebar: AudienceCustomer}},
		{"customer transactions logged in", "/customer-transactions", customer, Layout{ShowChrome: true, Sidebar: AudienceCustomer}},
		{"customer dashboard as provider", "/customer-dashboard", provider, Layout{}},
		{"login page anonymous", "/login", anonymous, Layout{AuthStyled: true}},
		{"login page while logged in keeps auth styling", "/login", provider, Layout{AuthStyled: true}},
		{"customer signup", "/customer-signup", anonymous, Layout{AuthStyled: true}},
		{"bare tip page", "/t/table-12-a1b2c3d4", anonymous, Layout{}},
		{"unknown path", "/nothing-here", provider, Layout{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.path, tt.s))
		})
	}
}

// Resolve is pure: repeated calls with the same inputs agree, and the inputs
// are not mutated.
func TestResolve_Purity(t *testing.T) {
	s := session.Session{ProviderLoggedIn: true, Token: "t", Profile: "p", Epoch: 4}
	before := s

	first := Resolve("/dashboard", s)
	second := Resolve("/dashboard", s)

	assert.Equal(t, first, second)
	assert.Equal(t, before, s)
}
