package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialSession(t *testing.T) {
	s := Initial()

	assert.False(t, s.ProviderLoggedIn)
	assert.False(t, s.CustomerLoggedIn)
	assert.Empty(t, s.Token)
	assert.Empty(t, s.Profile)
	assert.Equal(t, DefaultPostLoginRedirect, s.PostLoginRedirect)
	assert.Zero(t, s.Epoch)
}

func TestLogin_SetsFlagTokenAndProfileTogether(t *testing.T) {
	st := NewState()

	st.Login(KindCustomer, "enc-token", "enc-profile")

	s := st.Snapshot()
	assert.True(t, s.CustomerLoggedIn)
	assert.False(t, s.ProviderLoggedIn)
	assert.Equal(t, "enc-token", s.Token)
	assert.Equal(t, "enc-profile", s.Profile)
}

func TestLogin_SwitchingAudienceClearsOtherFlag(t *testing.T) {
	st := NewState()

	st.Login(KindProvider, "t1", "p1")
	st.Login(KindCustomer, "t2", "p2")

	s := st.Snapshot()
	assert.False(t, s.ProviderLoggedIn)
	assert.True(t, s.CustomerLoggedIn)
}

func TestLogout_ResetsEverythingAndBumpsEpoch(t *testing.T) {
	st := NewState()
	st.SetPostLoginRedirect("/customer-dashboard")
	st.Login(KindCustomer, "enc-token", "enc-profile")

	st.Logout()

	s := st.Snapshot()
	initial := Initial()
	assert.Equal(t, initial.ProviderLoggedIn, s.ProviderLoggedIn)
	assert.Equal(t, initial.CustomerLoggedIn, s.CustomerLoggedIn)
	assert.Equal(t, initial.Token, s.Token)
	assert.Equal(t, initial.Profile, s.Profile)
	assert.Equal(t, initial.PostLoginRedirect, s.PostLoginRedirect)
	assert.Equal(t, uint64(1), s.Epoch)
}

// Any snapshot must satisfy: token non-empty exactly when a flag is set.
// Interleaved logins and logouts may never expose a half-applied transition.
func TestLoginLogout_NoPartialStateUnderConcurrency(t *testing.T) {
	st := NewState()

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			st.Login(KindProvider, "enc-token", "enc-profile")
			st.Logout()
		}
		close(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			s := st.Snapshot()
			if s.Token != "" {
				assert.True(t, s.ProviderLoggedIn || s.CustomerLoggedIn,
					"token present without a login flag")
			} else {
				assert.False(t, s.ProviderLoggedIn || s.CustomerLoggedIn,
					"login flag set without a token")
			}
		}
	}()

	wg.Wait()
}

func TestSubscribe_NotifiedOnEveryMutation(t *testing.T) {
	st := NewState()

	var got []Session
	cancel := st.Subscribe(func(s Session) { got = append(got, s) })

	st.Login(KindProvider, "t", "p")
	st.SetProfile("p2")
	st.Logout()

	require.Len(t, got, 3)
	assert.True(t, got[0].ProviderLoggedIn)
	assert.Equal(t, "p2", got[1].Profile)
	assert.False(t, got[2].ProviderLoggedIn)

	cancel()
	st.SetToken("t2")
	assert.Len(t, got, 3, "canceled subscriber must not fire")
}

func TestSetPostLoginRedirect_SurvivesLoginNotLogout(t *testing.T) {
	st := NewState()

	st.SetPostLoginRedirect("/customer-dashboard")
	st.Login(KindCustomer, "t", "p")
	assert.Equal(t, "/customer-dashboard", st.Snapshot().PostLoginRedirect)

	st.Logout()
	assert.Equal(t, DefaultPostLoginRedirect, st.Snapshot().PostLoginRedirect)
}
