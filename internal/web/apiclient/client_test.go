package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdullah0035/itip-sub000/internal/web/session"
	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
	"github.com/abdullah0035/itip-sub000/pkg/httputil"
	"github.com/abdullah0035/itip-sub000/pkg/obscure"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func encodedToken(t *testing.T, raw string) string {
	t.Helper()
	enc, err := obscure.Encode(raw)
	require.NoError(t, err)
	return enc
}

func writeEnvelope(w http.ResponseWriter, status int, env httputil.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func successEnvelope(data any) httputil.Envelope {
	raw, _ := json.Marshal(data)
	return httputil.Envelope{Status: httputil.StatusSuccess, Data: raw}
}

func TestDo_MergesActionIntoPayloadAndAttachesToken(t *testing.T) {
	var seen struct {
		action string
		email  string
		token  string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		seen.action, _ = body["action"].(string)
		seen.email, _ = body["email"].(string)
		seen.token = r.Header.Get(TokenHeader)
		writeEnvelope(w, http.StatusOK, successEnvelope(map[string]string{"ok": "yes"}))
	}))
	defer server.Close()

	state := session.NewState()
	state.Login(session.KindProvider, encodedToken(t, "raw-jwt"), "")
	client := New(server.URL, state, nil, testLogger())

	env, err := client.Post(context.Background(), "updateProfile", map[string]string{"email": "a@b.co"})

	require.NoError(t, err)
	assert.True(t, env.IsSuccess())
	assert.Equal(t, "updateProfile", seen.action)
	assert.Equal(t, "a@b.co", seen.email)
	assert.Equal(t, "raw-jwt", seen.token)
}

func TestDo_NoTokenHeaderWhenLoggedOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(TokenHeader))
		writeEnvelope(w, http.StatusOK, successEnvelope(nil))
	}))
	defer server.Close()

	client := New(server.URL, session.NewState(), nil, testLogger())
	_, err := client.Get(context.Background(), "resolveQrCode", map[string]string{"slug": "s"})
	require.NoError(t, err)
}

func TestDo_401ClearsLocalFlagsOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, httputil.Envelope{
			Status:  httputil.StatusError,
			Message: "invalid token",
			Errors:  []string{"UNAUTHORIZED"},
		})
	}))
	defer server.Close()

	state := session.NewState()
	state.Login(session.KindProvider, encodedToken(t, "raw-jwt"), "enc-profile")
	client := New(server.URL, state, nil, testLogger())

	_, err := client.Get(context.Background(), "getProfile", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	provider, customer := client.LocalFlags()
	assert.False(t, provider)
	assert.False(t, customer)

	// The central session is untouched by a 401.
	s := state.Snapshot()
	assert.True(t, s.ProviderLoggedIn)
	assert.NotEmpty(t, s.Token)
	assert.Zero(t, s.Epoch)
}

func TestDo_403LogsOutExactlyOnceUnderConcurrency(t *testing.T) {
	const inflight = 25

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeEnvelope(w, http.StatusForbidden, httputil.Envelope{
			Status:  httputil.StatusError,
			Message: "token revoked",
			Errors:  []string{"FORBIDDEN"},
		})
	}))
	defer server.Close()

	state := session.NewState()
	state.Login(session.KindCustomer, encodedToken(t, "raw-jwt"), "enc-profile")

	var logouts int
	var mu sync.Mutex
	state.Subscribe(func(s session.Session) {
		if !s.LoggedIn() {
			mu.Lock()
			logouts++
			mu.Unlock()
		}
	})

	client := New(server.URL, state, nil, testLogger())

	var wg sync.WaitGroup
	errs := make([]error, inflight)
	for i := 0; i < inflight; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Get(context.Background(), "getCustomerDashboard", nil)
		}(i)
	}
	close(release)
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 1, logouts, "exactly one logout side effect")
	mu.Unlock()

	s := state.Snapshot()
	assert.False(t, s.LoggedIn())
	assert.Empty(t, s.Token)
	assert.Equal(t, uint64(1), s.Epoch)

	// Every caller still gets its error back.
	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	}
}

func TestDo_Late403AfterLogoutIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		writeEnvelope(w, http.StatusForbidden, httputil.Envelope{
			Status: httputil.StatusError,
			Errors: []string{"FORBIDDEN"},
		})
	}))
	defer server.Close()

	state := session.NewState()
	state.Login(session.KindProvider, encodedToken(t, "raw-jwt"), "")
	client := New(server.URL, state, nil, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := client.Get(context.Background(), "getProfile", nil)
		done <- err
	}()

	// The session moves on while the request is in flight.
	<-started
	state.Logout()
	require.Equal(t, uint64(1), state.Snapshot().Epoch)

	close(release)
	require.Error(t, <-done)

	// The stale 403 must not log out the new generation again.
	assert.Equal(t, uint64(1), state.Snapshot().Epoch)
}

func TestDo_403WithNonEnvelopeBodyStillLogsOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html><body>403 Forbidden</body></html>"))
	}))
	defer server.Close()

	state := session.NewState()
	state.Login(session.KindProvider, encodedToken(t, "raw-jwt"), "enc-profile")
	client := New(server.URL, state, nil, testLogger())

	_, err := client.Get(context.Background(), "getProfile", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	s := state.Snapshot()
	assert.False(t, s.LoggedIn(), "403 with non-JSON body should still log the session out")
	assert.Empty(t, s.Token)
	assert.Equal(t, uint64(1), s.Epoch)
}

func TestDo_401WithNonEnvelopeBodyClearsLocalFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("unauthorized"))
	}))
	defer server.Close()

	state := session.NewState()
	state.Login(session.KindCustomer, encodedToken(t, "raw-jwt"), "enc-profile")
	client := New(server.URL, state, nil, testLogger())

	_, err := client.Get(context.Background(), "getCustomerDashboard", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	provider, customer := client.LocalFlags()
	assert.False(t, provider)
	assert.False(t, customer)

	s := state.Snapshot()
	assert.True(t, s.CustomerLoggedIn)
	assert.Zero(t, s.Epoch)
}

func TestDo_ErrorEnvelopeCarriesStableCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, httputil.Envelope{
			Status:  httputil.StatusError,
			Message: "field 'Email' must be a valid email address",
			Errors:  []string{"FIELD_EMAIL"},
		})
	}))
	defer server.Close()

	client := New(server.URL, session.NewState(), nil, testLogger())
	env, err := client.Post(context.Background(), "providerRegister", map[string]string{"email": "bad"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "FIELD_EMAIL", appErr.Code)

	require.NotNil(t, env)
	assert.Contains(t, env.Errors, "FIELD_EMAIL")
}

func TestDo_SuccessDataDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, successEnvelope(map[string]int64{"balance": 4200}))
	}))
	defer server.Close()

	client := New(server.URL, session.NewState(), nil, testLogger())
	env, err := client.Get(context.Background(), "getProviderDashboard", nil)
	require.NoError(t, err)

	var data struct {
		Balance int64 `json:"balance"`
	}
	require.NoError(t, env.DecodeData(&data))
	assert.Equal(t, int64(4200), data.Balance)
}

func TestPool_SharesClientPerSession(t *testing.T) {
	pool := NewPool("http://localhost:0", testLogger())
	state := session.NewState()

	c1 := pool.For("sid-1", state)
	c2 := pool.For("sid-1", state)
	c3 := pool.For("sid-2", session.NewState())

	assert.Same(t, c1, c2)
	assert.NotSame(t, c1, c3)
}
