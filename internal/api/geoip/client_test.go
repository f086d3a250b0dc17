package geoip

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestClient_Lookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/203.0.113.7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","countryCode":"TR","city":"Istanbul"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())

	loc, err := c.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "TR", loc.Country)
	assert.Equal(t, "Istanbul", loc.City)
}

func TestClient_Lookup_ProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"private range"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())

	_, err := c.Lookup(context.Background(), "10.0.0.1")
	assert.Error(t, err)
}

func TestNoop_Lookup(t *testing.T) {
	loc, err := Noop{}.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Empty(t, loc.Country)
	assert.Empty(t, loc.City)
}
