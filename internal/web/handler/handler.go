// Package handler serves the web tier's routes. Handlers call the backend
// through the session's API client and render JSON view payloads with the
// resolved layout embedded; markup belongs to the asset pipeline, not here.
// Handlers own user-facing error surfacing; the adapter and session store
// below them never do.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/abdullah0035/itip-sub000/internal/web/apiclient"
	"github.com/abdullah0035/itip-sub000/internal/web/layout"
	"github.com/abdullah0035/itip-sub000/internal/web/session"
	"github.com/abdullah0035/itip-sub000/pkg/httputil"
)

// View is the payload rendered for every page: the page name, the layout
// decision for the current path and session, and the page's data.
type View struct {
	Page   string          `json:"page"`
	Layout layout.Layout   `json:"layout"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Handler holds the web tier's dependencies.
type Handler struct {
	sessions *session.Manager
	clients  *apiclient.Pool
	logger   *slog.Logger
}

// New creates the web handler set.
func New(sessions *session.Manager, clients *apiclient.Pool, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, clients: clients, logger: logger}
}

// bind resolves the request's session state and its API client, minting a
// session cookie when the browser has none yet.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request) (*session.State, *apiclient.Client) {
	sid := h.sessions.SessionID(w, r)
	state := h.sessions.State(r.Context(), sid)
	return state, h.clients.For(sid, state)
}

// renderView writes a page payload with the layout resolved for the request
// path and current session.
func (h *Handler) renderView(w http.ResponseWriter, r *http.Request, page string, data json.RawMessage) {
	s := h.sessions.Load(r.Context(), r)
	writeJSON(w, http.StatusOK, View{
		Page:   page,
		Layout: layout.Resolve(r.URL.Path, s),
		Data:   data,
	})
}

// Root sends the browser where it belongs: the stored post-login target when
// a session is live, the provider entry page otherwise.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Load(r.Context(), r)
	if s.LoggedIn() {
		http.Redirect(w, r, s.PostLoginRedirect, http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Page returns a handler rendering a static page shell.
func (h *Handler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderView(w, r, name, nil)
	}
}

// apiView runs one read action and renders its data under the page name.
func (h *Handler) apiView(w http.ResponseWriter, r *http.Request, page, action string, payload any) {
	_, client := h.bind(w, r)

	env, err := client.Get(r.Context(), action, payload)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.renderView(w, r, page, env.Data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
