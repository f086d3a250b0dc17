package handler

import (
	"encoding/json"
	"net/http"

	"github.com/abdullah0035/itip-sub000/internal/web/guard"
	"github.com/abdullah0035/itip-sub000/internal/web/session"
	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
	"github.com/abdullah0035/itip-sub000/pkg/httputil"
	"github.com/abdullah0035/itip-sub000/pkg/obscure"
)

// authData is the backend's auth action response: the raw token and the
// account profile, delivered together so the session transition is atomic.
type authData struct {
	Token   string          `json:"token"`
	Account json.RawMessage `json:"account"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Currency  string `json:"currency"`
}

type socialLoginRequest struct {
	AccountType string `json:"account_type"`
	Provider    string `json:"provider"`
	Token       string `json:"token"`
}

type redirectResponse struct {
	Redirect string `json:"redirect"`
}

// ProviderLogin handles the provider password login form.
func (h *Handler) ProviderLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, "providerLogin", session.KindProvider, guard.ProviderDashboardPath)
}

// CustomerLogin handles the customer password login form.
func (h *Handler) CustomerLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, "customerLogin", session.KindCustomer, guard.CustomerDashboardPath)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, action string, kind session.Kind, redirect string) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed login request"), h.logger)
		return
	}

	state, client := h.bind(w, r)

	env, err := client.Post(r.Context(), action, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.establishSession(w, r, state, env, kind, redirect)
}

// ProviderSignup registers a provider account and logs it in.
func (h *Handler) ProviderSignup(w http.ResponseWriter, r *http.Request) {
	h.signup(w, r, "providerRegister", session.KindProvider, guard.ProviderDashboardPath)
}

// CustomerSignup registers a customer account and logs it in.
func (h *Handler) CustomerSignup(w http.ResponseWriter, r *http.Request) {
	h.signup(w, r, "customerRegister", session.KindCustomer, guard.CustomerDashboardPath)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request, action string, kind session.Kind, redirect string) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed signup request"), h.logger)
		return
	}

	state, client := h.bind(w, r)

	env, err := client.Post(r.Context(), action, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.establishSession(w, r, state, env, kind, redirect)
}

// SocialLogin exchanges a third-party identity token through the backend.
// Google and Facebook callbacks land here with the same session semantics as
// password login.
func (h *Handler) SocialLogin(w http.ResponseWriter, r *http.Request) {
	var req socialLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed social login request"), h.logger)
		return
	}

	kind := session.KindProvider
	redirect := guard.ProviderDashboardPath
	if req.AccountType == "customer" {
		kind = session.KindCustomer
		redirect = guard.CustomerDashboardPath
	}

	state, client := h.bind(w, r)

	env, err := client.Post(r.Context(), "socialLogin", req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.establishSession(w, r, state, env, kind, redirect)
}

// establishSession stores the auth response: redirect target first, then the
// single login transition carrying flag, token, and profile together.
func (h *Handler) establishSession(
	w http.ResponseWriter,
	r *http.Request,
	state *session.State,
	env *httputil.Envelope,
	kind session.Kind,
	redirect string,
) {
	var data authData
	if err := env.DecodeData(&data); err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}

	encToken, err := obscure.Encode(data.Token)
	if err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}
	encProfile, err := obscure.Encode(data.Account)
	if err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}

	state.SetPostLoginRedirect(redirect)
	state.Login(kind, encToken, encProfile)

	writeJSON(w, http.StatusOK, redirectResponse{Redirect: state.Snapshot().PostLoginRedirect})
}

// Logout revokes the backend token, then clears the session. The local
// teardown happens even when revocation fails; a dead backend must not pin a
// browser to a stale session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	state, client := h.bind(w, r)

	wasCustomer := state.Snapshot().CustomerLoggedIn

	if state.Snapshot().LoggedIn() {
		if _, err := client.Post(r.Context(), "logout", nil); err != nil {
			h.logger.Warn("backend logout failed", "error", err.Error())
		}
	}
	state.Logout()

	redirect := guard.ProviderEntryPath
	if wasCustomer {
		redirect = guard.CustomerEntryPath
	}
	writeJSON(w, http.StatusOK, redirectResponse{Redirect: redirect})
}
