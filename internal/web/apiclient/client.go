// Package apiclient is the web tier's adapter over the backend's single
// action-multiplexed endpoint. Besides carrying requests it owns the two
// session side effects of the auth contract: a 401 clears the adapter's
// locally cached login flags and nothing else, while a 403 tears down the
// shared session exactly once per cooldown window. Every error is returned
// to the caller after side effects run; the adapter never retries and never
// renders anything.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/abdullah0035/itip-sub000/internal/web/session"
	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
	"github.com/abdullah0035/itip-sub000/pkg/httpclient"
	"github.com/abdullah0035/itip-sub000/pkg/httputil"
	"github.com/abdullah0035/itip-sub000/pkg/obscure"
)

// TokenHeader carries the decoded credential on outgoing requests.
const TokenHeader = "X-Auth-Token"

// actionPath is the backend's single endpoint; the action string in the body
// selects the operation.
const actionPath = "/api/v1/action"

// logoutCooldown is the debounce window for the 403 side effect: N in-flight
// requests failing together produce one logout, not N.
const logoutCooldown = time.Second

// requestTimeout bounds each backend call.
const requestTimeout = 15 * time.Second

// Client talks to the backend on behalf of one browser session.
type Client struct {
	httpc   *httpclient.Client
	baseURL string
	state   *session.State
	logger  *slog.Logger

	mu            sync.Mutex
	lastLogout    time.Time
	localProvider bool
	localCustomer bool
}

// New creates a client bound to one session's State. The underlying HTTP
// client never retries: session actions and tip submissions are not
// idempotent, and failure semantics live here, not in the transport.
func New(baseURL string, state *session.State, httpc *httpclient.Client, logger *slog.Logger) *Client {
	if httpc == nil {
		httpc = httpclient.New(httpclient.NoRetryConfig(requestTimeout))
	}
	return &Client{
		httpc:   httpc,
		baseURL: baseURL,
		state:   state,
		logger:  logger,
	}
}

// Get performs a read action.
func (c *Client) Get(ctx context.Context, action string, payload any) (*httputil.Envelope, error) {
	return c.do(ctx, action, payload)
}

// Post performs a create action.
func (c *Client) Post(ctx context.Context, action string, payload any) (*httputil.Envelope, error) {
	return c.do(ctx, action, payload)
}

// Put performs an update action.
func (c *Client) Put(ctx context.Context, action string, payload any) (*httputil.Envelope, error) {
	return c.do(ctx, action, payload)
}

// Delete performs a delete action.
func (c *Client) Delete(ctx context.Context, action string, payload any) (*httputil.Envelope, error) {
	return c.do(ctx, action, payload)
}

// LocalFlags returns the adapter's cached login flags. They mirror the
// session on each request and are cleared by a 401 without touching the
// session itself.
func (c *Client) LocalFlags() (provider, customer bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localProvider, c.localCustomer
}

// do sends one action request. Every operation rides the same wire shape:
// POST with the action discriminator merged into the payload.
func (c *Client) do(ctx context.Context, action string, payload any) (*httputil.Envelope, error) {
	snap := c.state.Snapshot()
	startEpoch := snap.Epoch

	c.mu.Lock()
	c.localProvider = snap.ProviderLoggedIn
	c.localCustomer = snap.CustomerLoggedIn
	c.mu.Unlock()

	body := map[string]any{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", action, err)
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("action payload must be a JSON object: %w", err)
		}
	}
	body["action"] = action

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+actionPath, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if snap.Token != "" {
		var token string
		if obscure.DecodeInto(snap.Token, &token) {
			req.Header.Set(TokenHeader, token)
		}
	}

	resp, err := c.httpc.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", action, err)
	}
	defer resp.Body.Close()

	// Side effects key off the status code alone. The body may not be an
	// envelope at all (a proxy error page, for one); a 401 or 403 still
	// means the session is dead.
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.mu.Lock()
		c.localProvider = false
		c.localCustomer = false
		c.mu.Unlock()
	case http.StatusForbidden:
		c.maybeLogout(startEpoch, action)
	}

	var env httputil.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, envelopeError(resp.StatusCode, &httputil.Envelope{})
		}
		return nil, apperrors.Internal(fmt.Errorf("decode %s response: %w", action, err))
	}

	if resp.StatusCode >= 400 || !env.IsSuccess() {
		return &env, envelopeError(resp.StatusCode, &env)
	}
	return &env, nil
}

// maybeLogout fires the 403 session teardown unless another request already
// fired it inside the cooldown window, or the session epoch moved on while
// this request was in flight (a late response from a previous generation).
func (c *Client) maybeLogout(startEpoch uint64, action string) {
	c.mu.Lock()
	if c.state.Snapshot().Epoch != startEpoch {
		c.mu.Unlock()
		return
	}
	if time.Since(c.lastLogout) < logoutCooldown {
		c.mu.Unlock()
		return
	}
	c.lastLogout = time.Now()
	c.mu.Unlock()

	// Logout notifies the persistence subscriber synchronously; it must not
	// run under c.mu, which every in-flight request takes.
	c.state.Logout()

	c.logger.Info("session logged out on 403", slog.String("action", action))
}

// envelopeError maps a failed response to an AppError keyed on the
// envelope's first stable code, falling back to the HTTP status class.
func envelopeError(status int, env *httputil.Envelope) error {
	code := statusCode(status)
	if len(env.Errors) > 0 {
		code = env.Errors[0]
	}

	message := env.Message
	if message == "" {
		message = http.StatusText(status)
	}

	return &apperrors.AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     statusSentinel(status),
	}
}

func statusCode(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusBadRequest:
		return "INVALID_INPUT"
	default:
		return "INTERNAL_ERROR"
	}
}

func statusSentinel(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusBadRequest:
		return apperrors.ErrInvalidInput
	case http.StatusConflict:
		return apperrors.ErrConflict
	case http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	case http.StatusUnprocessableEntity:
		return apperrors.ErrTipFailed
	default:
		return apperrors.ErrInternal
	}
}
