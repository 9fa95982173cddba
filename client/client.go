// Package client is the HTTP core of the shop SDK. It attaches the
// current credentials to every outbound request, decodes the API's
// response envelope, and runs the single-flight token refresh protocol
// when a request comes back unauthorized.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-shop-client/session"
)

// ExpiryHandler is notified exactly once when a session becomes
// irrecoverable (refresh failed and credentials were cleared). A web
// embedder redirects to sign-in; a CLI prints a message.
type ExpiryHandler interface {
	OnSessionExpired()
}

// ExpiryHandlerFunc adapts a function to the ExpiryHandler interface.
type ExpiryHandlerFunc func()

func (f ExpiryHandlerFunc) OnSessionExpired() { f() }

// RequestStage is a middleware stage run on every outbound request after
// the credential headers have been attached.
type RequestStage func(*http.Request) error

// Envelope is the response wrapper shared by every shop API endpoint.
type Envelope struct {
	Message  string          `json:"message"`
	Code     int             `json:"code"`
	Metadata json.RawMessage `json:"metadata"`
}

// Client wraps outbound requests to the shop API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *session.Store
	refresher  *refresher
	expiry     ExpiryHandler
	stages     []RequestStage
	logger     zerolog.Logger
}

// Option modifies the Client during construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithExpiryHandler installs the forced sign-out notification capability.
func WithExpiryHandler(h ExpiryHandler) Option {
	return func(c *Client) { c.expiry = h }
}

// WithRequestStage appends a middleware stage to the request pipeline.
func WithRequestStage(stage RequestStage) Option {
	return func(c *Client) { c.stages = append(c.stages, stage) }
}

// New creates a Client for the API rooted at baseURL. The store is the
// source of truth for credentials on every request.
func New(baseURL string, store *session.Store, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.refresher = newRefresher(c.performRefresh, c.logger)
	return c
}

// Store exposes the session store the client reads credentials from.
func (c *Client) Store() *session.Store { return c.store }

// RefreshSession performs (or joins) a single-flight token refresh. On
// success the store holds the renewed token pair. Failure carries no side
// effects here: proactive callers log and move on, and only the
// unauthorized-response path escalates to a forced sign-out.
func (c *Client) RefreshSession(ctx context.Context) error {
	_, _, err := c.refresher.refresh(ctx)
	return err
}

// Get issues a GET request and decodes the envelope metadata into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

// call captures one logical request so it can be re-issued with renewed
// credentials after a refresh. retried enforces the refresh-at-most-once
// rule per original request.
type call struct {
	method  string
	path    string
	payload []byte
	retried bool
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	cl := &call{method: method, path: path}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.do] json.Marshal body")
		}
		cl.payload = payload
	}

	status, env, err := c.send(ctx, cl)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !cl.retried {
		cl.retried = true
		_, performed, refreshErr := c.refresher.refresh(ctx)
		if refreshErr != nil {
			if performed {
				c.forceSignOut(ctx, refreshErr)
			}
			return errors.Wrap(refreshErr, "[Client.do] refresh after unauthorized")
		}
		// Re-issue with the renewed token; send reads it from the store.
		status, env, err = c.send(ctx, cl)
		if err != nil {
			return err
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return newAPIError(status, env.Message)
	}
	if out != nil && len(env.Metadata) > 0 {
		if err := json.Unmarshal(env.Metadata, out); err != nil {
			return errors.Wrap(err, "[Client.do] json.Unmarshal metadata")
		}
	}
	return nil
}

// send issues the call once and decodes the envelope. Transport failures
// are wrapped as *TransportError; HTTP statuses are returned as-is.
func (c *Client) send(ctx context.Context, cl *call) (int, *Envelope, error) {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return 0, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	env := &Envelope{}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Err: err}
	}
	if len(data) > 0 {
		// A body that is not the standard envelope is tolerated; the
		// status code alone is enough to classify the response.
		_ = json.Unmarshal(data, env)
	}
	return resp.StatusCode, env, nil
}

func (c *Client) newRequest(ctx context.Context, cl *call) (*http.Request, error) {
	var body io.Reader
	if cl.payload != nil {
		body = bytes.NewReader(cl.payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.newRequest] http.NewRequestWithContext")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-request-id", uuid.New().String())

	sess, err := c.store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.newRequest] store.Load")
	}
	if sess.AccessToken != "" {
		// The API expects the raw token, no bearer scheme.
		req.Header.Set("Authorization", sess.AccessToken)
	}
	if sess.UserID != "" {
		req.Header.Set("x-client-id", sess.UserID)
	}

	for _, stage := range c.stages {
		if err := stage(req); err != nil {
			return nil, errors.Wrap(err, "[Client.newRequest] request stage")
		}
	}
	return req, nil
}

// forceSignOut clears the session and fires the expiry notification. It
// runs only in the goroutine that performed the failed refresh, so the
// notification happens at most once per irrecoverable failure.
func (c *Client) forceSignOut(ctx context.Context, cause error) {
	c.logger.Warn().Err(cause).Msg("session irrecoverable, signing out")
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear session store")
	}
	if c.expiry != nil {
		c.expiry.OnSessionExpired()
	}
}
