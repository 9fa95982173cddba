package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// refreshOutcome is what every participant of one refresh attempt
// receives: the renewed access token, or the failure that settled it.
type refreshOutcome struct {
	accessToken string
	err         error
}

// refresher coalesces concurrent refresh attempts into a single network
// call. The first caller performs the refresh; everyone arriving while it
// is in flight is queued and settled, in arrival order, with the same
// outcome. Both the unauthorized-response path and the proactive renewal
// timer go through this guard, so two simultaneous refresh calls cannot
// happen.
type refresher struct {
	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshOutcome

	perform func(ctx context.Context) (string, error)
	logger  zerolog.Logger
}

func newRefresher(perform func(ctx context.Context) (string, error), logger zerolog.Logger) *refresher {
	return &refresher{perform: perform, logger: logger}
}

// refresh returns the renewed access token. performed reports whether
// this caller executed the network call itself, as opposed to waiting on
// one already in flight; forced sign-out on failure is the performer's
// responsibility alone, which keeps it to exactly one per failed refresh.
func (r *refresher) refresh(ctx context.Context) (accessToken string, performed bool, err error) {
	r.mu.Lock()
	if r.refreshing {
		ch := make(chan refreshOutcome, 1)
		r.waiters = append(r.waiters, ch)
		r.mu.Unlock()

		select {
		case out := <-ch:
			return out.accessToken, false, out.err
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	r.refreshing = true
	r.mu.Unlock()

	// Settlement must run even if perform panics, so the flag and queue
	// never leak into the next attempt.
	out := refreshOutcome{err: errors.New("[refresher.refresh] refresh aborted")}
	defer func() { r.settle(out) }()

	out.accessToken, out.err = r.perform(ctx)
	if out.err != nil {
		r.logger.Warn().Err(out.err).Msg("token refresh failed")
	}
	return out.accessToken, true, out.err
}

// settle resets the single-flight state and drains the queue in order.
// After it returns the queue is empty and a later unauthorized response
// starts a fresh attempt.
func (r *refresher) settle(out refreshOutcome) {
	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.refreshing = false
	r.mu.Unlock()

	for _, ch := range waiters {
		ch <- out
	}
}

// refreshTokenPath is the dedicated renewal endpoint; it is called
// outside the normal request pipeline so a 401 from it cannot recurse.
const refreshTokenPath = "/shop/refreshToken"

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// performRefresh executes one refresh call using the stored credentials
// and persists the renewed pair. All three of refresh token, access token
// and user id must be present; otherwise the attempt fails without
// touching the network.
func (c *Client) performRefresh(ctx context.Context) (string, error) {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return "", errors.Wrap(err, "[Client.performRefresh] store.Load")
	}
	if sess.RefreshToken == "" || sess.AccessToken == "" || sess.UserID == "" {
		return "", ErrMissingCredentials
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: sess.RefreshToken})
	if err != nil {
		return "", errors.Wrap(err, "[Client.performRefresh] json.Marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshTokenPath, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "[Client.performRefresh] http.NewRequestWithContext")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", sess.AccessToken)
	req.Header.Set("x-client-id", sess.UserID)
	req.Header.Set("x-request-id", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	env := &Envelope{}
	if len(data) > 0 {
		_ = json.Unmarshal(data, env)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", newAPIError(resp.StatusCode, env.Message)
	}

	pair, err := normalizeTokenMetadata(env.Metadata, c.logger)
	if err != nil {
		return "", err
	}
	if err := c.store.SetTokens(ctx, pair.accessToken, pair.refreshToken); err != nil {
		return "", errors.Wrap(err, "[Client.performRefresh] store.SetTokens")
	}
	c.logger.Debug().Msg("access token renewed")
	return pair.accessToken, nil
}

type tokenPair struct {
	accessToken  string
	refreshToken string
}

// normalizeTokenMetadata accepts both shapes the refresh endpoint is
// known to return and reduces them to one internal representation:
//
//	{"tokens": {"accessToken": ..., "refreshToken": ...}}   canonical
//	{"token": <string or {"accessToken": ...}>, "refreshToken": ...}   legacy
//
// The legacy shape is logged so its disappearance upstream can be tracked.
func normalizeTokenMetadata(metadata json.RawMessage, logger zerolog.Logger) (tokenPair, error) {
	if len(metadata) == 0 {
		return tokenPair{}, ErrMalformedTokenResponse
	}
	var body struct {
		Tokens *struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"tokens"`
		Token        json.RawMessage `json:"token"`
		RefreshToken string          `json:"refreshToken"`
	}
	if err := json.Unmarshal(metadata, &body); err != nil {
		return tokenPair{}, errors.Wrap(err, "[normalizeTokenMetadata] json.Unmarshal")
	}

	if body.Tokens != nil && body.Tokens.AccessToken != "" {
		return tokenPair{accessToken: body.Tokens.AccessToken, refreshToken: body.Tokens.RefreshToken}, nil
	}

	if len(body.Token) > 0 {
		logger.Warn().Msg("refresh endpoint answered with legacy token shape")
		var plain string
		if err := json.Unmarshal(body.Token, &plain); err == nil && plain != "" {
			return tokenPair{accessToken: plain, refreshToken: body.RefreshToken}, nil
		}
		var nested struct {
			AccessToken string `json:"accessToken"`
		}
		if err := json.Unmarshal(body.Token, &nested); err == nil && nested.AccessToken != "" {
			return tokenPair{accessToken: nested.AccessToken, refreshToken: body.RefreshToken}, nil
		}
	}
	return tokenPair{}, ErrMalformedTokenResponse
}
