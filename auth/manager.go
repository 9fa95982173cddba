// Package auth projects the token store into application-visible
// authentication state and provides the identity operations: login,
// signup, logout, and session refresh.
package auth

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-shop-client/client"
	"github.com/jrsteele09/go-shop-client/internal/utils"
	"github.com/jrsteele09/go-shop-client/session"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authMetadata is the metadata object of login and signup responses.
type authMetadata struct {
	Shop   *session.User `json:"shop"`
	Tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"tokens"`
}

// Manager holds the in-memory authentication state derived from the
// token store. State transitions happen only on successful identity
// operations; a failed login leaves everything untouched.
type Manager struct {
	client *client.Client
	store  *session.Store
	expiry client.ExpiryHandler
	logger zerolog.Logger

	mu            sync.RWMutex
	authenticated bool
	user          *session.User
}

// ManagerOption modifies the Manager during construction.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithExpiryHandler installs the sign-in redirect capability invoked
// after logout. It should normally be the same handler given to the
// client, so every path out of a session lands in the same place.
func WithExpiryHandler(h client.ExpiryHandler) ManagerOption {
	return func(m *Manager) { m.expiry = h }
}

// NewManager creates a Manager bound to the client's session store.
func NewManager(c *client.Client, options ...ManagerOption) *Manager {
	m := &Manager{
		client: c,
		store:  c.Store(),
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Hydrate restores in-memory state from the persisted session. When the
// store holds tokens but no parseable user info, it falls back to a
// refresh before giving up. Returns whether the manager ended up
// authenticated.
func (m *Manager) Hydrate(ctx context.Context) bool {
	sess, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to load session during hydrate")
		return false
	}
	if sess.Live() && sess.User != nil {
		m.setState(sess.User)
		return true
	}
	if sess.Live() {
		return m.RefreshSession(ctx)
	}
	return false
}

// Login authenticates with the shop API and persists the returned
// session. The error is propagated untouched so the UI can render it.
func (m *Manager) Login(ctx context.Context, email, password string) (*session.User, error) {
	var md authMetadata
	if err := m.client.Post(ctx, "/shop/login", credentials{Email: email, Password: password}, &md); err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] login request")
	}
	return m.establishSession(ctx, &md, "[Manager.Login]")
}

// Signup registers a new account; its contract matches Login.
func (m *Manager) Signup(ctx context.Context, name, email, password string) (*session.User, error) {
	var md authMetadata
	if err := m.client.Post(ctx, "/shop/signup", signupRequest{Name: name, Email: email, Password: password}, &md); err != nil {
		return nil, errors.Wrap(err, "[Manager.Signup] signup request")
	}
	return m.establishSession(ctx, &md, "[Manager.Signup]")
}

// Logout ends the session. The network call is best effort: whatever it
// does, local state and the persisted session are gone when Logout
// returns, and the sign-in redirect fires.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.client.Post(ctx, "/shop/logout", struct{}{}, nil); err != nil {
		m.logger.Warn().Err(err).Msg("logout request failed, clearing session anyway")
	}
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("failed to clear session store on logout")
	}
	m.mu.Lock()
	m.authenticated = false
	m.user = nil
	m.mu.Unlock()

	if m.expiry != nil {
		m.expiry.OnSessionExpired()
	}
}

// RefreshSession renews the token pair through the single-flight guard
// and reloads state from the store. Returns whether the manager now
// reflects an authenticated session.
func (m *Manager) RefreshSession(ctx context.Context) bool {
	if err := m.client.RefreshSession(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("session refresh failed")
		return false
	}
	sess, err := m.store.Load(ctx)
	if err != nil || !sess.Live() {
		return false
	}
	if sess.User != nil {
		m.setState(sess.User)
	}
	return m.IsAuthenticated()
}

// IsAuthenticated reports the in-memory authentication state.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticated
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *session.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	return utils.Ptr(*m.user)
}

func (m *Manager) establishSession(ctx context.Context, md *authMetadata, wrapPrefix string) (*session.User, error) {
	if md.Tokens.AccessToken == "" || md.Tokens.RefreshToken == "" {
		return nil, errors.New(wrapPrefix + " response missing token pair")
	}
	sess := session.Session{
		AccessToken:  md.Tokens.AccessToken,
		RefreshToken: md.Tokens.RefreshToken,
		User:         md.Shop,
	}
	if md.Shop != nil {
		sess.UserID = md.Shop.ID
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, errors.Wrap(err, wrapPrefix+" store.Save")
	}
	m.setState(md.Shop)
	return m.User(), nil
}

func (m *Manager) setState(u *session.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authenticated = true
	m.user = u
}
