// Package session owns the client's view of the authenticated session:
// the token pair, the user id, and the serialized user profile, persisted
// through a kvstore.Store. Both tokens are present or both are absent; a
// half-written session is treated as no session.
package session

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-shop-client/kvstore"
)

// Keys under which the session is persisted. These names are part of the
// on-disk contract and must not change.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserID       = "userId"
	KeyUserInfo     = "userInfo"
)

// User mirrors the shop profile object the API returns on login/signup.
type User struct {
	ID    string   `json:"_id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles,omitempty"`
}

// Session is the fully materialized session state. Zero-value fields mean
// the corresponding key is absent from the store.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	User         *User
}

// Live reports whether the session holds a complete credential set.
func (s Session) Live() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// Store is a typed wrapper over the key-value store. It is the single
// owner of the four session keys; every other component reads and writes
// session state through it.
type Store struct {
	kv kvstore.Store
}

func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Load reads the whole session. Missing keys yield zero fields rather
// than an error; a corrupt userInfo entry is surfaced as a nil User so
// callers can fall back to a refresh.
func (s *Store) Load(ctx context.Context) (Session, error) {
	var sess Session
	var err error

	if sess.AccessToken, err = s.get(ctx, KeyAccessToken); err != nil {
		return Session{}, err
	}
	if sess.RefreshToken, err = s.get(ctx, KeyRefreshToken); err != nil {
		return Session{}, err
	}
	if sess.UserID, err = s.get(ctx, KeyUserID); err != nil {
		return Session{}, err
	}
	raw, err := s.get(ctx, KeyUserInfo)
	if err != nil {
		return Session{}, err
	}
	if raw != "" {
		var u User
		if jsonErr := json.Unmarshal([]byte(raw), &u); jsonErr == nil {
			sess.User = &u
		}
	}
	if sess.UserID == "" && sess.User != nil {
		sess.UserID = sess.User.ID
	}
	return sess, nil
}

// Save persists a complete session created by login or signup.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if err := s.SetTokens(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
		return err
	}
	if sess.User != nil {
		raw, err := json.Marshal(sess.User)
		if err != nil {
			return errors.Wrap(err, "[Store.Save] json.Marshal user")
		}
		if err := s.kv.Set(ctx, KeyUserInfo, string(raw)); err != nil {
			return errors.Wrap(err, "[Store.Save] set userInfo")
		}
		if err := s.kv.Set(ctx, KeyUserID, sess.User.ID); err != nil {
			return errors.Wrap(err, "[Store.Save] set userId")
		}
	}
	return nil
}

// SetTokens updates the token pair after a successful refresh. An empty
// refresh token keeps the previous one, since the server may rotate only
// the access token.
func (s *Store) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.kv.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return errors.Wrap(err, "[Store.SetTokens] set accessToken")
	}
	if refreshToken != "" {
		if err := s.kv.Set(ctx, KeyRefreshToken, refreshToken); err != nil {
			return errors.Wrap(err, "[Store.SetTokens] set refreshToken")
		}
	}
	return nil
}

// Clear removes every session key. It never leaves a partial session
// behind: deletes proceed even if an earlier one fails, and the first
// failure is reported.
func (s *Store) Clear(ctx context.Context) error {
	var firstErr error
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUserID, KeyUserInfo} {
		if err := s.kv.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "[Store.Clear] delete %s", key)
		}
	}
	return firstErr
}

// Present reports whether a session appears valid: tokens and user info
// all in place. Mirrors the checkAuth gate used before proactive renewal.
func (s *Store) Present(ctx context.Context) bool {
	sess, err := s.Load(ctx)
	if err != nil {
		return false
	}
	return sess.Live() && sess.User != nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "[Store.get] %s", key)
	}
	return v, nil
}
