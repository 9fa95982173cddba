package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-shop-client/kvstore"
	"github.com/jrsteele09/go-shop-client/session"
)

func testStore(t *testing.T) (*session.Store, kvstore.Store) {
	t.Helper()
	kv := kvstore.NewMemory()
	return session.NewStore(kv), kv
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore(t)

	err := store.Save(ctx, session.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User:         &session.User{ID: "u1", Name: "John Doe", Email: "john.doe@example.com", Roles: []string{"SHOP"}},
	})
	require.NoError(t, err)

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, sess.Live())
	require.Equal(t, "access-1", sess.AccessToken)
	require.Equal(t, "refresh-1", sess.RefreshToken)
	require.Equal(t, "u1", sess.UserID)
	require.NotNil(t, sess.User)
	require.Equal(t, "john.doe@example.com", sess.User.Email)
	require.Equal(t, []string{"SHOP"}, sess.User.Roles)
}

func TestLoadEmptyStoreYieldsZeroSession(t *testing.T) {
	store, _ := testStore(t)

	sess, err := store.Load(context.Background())
	require.NoError(t, err)
	require.False(t, sess.Live())
	require.Empty(t, sess.UserID)
	require.Nil(t, sess.User)
}

func TestUserIDFallsBackToProfile(t *testing.T) {
	ctx := context.Background()
	store, kv := testStore(t)

	require.NoError(t, kv.Set(ctx, session.KeyAccessToken, "access-1"))
	require.NoError(t, kv.Set(ctx, session.KeyRefreshToken, "refresh-1"))
	require.NoError(t, kv.Set(ctx, session.KeyUserInfo, `{"_id":"u1","name":"John Doe"}`))

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", sess.UserID)
}

func TestCorruptUserInfoLoadsAsNilUser(t *testing.T) {
	ctx := context.Background()
	store, kv := testStore(t)

	require.NoError(t, kv.Set(ctx, session.KeyAccessToken, "access-1"))
	require.NoError(t, kv.Set(ctx, session.KeyRefreshToken, "refresh-1"))
	require.NoError(t, kv.Set(ctx, session.KeyUserInfo, "{not json"))

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, sess.Live())
	require.Nil(t, sess.User)
	require.False(t, store.Present(ctx))
}

func TestSetTokensKeepsRefreshTokenWhenOmitted(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore(t)

	require.NoError(t, store.SetTokens(ctx, "access-1", "refresh-1"))
	require.NoError(t, store.SetTokens(ctx, "access-2", ""))

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "access-2", sess.AccessToken)
	require.Equal(t, "refresh-1", sess.RefreshToken)
}

func TestClearRemovesEveryKey(t *testing.T) {
	ctx := context.Background()
	store, kv := testStore(t)

	require.NoError(t, store.Save(ctx, session.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User:         &session.User{ID: "u1"},
	}))
	require.True(t, store.Present(ctx))

	require.NoError(t, store.Clear(ctx))
	require.False(t, store.Present(ctx))
	for _, key := range []string{session.KeyAccessToken, session.KeyRefreshToken, session.KeyUserID, session.KeyUserInfo} {
		_, err := kv.Get(ctx, key)
		require.ErrorIs(t, err, kvstore.ErrNotFound)
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u1",
		"exp":    exp.Unix(),
	}).SignedString([]byte("server-side-secret"))
	require.NoError(t, err)

	got, err := session.AccessTokenExpiry(signed)
	require.NoError(t, err)
	require.True(t, got.Equal(exp))
}

func TestAccessTokenExpiryRejectsGarbage(t *testing.T) {
	_, err := session.AccessTokenExpiry("not-a-jwt")
	require.Error(t, err)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u1",
	}).SignedString([]byte("server-side-secret"))
	require.NoError(t, err)

	_, err = session.AccessTokenExpiry(signed)
	require.Error(t, err)
}
