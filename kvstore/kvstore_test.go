package kvstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-shop-client/kvstore"
)

func TestStores(t *testing.T) {
	stores := map[string]kvstore.Store{
		"memory": kvstore.NewMemory(),
		"file":   kvstore.NewFile(filepath.Join(t.TempDir(), "session.json")),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			require.ErrorIs(t, err, kvstore.ErrNotFound)

			require.NoError(t, store.Set(ctx, "accessToken", "v1"))
			v, err := store.Get(ctx, "accessToken")
			require.NoError(t, err)
			require.Equal(t, "v1", v)

			require.NoError(t, store.Set(ctx, "accessToken", "v2"))
			v, err = store.Get(ctx, "accessToken")
			require.NoError(t, err)
			require.Equal(t, "v2", v)

			require.NoError(t, store.Delete(ctx, "accessToken"))
			_, err = store.Get(ctx, "accessToken")
			require.ErrorIs(t, err, kvstore.ErrNotFound)

			// Deleting an absent key is not an error.
			require.NoError(t, store.Delete(ctx, "accessToken"))
		})
	}
}

func TestFileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	first := kvstore.NewFile(path)
	require.NoError(t, first.Set(ctx, "refreshToken", "r1"))

	second := kvstore.NewFile(path)
	v, err := second.Get(ctx, "refreshToken")
	require.NoError(t, err)
	require.Equal(t, "r1", v)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileRejectsCorruptContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	_, err := kvstore.NewFile(path).Get(context.Background(), "accessToken")
	require.Error(t, err)
	require.NotErrorIs(t, err, kvstore.ErrNotFound)
}
