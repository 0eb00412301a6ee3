package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/66gu1/thesisportal/internal/app/session/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file is an empty token", func(t *testing.T) {
		t.Parallel()
		s := store.NewFile(afero.NewMemMapFs(), "/home/u/.portal")

		token, err := s.Load(context.Background())
		require.NoError(t, err)
		require.Empty(t, token)
	})

	t.Run("save then load", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		s := store.NewFile(fs, "/home/u/.portal")

		require.NoError(t, s.Save(context.Background(), "abc"))

		token, err := s.Load(context.Background())
		require.NoError(t, err)
		require.Equal(t, "abc", token)

		info, err := fs.Stat(filepath.Join("/home/u/.portal", store.Key))
		require.NoError(t, err)
		require.Equal(t, "-rw-------", info.Mode().Perm().String())
	})

	t.Run("save replaces previous token", func(t *testing.T) {
		t.Parallel()
		s := store.NewFile(afero.NewMemMapFs(), "/tmp/portal")

		require.NoError(t, s.Save(context.Background(), "first-token"))
		require.NoError(t, s.Save(context.Background(), "xyz"))

		token, err := s.Load(context.Background())
		require.NoError(t, err)
		require.Equal(t, "xyz", token)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		s := store.NewFile(fs, "/tmp/portal")

		require.NoError(t, s.Save(context.Background(), "abc"))
		require.NoError(t, s.Clear(context.Background()))
		require.NoError(t, s.Clear(context.Background()))

		exists, err := afero.Exists(fs, filepath.Join("/tmp/portal", store.Key))
		require.NoError(t, err)
		require.False(t, exists)

		token, err := s.Load(context.Background())
		require.NoError(t, err)
		require.Empty(t, token)
	})

	t.Run("read-only fs fails on save", func(t *testing.T) {
		t.Parallel()
		s := store.NewFile(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/tmp/portal")

		require.Error(t, s.Save(context.Background(), "abc"))
	})
}

func TestMemory(t *testing.T) {
	t.Parallel()

	s := store.NewMemory()
	ctx := context.Background()

	token, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, s.Save(ctx, "abc"))
	token, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "abc", token)

	require.NoError(t, s.Clear(ctx))
	token, err = s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, token)
}
