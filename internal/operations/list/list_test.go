package list_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/conn"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

func newLister(t *testing.T, opts ...testutil.ServerOption) (*testutil.Server, *list.Lister) {
	t.Helper()
	srv, pipe := testutil.StartServer(t, opts...)
	c, err := conn.New(pipe, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return srv, list.New(c, nil)
}

func names(entries []sftptypes.FileInfo) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("returns entries sorted by name", func(t *testing.T) {
		srv, l := newLister(t)
		require.NoError(t, srv.SeedTree("/dir", map[string][]byte{
			"zeta":  []byte("z"),
			"alpha": []byte("a"),
			"mid":   []byte("m"),
		}))

		entries, err := l.List(ctx, "/dir", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "mid", "zeta"}, names(entries))
	})

	t.Run("populates entry metadata", func(t *testing.T) {
		srv, l := newLister(t)
		require.NoError(t, srv.Seed("/dir/f.bin", testutil.GenerateContent(1, 321)))

		entries, err := l.List(ctx, "/dir", false)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		e := entries[0]
		assert.Equal(t, "f.bin", e.Name)
		assert.Equal(t, "/dir/f.bin", e.Path)
		assert.Equal(t, int64(321), e.Size)
		assert.False(t, e.IsDir)
		assert.False(t, e.ModTime.IsZero())
	})

	t.Run("non-recursive stops at the first level", func(t *testing.T) {
		srv, l := newLister(t)
		require.NoError(t, srv.Seed("/dir/top.txt", []byte("t")))
		require.NoError(t, srv.Seed("/dir/sub/inner.txt", []byte("i")))

		entries, err := l.List(ctx, "/dir", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"sub", "top.txt"}, names(entries))
	})

	t.Run("recursive lists depth-first", func(t *testing.T) {
		srv, l := newLister(t)
		require.NoError(t, srv.Seed("/dir/a.txt", []byte("a")))
		require.NoError(t, srv.Seed("/dir/sub/one.txt", []byte("1")))
		require.NoError(t, srv.Seed("/dir/sub/two.txt", []byte("2")))
		require.NoError(t, srv.Seed("/dir/z.txt", []byte("z")))

		entries, err := l.List(ctx, "/dir", true)
		require.NoError(t, err)
		// Subdirectory contents immediately follow their directory.
		assert.Equal(t, []string{"a.txt", "sub", "one.txt", "two.txt", "z.txt"}, names(entries))
		assert.Equal(t, "/dir/sub/one.txt", entries[2].Path)
	})

	t.Run("empty directory yields no entries", func(t *testing.T) {
		srv, l := newLister(t)
		require.NoError(t, srv.FS.MkdirAll("/empty", 0o755))

		entries, err := l.List(ctx, "/empty", false)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("pages large directories", func(t *testing.T) {
		srv, l := newLister(t)
		tree := map[string][]byte{}
		for i := 0; i < 150; i++ {
			tree[fmt.Sprintf("entry-%03d", i)] = []byte("x")
		}
		require.NoError(t, srv.SeedTree("/big", tree))

		entries, err := l.List(ctx, "/big", false)
		require.NoError(t, err)
		assert.Len(t, entries, 150)
	})

	t.Run("missing directory is not found", func(t *testing.T) {
		_, l := newLister(t)

		_, err := l.List(ctx, "/missing", false)
		require.Error(t, err)
		assert.ErrorIs(t, err, sftperrors.ErrNotFound)
	})
}

func TestWalk(t *testing.T) {
	ctx := context.Background()

	t.Run("visits every entry depth-first", func(t *testing.T) {
		srv, l := newLister(t)
		require.NoError(t, srv.Seed("/dir/a.txt", []byte("a")))
		require.NoError(t, srv.Seed("/dir/sub/b.txt", []byte("b")))

		var visited []string
		err := l.Walk(ctx, "/dir", func(fi sftptypes.FileInfo) error {
			visited = append(visited, fi.Path)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"/dir/a.txt", "/dir/sub", "/dir/sub/b.txt"}, visited)
	})

	t.Run("callback error stops the walk", func(t *testing.T) {
		srv, l := newLister(t)
		require.NoError(t, srv.SeedTree("/dir", map[string][]byte{
			"one": []byte("1"), "two": []byte("2"), "three": []byte("3"),
		}))

		stop := errors.New("enough")
		var count int
		err := l.Walk(ctx, "/dir", func(sftptypes.FileInfo) error {
			count++
			return stop
		})
		require.ErrorIs(t, err, stop)
		assert.Equal(t, 1, count)
	})
}
