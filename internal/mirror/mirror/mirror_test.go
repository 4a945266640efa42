package mirror_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/conn"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/comparator"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/executor"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/mirror"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/planner"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/scanner"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/testutil"
)

func newManager(t *testing.T) (*testutil.Server, *mirror.Manager, *billy.FS) {
	t.Helper()
	srv, pipe := testutil.StartServer(t)
	c, err := conn.New(pipe, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	local := billy.NewInMemoryFS()
	sc := scanner.NewScanner(c, local, nil)
	pl := planner.NewPlanner(comparator.NewSizeModTimeComparator())
	d := download.New(c, local, nil)
	ex := executor.NewExecutor(d, local, 2, download.Config{ChunkLength: 64, MaxInFlight: 4})
	return srv, mirror.NewManager(sc, pl, ex), local
}

func TestMirror(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors a fresh tree", func(t *testing.T) {
		srv, m, local := newManager(t)
		a := testutil.GenerateContent(1, 200)
		b := testutil.GenerateContent(2, 90)
		require.NoError(t, srv.Seed("/srv/a.bin", a))
		require.NoError(t, srv.Seed("/srv/sub/b.bin", b))

		result, err := m.Mirror(ctx, &mirror.Config{
			RemotePath: "/srv",
			LocalPath:  "/mirror",
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.FilesDownloaded)
		assert.Equal(t, 0, result.FilesSkipped)
		assert.Equal(t, int64(290), result.BytesDownloaded)
		assert.Empty(t, result.Errors)

		got, err := local.ReadFile("/mirror/a.bin")
		require.NoError(t, err)
		assert.Equal(t, a, got)
		got, err = local.ReadFile("/mirror/sub/b.bin")
		require.NoError(t, err)
		assert.Equal(t, b, got)
	})

	t.Run("second run skips unchanged files", func(t *testing.T) {
		srv, m, _ := newManager(t)
		require.NoError(t, srv.Seed("/srv/a.bin", testutil.GenerateContent(3, 120)))

		cfg := &mirror.Config{RemotePath: "/srv", LocalPath: "/mirror"}

		first, err := m.Mirror(ctx, cfg)
		require.NoError(t, err)
		require.Equal(t, 1, first.FilesDownloaded)

		second, err := m.Mirror(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, 0, second.FilesDownloaded)
		assert.Equal(t, 1, second.FilesSkipped)
	})

	t.Run("patterns limit the mirror", func(t *testing.T) {
		srv, m, local := newManager(t)
		require.NoError(t, srv.Seed("/srv/keep.log", []byte("keep")))
		require.NoError(t, srv.Seed("/srv/drop.txt", []byte("drop")))

		result, err := m.Mirror(ctx, &mirror.Config{
			RemotePath:      "/srv",
			LocalPath:       "/mirror",
			IncludePatterns: []string{"*.log"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.FilesDownloaded)

		exists, err := local.Exists("/mirror/drop.txt")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("delete extra prunes stale local files", func(t *testing.T) {
		srv, m, local := newManager(t)
		require.NoError(t, srv.Seed("/srv/current.bin", testutil.GenerateContent(4, 60)))
		require.NoError(t, local.MkdirAll("/mirror", 0o755))
		require.NoError(t, local.WriteFile("/mirror/stale.bin", []byte("old"), 0o644))

		result, err := m.Mirror(ctx, &mirror.Config{
			RemotePath:  "/srv",
			LocalPath:   "/mirror",
			DeleteExtra: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.FilesDownloaded)
		assert.Equal(t, 1, result.FilesDeleted)

		exists, err := local.Exists("/mirror/stale.bin")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("dry run plans without touching either side", func(t *testing.T) {
		srv, m, local := newManager(t)
		require.NoError(t, srv.Seed("/srv/a.bin", testutil.GenerateContent(5, 80)))
		require.NoError(t, local.MkdirAll("/mirror", 0o755))
		require.NoError(t, local.WriteFile("/mirror/stale.bin", []byte("old"), 0o644))

		result, err := m.Mirror(ctx, &mirror.Config{
			RemotePath:  "/srv",
			LocalPath:   "/mirror",
			DeleteExtra: true,
			DryRun:      true,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, result.FilesDownloaded)
		assert.Equal(t, 0, result.FilesDeleted)
		require.Len(t, result.Actions, 2)
		assert.Equal(t, planner.ActionDownload, result.Actions[0].Type)
		assert.Equal(t, planner.ActionDeleteLocal, result.Actions[1].Type)

		exists, err := local.Exists("/mirror/a.bin")
		require.NoError(t, err)
		assert.False(t, exists)
		exists, err = local.Exists("/mirror/stale.bin")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
