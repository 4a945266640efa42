package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/conn"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/executor"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/planner"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/testutil"
)

func newExecutor(t *testing.T, concurrency int, opts ...testutil.ServerOption) (*testutil.Server, *executor.Executor, *billy.FS) {
	t.Helper()
	srv, pipe := testutil.StartServer(t, opts...)
	c, err := conn.New(pipe, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	local := billy.NewInMemoryFS()
	d := download.New(c, local, nil)
	cfg := download.Config{ChunkLength: 64, MaxInFlight: 4}
	return srv, executor.NewExecutor(d, local, concurrency, cfg), local
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads planned files into place", func(t *testing.T) {
		srv, ex, local := newExecutor(t, 2)
		a := testutil.GenerateContent(1, 300)
		b := testutil.GenerateContent(2, 150)
		require.NoError(t, srv.Seed("/srv/a.bin", a))
		require.NoError(t, srv.Seed("/srv/sub/b.bin", b))

		actions := []*planner.Action{
			{Type: planner.ActionDownload, RemotePath: "/srv/a.bin", LocalPath: "/mirror/a.bin", Size: 300},
			{Type: planner.ActionDownload, RemotePath: "/srv/sub/b.bin", LocalPath: "/mirror/sub/b.bin", Size: 150},
		}

		result, err := ex.Execute(ctx, actions, 450)
		require.NoError(t, err)
		assert.Equal(t, 2, result.FilesDownloaded())
		assert.Equal(t, int64(450), result.BytesDownloaded())
		assert.Empty(t, result.Errors)

		got, err := local.ReadFile("/mirror/a.bin")
		require.NoError(t, err)
		assert.Equal(t, a, got)
		got, err = local.ReadFile("/mirror/sub/b.bin")
		require.NoError(t, err)
		assert.Equal(t, b, got)
	})

	t.Run("skip actions are untouched", func(t *testing.T) {
		_, ex, local := newExecutor(t, 2)

		actions := []*planner.Action{
			{Type: planner.ActionSkip, RemotePath: "/srv/same.txt", LocalPath: "/mirror/same.txt"},
		}

		result, err := ex.Execute(ctx, actions, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, result.FilesDownloaded())

		exists, err := local.Exists("/mirror/same.txt")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("deletions run after downloads", func(t *testing.T) {
		srv, ex, local := newExecutor(t, 1)
		require.NoError(t, srv.Seed("/srv/fresh.bin", testutil.GenerateContent(3, 64)))
		require.NoError(t, local.MkdirAll("/mirror", 0o755))
		require.NoError(t, local.WriteFile("/mirror/stale.bin", []byte("old"), 0o644))

		actions := []*planner.Action{
			{Type: planner.ActionDeleteLocal, LocalPath: "/mirror/stale.bin"},
			{Type: planner.ActionDownload, RemotePath: "/srv/fresh.bin", LocalPath: "/mirror/fresh.bin", Size: 64},
		}

		result, err := ex.Execute(ctx, actions, 64)
		require.NoError(t, err)
		assert.Equal(t, 1, result.FilesDownloaded())
		assert.Equal(t, 1, result.FilesDeleted())

		exists, err := local.Exists("/mirror/stale.bin")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("one failed file does not abandon the rest", func(t *testing.T) {
		srv, ex, local := newExecutor(t, 1)
		require.NoError(t, srv.Seed("/srv/good.bin", testutil.GenerateContent(4, 100)))

		actions := []*planner.Action{
			{Type: planner.ActionDownload, RemotePath: "/srv/missing.bin", LocalPath: "/mirror/missing.bin", Size: 10},
			{Type: planner.ActionDownload, RemotePath: "/srv/good.bin", LocalPath: "/mirror/good.bin", Size: 100},
		}

		result, err := ex.Execute(ctx, actions, 110)
		require.NoError(t, err)
		assert.Equal(t, 1, result.FilesDownloaded())
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "/srv/missing.bin", result.Errors[0].Path)

		exists, err := local.Exists("/mirror/good.bin")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("progress tracker sees cumulative bytes", func(t *testing.T) {
		srv, ex, _ := newExecutor(t, 1)
		require.NoError(t, srv.Seed("/srv/a", testutil.GenerateContent(5, 100)))
		require.NoError(t, srv.Seed("/srv/b", testutil.GenerateContent(6, 50)))

		tracker := &testutil.MockProgressTracker{}
		ex.WithProgressTracker(tracker)

		actions := []*planner.Action{
			{Type: planner.ActionDownload, RemotePath: "/srv/a", LocalPath: "/m/a", Size: 100},
			{Type: planner.ActionDownload, RemotePath: "/srv/b", LocalPath: "/m/b", Size: 50},
		}

		_, err := ex.Execute(ctx, actions, 150)
		require.NoError(t, err)
		assert.True(t, tracker.UpdateCalled)
		assert.Equal(t, int64(150), tracker.BytesTransferred)
		assert.Equal(t, int64(150), tracker.TotalBytes)
	})

	t.Run("cancellation stops the run", func(t *testing.T) {
		srv, ex, _ := newExecutor(t, 1)
		require.NoError(t, srv.Seed("/srv/a", testutil.GenerateContent(7, 64)))

		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		actions := []*planner.Action{
			{Type: planner.ActionDownload, RemotePath: "/srv/a", LocalPath: "/m/a", Size: 64},
		}

		_, err := ex.Execute(cancelCtx, actions, 64)
		require.Error(t, err)
		assert.ErrorIs(t, err, sftperrors.ErrCancelled)
	})

	t.Run("cancellation before deletions reports the cancellation kind", func(t *testing.T) {
		_, ex, local := newExecutor(t, 1)
		require.NoError(t, local.MkdirAll("/m", 0o755))
		require.NoError(t, local.WriteFile("/m/stale", []byte("old"), 0o644))

		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		actions := []*planner.Action{
			{Type: planner.ActionDeleteLocal, LocalPath: "/m/stale"},
		}

		_, err := ex.Execute(cancelCtx, actions, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, sftperrors.ErrCancelled)

		exists, err := local.Exists("/m/stale")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
