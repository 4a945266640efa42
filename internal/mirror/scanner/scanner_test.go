package scanner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/conn"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/scanner"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

func newScanner(t *testing.T) (*testutil.Server, *scanner.Scanner, *billy.FS) {
	t.Helper()
	srv, pipe := testutil.StartServer(t)
	c, err := conn.New(pipe, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	local := billy.NewInMemoryFS()
	return srv, scanner.NewScanner(c, local, nil), local
}

func remotePaths(files []*sftptypes.RemoteFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestShouldIncludeFile(t *testing.T) {
	pm := scanner.NewPatternMatcher()

	tests := []struct {
		name    string
		relPath string
		include []string
		exclude []string
		want    bool
	}{
		{"no patterns includes everything", "docs/readme.md", nil, nil, true},
		{"include match", "report.pdf", []string{"*.pdf"}, nil, true},
		{"include miss", "report.txt", []string{"*.pdf"}, nil, false},
		{"base name glob matches nested", "logs/app.log", []string{"*.log"}, nil, true},
		{"exclude wins over include", "report.pdf", []string{"*.pdf"}, []string{"report.*"}, false},
		{"exclude match", "tmp/scratch", nil, []string{"tmp/"}, false},
		{"directory pattern spares siblings", "src/main.go", nil, []string{"tmp/"}, true},
		{"double star suffix", "a/b/c/deep.txt", []string{"a/**"}, nil, true},
		{"double star with name", "src/nested/util.go", []string{"src/**/*.go"}, nil, true},
		{"double star adjacent level", "src/util.go", []string{"src/**/*.go"}, nil, true},
		{"path-scoped glob", "src/util.go", []string{"src/*.go"}, nil, true},
		{"path-scoped glob misses nested", "src/nested/util.go", []string{"src/*.go"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pm.ShouldIncludeFile(tt.relPath, tt.include, tt.exclude)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelativePaths(t *testing.T) {
	assert.Equal(t, "a/b.txt", scanner.RelativeRemote("/data", "/data/a/b.txt"))
	assert.Equal(t, "b.txt", scanner.RelativeRemote("/data", "/data/b.txt"))

	assert.Equal(t, "a/b.txt", scanner.RelativeLocal("/mirror", "/mirror/a/b.txt"))
	assert.Equal(t, "", scanner.RelativeLocal("/mirror", "/elsewhere/b.txt"))
}

func TestScanRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("returns regular files across the tree", func(t *testing.T) {
		srv, sc, _ := newScanner(t)
		require.NoError(t, srv.Seed("/data/top.txt", []byte("t")))
		require.NoError(t, srv.Seed("/data/sub/inner.txt", []byte("in")))

		files, err := sc.ScanRemote(ctx, "/data", nil, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"/data/top.txt", "/data/sub/inner.txt"}, remotePaths(files))

		for _, f := range files {
			assert.Greater(t, f.Size, int64(0))
			assert.False(t, f.ModTime.IsZero())
		}
	})

	t.Run("applies patterns to relative paths", func(t *testing.T) {
		srv, sc, _ := newScanner(t)
		require.NoError(t, srv.Seed("/data/keep.log", []byte("k")))
		require.NoError(t, srv.Seed("/data/drop.txt", []byte("d")))
		require.NoError(t, srv.Seed("/data/sub/also.log", []byte("a")))

		files, err := sc.ScanRemote(ctx, "/data", []string{"*.log"}, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"/data/keep.log", "/data/sub/also.log"}, remotePaths(files))
	})

	t.Run("exclude prunes matching files", func(t *testing.T) {
		srv, sc, _ := newScanner(t)
		require.NoError(t, srv.Seed("/data/a.txt", []byte("a")))
		require.NoError(t, srv.Seed("/data/tmp/junk", []byte("j")))

		files, err := sc.ScanRemote(ctx, "/data", nil, []string{"tmp/"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/data/a.txt"}, remotePaths(files))
	})

	t.Run("missing root fails", func(t *testing.T) {
		_, sc, _ := newScanner(t)

		_, err := sc.ScanRemote(ctx, "/missing", nil, nil)
		require.Error(t, err)
	})
}

func TestScanLocal(t *testing.T) {
	ctx := context.Background()

	t.Run("returns regular files", func(t *testing.T) {
		_, sc, local := newScanner(t)
		require.NoError(t, local.MkdirAll("/mirror/sub", 0o755))
		require.NoError(t, local.WriteFile("/mirror/a.txt", []byte("a"), 0o644))
		require.NoError(t, local.WriteFile("/mirror/sub/b.txt", []byte("bb"), 0o644))

		files, err := sc.ScanLocal(ctx, "/mirror")
		require.NoError(t, err)

		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.Path
		}
		assert.ElementsMatch(t, []string{"/mirror/a.txt", "/mirror/sub/b.txt"}, paths)
	})

	t.Run("missing root is empty not an error", func(t *testing.T) {
		_, sc, _ := newScanner(t)

		files, err := sc.ScanLocal(ctx, "/nope")
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}
