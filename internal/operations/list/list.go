// Package list handles remote directory listing operations.
// This includes single-level listings and recursive directory walks.
//
// Listings are paged through the server handle until it reports end of
// directory, so arbitrarily large directories stream without buffering the
// whole result server-side.
package list

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"sort"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/conn"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/wire"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// Lister handles remote directory listing operations.
type Lister struct {
	conn   *conn.Conn
	logger *slog.Logger
}

// New creates a new Lister instance.
func New(c *conn.Conn, logger *slog.Logger) *Lister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lister{
		conn:   c,
		logger: logger,
	}
}

// List returns the entries of the remote directory at dirPath, sorted by
// name. With recursive set, subdirectory contents follow their directory in
// depth-first order.
func (l *Lister) List(ctx context.Context, dirPath string, recursive bool) ([]sftptypes.FileInfo, error) {
	entries, err := l.readDir(ctx, dirPath)
	if err != nil {
		return nil, err
	}
	if !recursive {
		return entries, nil
	}

	out := make([]sftptypes.FileInfo, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry)
		if entry.IsDir {
			sub, err := l.List(ctx, entry.Path, true)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

// Walk calls fn for every entry under dirPath in depth-first order.
// Returning an error from fn stops the walk.
func (l *Lister) Walk(ctx context.Context, dirPath string, fn func(sftptypes.FileInfo) error) error {
	entries, err := l.readDir(ctx, dirPath)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := fn(entry); err != nil {
			return err
		}
		if entry.IsDir {
			if err := l.Walk(ctx, entry.Path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// readDir pages one directory level from the server.
func (l *Lister) readDir(ctx context.Context, dirPath string) ([]sftptypes.FileInfo, error) {
	handle, err := l.conn.OpenDir(ctx, dirPath)
	if err != nil {
		return nil, sftperrors.NewPathError("list", dirPath, err)
	}
	defer func() {
		_ = l.conn.CloseHandle(context.WithoutCancel(ctx), handle)
	}()

	var entries []sftptypes.FileInfo
	for {
		page, err := l.conn.ReadDirPage(ctx, handle)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, sftperrors.NewPathError("list", dirPath, err)
		}
		for _, e := range page {
			if e.Filename == "." || e.Filename == ".." {
				continue
			}
			entries = append(entries, fileInfo(dirPath, e))
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	l.logger.Debug("listed directory", "path", dirPath, "entries", len(entries))
	return entries, nil
}

// fileInfo maps one wire name entry to the public file info shape.
func fileInfo(dirPath string, e wire.NameEntry) sftptypes.FileInfo {
	return sftptypes.FileInfo{
		Name:    e.Filename,
		Path:    path.Join(dirPath, e.Filename),
		Size:    int64(e.Attrs.Size),
		Mode:    e.Attrs.FileMode(),
		ModTime: e.Attrs.ModTime(),
		IsDir:   e.Attrs.IsDir(),
	}
}
