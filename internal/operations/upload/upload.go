// Package upload handles remote file upload operations.
// This includes stream-based uploads and local file uploads.
//
// Uploads write sequentially: each chunk is acknowledged before the next is
// sent, which keeps the write path simple and the remote file consistent on
// failure.
package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/fs"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/conn"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/wire"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// DefaultPermissions is applied to created remote files when the caller
// doesn't specify any.
const DefaultPermissions os.FileMode = 0o644

// Config carries the transfer tuning for one upload, already merged from
// client defaults and per-operation options.
type Config struct {
	ChunkLength     uint32
	Permissions     os.FileMode
	ProgressTracker sftptypes.ProgressTracker
}

// Uploader handles remote upload operations with progress tracking support.
type Uploader struct {
	conn   *conn.Conn
	fs     fs.Filesystem
	logger *slog.Logger
}

// New creates a new Uploader instance.
func New(c *conn.Conn, filesystem fs.Filesystem, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		conn:   c,
		fs:     filesystem,
		logger: logger,
	}
}

// Upload streams data from reader to the remote path. The remote file is
// created if it doesn't exist, or truncated if it does. total is the
// expected byte count when known, or 0; it only feeds progress reporting.
func (u *Uploader) Upload(
	ctx context.Context,
	path string,
	reader io.Reader,
	total int64,
	cfg Config,
	startTime time.Time,
) (*sftptypes.UploadResult, error) {
	perm := cfg.Permissions
	if perm == 0 {
		perm = DefaultPermissions
	}

	pflags := uint32(wire.OpenWrite | wire.OpenCreate | wire.OpenTruncate)
	handle, err := u.conn.Open(ctx, path, pflags, wire.PermAttrs(perm))
	if err != nil {
		return nil, sftperrors.NewPathError("upload", path, err)
	}
	defer func() {
		// The handle outlives a cancelled transfer; close it regardless.
		_ = u.conn.CloseHandle(context.WithoutCancel(ctx), handle)
	}()

	written, err := u.copyChunks(ctx, handle, reader, total, cfg)
	if err != nil {
		if cfg.ProgressTracker != nil {
			cfg.ProgressTracker.Error(err)
		}
		return nil, sftperrors.NewPathError("upload", path, err)
	}
	if cfg.ProgressTracker != nil {
		cfg.ProgressTracker.Complete()
	}

	u.logger.Debug("upload completed", "path", path, "written", written)
	return &sftptypes.UploadResult{
		Path:     path,
		Size:     written,
		Duration: time.Since(startTime),
	}, nil
}

// UploadFile uploads a local file to the remote path.
func (u *Uploader) UploadFile(
	ctx context.Context,
	localPath, path string,
	cfg Config,
	startTime time.Time,
) (*sftptypes.UploadResult, error) {
	file, err := u.fs.Open(localPath)
	if err != nil {
		return nil, sftperrors.NewPathError("uploadFile", path, err).
			WithMessage("open local file")
	}
	defer file.Close()

	total := int64(0)
	if fi, statErr := file.Stat(); statErr == nil {
		total = fi.Size()

		// Preserve the source file's permission bits unless overridden.
		if cfg.Permissions == 0 {
			cfg.Permissions = fi.Mode().Perm()
		}
	}

	return u.Upload(ctx, path, file, total, cfg, startTime)
}

// copyChunks stages reader data through a pooled buffer and writes one
// acknowledged chunk at a time at increasing offsets.
func (u *Uploader) copyChunks(
	ctx context.Context,
	handle string,
	reader io.Reader,
	total int64,
	cfg Config,
) (int64, error) {
	buf := pool.GetBuffer(int(cfg.ChunkLength))
	defer pool.PutBuffer(buf)
	buf = buf[:cfg.ChunkLength]

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, sftperrors.ErrCancelled
		}

		n, readErr := io.ReadFull(reader, buf)
		if n > 0 {
			if err := u.conn.WriteChunk(ctx, handle, uint64(written), buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if cfg.ProgressTracker != nil {
				cfg.ProgressTracker.Update(written, total)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
				return written, nil
			}
			return written, readErr
		}
	}
}
