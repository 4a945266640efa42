// Package download handles remote file download operations.
// This includes stream-based downloads, file downloads, and in-memory reads.
//
// Downloads are pipelined: the remote file's size is taken up front, split
// into fixed-length chunks, and a bounded window of read requests is kept in
// flight while responses are reassembled in offset order.
package download

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/conn"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/transfer/window"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/wire"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// Config carries the transfer tuning for one download, already merged from
// client defaults and per-operation options.
type Config struct {
	ChunkLength     uint32
	MaxInFlight     int
	ProgressTracker sftptypes.ProgressTracker
}

// Downloader handles remote download operations with progress tracking support.
type Downloader struct {
	conn   *conn.Conn
	fs     fs.Filesystem
	logger *slog.Logger
}

// New creates a new Downloader instance.
func New(c *conn.Conn, filesystem fs.Filesystem, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		conn:   c,
		fs:     filesystem,
		logger: logger,
	}
}

// Download reads the remote file at path and writes it to sink.
// The remote size is fixed before the first read; a file that changes size
// mid-transfer fails the consistency check rather than silently truncating.
func (d *Downloader) Download(
	ctx context.Context,
	path string,
	sink io.Writer,
	cfg Config,
	startTime time.Time,
) (*sftptypes.DownloadResult, error) {
	handle, err := d.conn.Open(ctx, path, wire.OpenRead, wire.Attrs{})
	if err != nil {
		return nil, errors.NewPathError("download", path, err)
	}
	defer func() {
		// The handle outlives a cancelled transfer; close it regardless.
		_ = d.conn.CloseHandle(context.WithoutCancel(ctx), handle)
	}()

	attrs, err := d.conn.FStat(ctx, handle)
	if err != nil {
		return nil, errors.NewPathError("download", path, err)
	}
	if !attrs.HasSize() {
		return nil, errors.NewPathError("download", path, errors.ErrProtocolMismatch).
			WithMessage("server did not report a file size")
	}

	stream := d.conn.NewStream(cfg.MaxInFlight)
	defer stream.Close()

	var progress func(written, total int64)
	if cfg.ProgressTracker != nil {
		progress = cfg.ProgressTracker.Update
	}

	result, err := window.Download(ctx, &streamTransport{stream: stream, handle: handle}, sink, window.Config{
		FileSize:    attrs.Size,
		ChunkLength: cfg.ChunkLength,
		MaxInFlight: cfg.MaxInFlight,
		Progress:    progress,
		Logger:      d.logger,
		TransferID:  uuid.NewString(),
	})
	if err != nil {
		if cfg.ProgressTracker != nil {
			cfg.ProgressTracker.Error(err)
		}
		return nil, errors.NewPathError("download", path, err)
	}
	if cfg.ProgressTracker != nil {
		cfg.ProgressTracker.Complete()
	}

	return &sftptypes.DownloadResult{
		Path:     path,
		Size:     result.BytesWritten,
		Duration: time.Since(startTime),
	}, nil
}

// DownloadFile downloads a remote file to a local path.
// The local file is created if it doesn't exist, or truncated if it does.
// A failed transfer removes the partial file.
func (d *Downloader) DownloadFile(
	ctx context.Context,
	path, localPath string,
	cfg Config,
	startTime time.Time,
) (*sftptypes.DownloadResult, error) {
	file, err := d.fs.Create(localPath)
	if err != nil {
		return nil, errors.NewPathError("downloadFile", path, err).
			WithMessage("create local file")
	}

	result, err := d.Download(ctx, path, file, cfg, startTime)
	closeErr := file.Close()
	if err != nil {
		_ = d.fs.Remove(localPath)
		return nil, err
	}
	if closeErr != nil {
		_ = d.fs.Remove(localPath)
		return nil, errors.NewPathError("downloadFile", path, closeErr).
			WithMessage("close local file")
	}
	return result, nil
}

// Get downloads an entire remote file and returns it as a byte slice.
// This is a convenience method for small files that fit in memory.
func (d *Downloader) Get(
	ctx context.Context,
	path string,
	cfg Config,
	startTime time.Time,
) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.Download(ctx, path, &buf, cfg, startTime); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// streamTransport adapts a reply stream to the download engine's transport.
// Ownership of pooled payloads passes to the engine, which releases them
// after the sink write.
type streamTransport struct {
	stream *conn.Stream
	handle string
}

func (t *streamTransport) ReadRequest(offset uint64, length uint32) (uint32, error) {
	return t.stream.SendRead(t.handle, offset, length)
}

func (t *streamTransport) Next(ctx context.Context) (window.Response, error) {
	m, err := t.stream.Next(ctx)
	if err != nil {
		return window.Response{}, err
	}
	if err := m.Err(); err != nil {
		m.Release()
		return window.Response{ID: m.ID, Err: err}, nil
	}
	return window.Response{ID: m.ID, Payload: m.Data}, nil
}
