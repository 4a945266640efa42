// Package sftp provides the main SFTP client and core operations.
package sftp

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/operations/remove"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/wire"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// DefaultDirPermissions is applied to directories created by Mkdir and
// MkdirAll.
const DefaultDirPermissions = 0o755

// Upload streams data from an io.Reader to a remote file.
// The remote file is created if it doesn't exist, or truncated if it does.
// Progress tracking and other options can be configured via UploadOption parameters.
//
// Chunks are written sequentially and each write is acknowledged before the
// next is sent, so a failed upload leaves a prefix of the data, never holes.
//
// Returns:
//   - *UploadResult: Contains the remote path, bytes written, and duration
//   - error: Returns an error if the upload fails
//
// Errors:
//   - ErrInvalidPath: If the remote path is empty or malformed
//   - ErrInvalidInput: If reader is nil or an option is out of range
//   - ErrPermission: If the server denies the write
//   - ErrNotConnected: If the connection is closed
//
// Example:
//
//	file, err := os.Open("data.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	result, err := client.Upload(ctx, "/srv/incoming/data.txt", file,
//	    sftp.WithPermissions(0o600),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Uploaded %s in %v\n", result.Path, result.Duration)
func (c *Client) Upload(
	ctx context.Context,
	remotePath string,
	reader io.Reader,
	opts ...sftptypes.UploadOption,
) (*sftptypes.UploadResult, error) {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, sftperrors.NewPathError("upload", remotePath, sftperrors.ErrInvalidInput).
			WithMessage("reader cannot be nil")
	}

	cfg, err := c.uploadConfig(opts)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	uploader := upload.New(c.conn, c.filesystem(), c.logger)
	return uploader.Upload(ctx, c.resolve(remotePath), reader, 0, cfg, startTime)
}

// UploadFile uploads a file from the local filesystem to a remote path.
//
// This is a convenience method that handles file opening and carries the
// local permission bits to the created remote file unless WithPermissions
// overrides them.
//
// Example:
//
//	result, err := client.UploadFile(ctx, "/path/to/report.pdf", "/srv/docs/report.pdf",
//	    sftp.WithProgress(progressTracker),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Uploaded %d bytes in %v\n", result.Size, result.Duration)
func (c *Client) UploadFile(
	ctx context.Context,
	localPath, remotePath string,
	opts ...sftptypes.UploadOption,
) (*sftptypes.UploadResult, error) {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return nil, err
	}
	if err := validation.ValidateLocalPath(localPath); err != nil {
		return nil, err
	}

	// Check the source exists and is a file before touching the server.
	info, err := c.filesystem().Stat(localPath)
	if err != nil {
		return nil, sftperrors.NewPathError("uploadFile", remotePath, err)
	}
	if info.IsDir() {
		return nil, sftperrors.NewPathError("uploadFile", remotePath, sftperrors.ErrInvalidInput).
			WithMessage("local path points to a directory, not a file")
	}

	cfg, err := c.uploadConfig(opts)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	uploader := upload.New(c.conn, c.filesystem(), c.logger)
	return uploader.UploadFile(ctx, localPath, c.resolve(remotePath), cfg, startTime)
}

// Download reads an entire remote file and returns it as a byte slice.
// This is a convenience method for small files that fit in memory; use
// DownloadFile or DownloadStream for anything large.
//
// The transfer is pipelined: the file is split into chunks and a bounded
// window of read requests is kept in flight, so high-latency links are
// saturated instead of paying one round trip per chunk.
//
// Errors:
//   - ErrNotFound: If the remote path doesn't exist
//   - ErrPermission: If the server denies the read
//   - ErrSizeMismatch: If the bytes received differ from the declared size
//   - ErrCancelled: If ctx is cancelled mid-transfer
//
// Example:
//
//	data, err := client.Download(ctx, "/etc/motd")
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%s", data)
func (c *Client) Download(
	ctx context.Context,
	remotePath string,
	opts ...sftptypes.DownloadOption,
) ([]byte, error) {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return nil, err
	}

	cfg, err := c.downloadConfig(opts)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	downloader := download.New(c.conn, c.filesystem(), c.logger)
	return downloader.Get(ctx, c.resolve(remotePath), cfg, startTime)
}

// DownloadFile downloads a remote file to a local path using the pipelined
// transfer engine. The local file is created if it doesn't exist, or
// truncated if it does; a failed transfer removes the partial file.
//
// Example:
//
//	result, err := client.DownloadFile(ctx, "/srv/data/archive.tar", "/tmp/archive.tar",
//	    sftp.WithDownloadProgress(progressTracker),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Downloaded %d bytes in %v\n", result.Size, result.Duration)
func (c *Client) DownloadFile(
	ctx context.Context,
	remotePath, localPath string,
	opts ...sftptypes.DownloadOption,
) (*sftptypes.DownloadResult, error) {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return nil, err
	}
	if err := validation.ValidateLocalPath(localPath); err != nil {
		return nil, err
	}

	cfg, err := c.downloadConfig(opts)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	downloader := download.New(c.conn, c.filesystem(), c.logger)
	return downloader.DownloadFile(ctx, c.resolve(remotePath), localPath, cfg, startTime)
}

// DownloadStream downloads a remote file into an io.Writer.
// Bytes reach the writer in strict offset order even though the underlying
// read responses may arrive out of order.
func (c *Client) DownloadStream(
	ctx context.Context,
	remotePath string,
	writer io.Writer,
	opts ...sftptypes.DownloadOption,
) (*sftptypes.DownloadResult, error) {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return nil, err
	}
	if writer == nil {
		return nil, sftperrors.NewPathError("download", remotePath, sftperrors.ErrInvalidInput).
			WithMessage("writer cannot be nil")
	}

	cfg, err := c.downloadConfig(opts)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	downloader := download.New(c.conn, c.filesystem(), c.logger)
	return downloader.Download(ctx, c.resolve(remotePath), writer, cfg, startTime)
}

// Stat returns metadata for a remote file or directory.
func (c *Client) Stat(ctx context.Context, remotePath string) (*sftptypes.FileInfo, error) {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return nil, err
	}

	resolved := c.resolve(remotePath)
	attrs, err := c.conn.Stat(ctx, resolved)
	if err != nil {
		return nil, sftperrors.NewPathError("stat", remotePath, err)
	}

	return &sftptypes.FileInfo{
		Name:    path.Base(resolved),
		Path:    resolved,
		Size:    int64(attrs.Size),
		Mode:    attrs.FileMode(),
		ModTime: attrs.ModTime(),
		IsDir:   attrs.IsDir(),
	}, nil
}

// Exists reports whether a remote path exists.
func (c *Client) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, err := c.Stat(ctx, remotePath)
	if err != nil {
		if sftperrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns the entries of a remote directory, sorted by name.
// With WithRecursive, subdirectory contents follow their directory in
// depth-first order.
//
// Example:
//
//	entries, err := client.List(ctx, "/srv/data", sftp.WithRecursive())
//	if err != nil {
//	    return err
//	}
//	for _, e := range entries {
//	    fmt.Println(e.Path, e.Size)
//	}
func (c *Client) List(
	ctx context.Context,
	remotePath string,
	opts ...sftptypes.ListOption,
) ([]sftptypes.FileInfo, error) {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return nil, err
	}

	config := &sftptypes.ListOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	lister := list.New(c.conn, c.logger)
	return lister.List(ctx, c.resolve(remotePath), config.Recursive)
}

// Rename moves a remote file or directory to a new path.
// Most servers refuse to rename onto an existing target.
func (c *Client) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := validation.ValidateRemotePath(oldPath); err != nil {
		return err
	}
	if err := validation.ValidateRemotePath(newPath); err != nil {
		return err
	}

	if err := c.conn.Rename(ctx, c.resolve(oldPath), c.resolve(newPath)); err != nil {
		return sftperrors.NewPathError("rename", oldPath, err)
	}
	return nil
}

// Remove deletes a single remote file.
func (c *Client) Remove(ctx context.Context, remotePath string) error {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return err
	}

	remover := remove.New(c.conn, c.logger)
	return remover.Remove(ctx, c.resolve(remotePath))
}

// RemoveDir deletes an empty remote directory.
func (c *Client) RemoveDir(ctx context.Context, remotePath string) error {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return err
	}

	remover := remove.New(c.conn, c.logger)
	return remover.RemoveDir(ctx, c.resolve(remotePath))
}

// RemoveAll deletes a remote path and, for directories, everything under it.
// Files within one directory level are deleted concurrently; a path that
// doesn't exist is not an error.
func (c *Client) RemoveAll(
	ctx context.Context,
	remotePath string,
	opts ...sftptypes.RemoveOption,
) error {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return err
	}

	config := &sftptypes.RemoveOptionConfig{Concurrency: c.cfg.Concurrency}
	for _, opt := range opts {
		opt(config)
	}
	if err := validation.ValidateConcurrency(config.Concurrency); err != nil {
		return err
	}

	remover := remove.New(c.conn, c.logger)
	return remover.RemoveAll(ctx, c.resolve(remotePath), config.Concurrency)
}

// Mkdir creates a remote directory. The parent must already exist.
func (c *Client) Mkdir(ctx context.Context, remotePath string) error {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return err
	}

	if err := c.conn.Mkdir(ctx, c.resolve(remotePath), wire.PermAttrs(DefaultDirPermissions)); err != nil {
		return sftperrors.NewPathError("mkdir", remotePath, err)
	}
	return nil
}

// MkdirAll creates a remote directory along with any missing parents.
// Existing directories along the way are not an error.
func (c *Client) MkdirAll(ctx context.Context, remotePath string) error {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return err
	}

	resolved := c.resolve(remotePath)
	var prefix string
	if path.IsAbs(resolved) {
		prefix = "/"
	}
	for _, part := range splitPath(resolved) {
		prefix = path.Join(prefix, part)
		attrs, err := c.conn.Stat(ctx, prefix)
		if err == nil {
			if !attrs.IsDir() {
				return sftperrors.NewPathError("mkdirAll", remotePath, sftperrors.ErrInvalidPath).
					WithMessage(prefix + " exists and is not a directory")
			}
			continue
		}
		if !sftperrors.IsNotFound(err) {
			return sftperrors.NewPathError("mkdirAll", remotePath, err)
		}
		if err := c.conn.Mkdir(ctx, prefix, wire.PermAttrs(DefaultDirPermissions)); err != nil {
			return sftperrors.NewPathError("mkdirAll", remotePath, err)
		}
	}
	return nil
}

// RealPath asks the server to canonicalize a remote path, resolving
// symlinks and relative components.
func (c *Client) RealPath(ctx context.Context, remotePath string) (string, error) {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return "", err
	}

	resolved, err := c.conn.RealPath(ctx, c.resolve(remotePath))
	if err != nil {
		return "", sftperrors.NewPathError("realpath", remotePath, err)
	}
	return resolved, nil
}

// Getwd returns the client's current remote working directory.
func (c *Client) Getwd() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cwd
}

// Chdir changes the client's remote working directory. The target is
// canonicalized by the server and must be a directory.
func (c *Client) Chdir(ctx context.Context, remotePath string) error {
	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return err
	}

	resolved, err := c.conn.RealPath(ctx, c.resolve(remotePath))
	if err != nil {
		return sftperrors.NewPathError("chdir", remotePath, err)
	}
	attrs, err := c.conn.Stat(ctx, resolved)
	if err != nil {
		return sftperrors.NewPathError("chdir", remotePath, err)
	}
	if !attrs.IsDir() {
		return sftperrors.NewPathError("chdir", remotePath, sftperrors.ErrInvalidPath).
			WithMessage("not a directory")
	}

	c.mu.Lock()
	c.cwd = resolved
	c.mu.Unlock()
	return nil
}

// resolve turns a caller path into an absolute remote path against the
// current working directory. Remote paths are always POSIX style.
func (c *Client) resolve(remotePath string) string {
	if path.IsAbs(remotePath) {
		return path.Clean(remotePath)
	}
	c.mu.RLock()
	cwd := c.cwd
	c.mu.RUnlock()
	return path.Join(cwd, remotePath)
}

// uploadConfig merges client defaults with per-operation upload options.
func (c *Client) uploadConfig(opts []sftptypes.UploadOption) (upload.Config, error) {
	config := &sftptypes.UploadOptionConfig{
		ChunkLength: c.cfg.ChunkLength,
	}
	for _, opt := range opts {
		opt(config)
	}

	if err := validation.ValidateChunkLength(config.ChunkLength); err != nil {
		return upload.Config{}, err
	}

	return upload.Config{
		ChunkLength:     config.ChunkLength,
		Permissions:     config.Permissions,
		ProgressTracker: config.ProgressTracker,
	}, nil
}

// downloadConfig merges client defaults with per-operation download options.
func (c *Client) downloadConfig(opts []sftptypes.DownloadOption) (download.Config, error) {
	config := &sftptypes.DownloadOptionConfig{
		ChunkLength: c.cfg.ChunkLength,
		MaxInFlight: c.cfg.MaxInFlight,
	}
	for _, opt := range opts {
		opt(config)
	}

	if err := validation.ValidateChunkLength(config.ChunkLength); err != nil {
		return download.Config{}, err
	}
	if err := validation.ValidateMaxInFlight(config.MaxInFlight); err != nil {
		return download.Config{}, err
	}

	return download.Config{
		ChunkLength:     config.ChunkLength,
		MaxInFlight:     config.MaxInFlight,
		ProgressTracker: config.ProgressTracker,
	}, nil
}

// splitPath breaks a cleaned POSIX path into its components.
func splitPath(p string) []string {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}
	return parts
}
