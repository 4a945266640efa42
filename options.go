// Package sftp provides functional options for configuring SFTP client behavior.
// These options follow the functional options pattern for clean, composable configuration.
package sftp

import (
	"log/slog"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// WithPort sets the SSH port to connect to.
// Default is 22.
func WithPort(port int) sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		if port > 0 {
			c.Port = port
		}
	}
}

// WithPassword enables password authentication with the given password.
func WithPassword(password string) sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		c.Password = password
	}
}

// WithPrivateKey enables public-key authentication with a PEM-encoded private key.
func WithPrivateKey(pem []byte) sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		c.PrivateKey = pem
	}
}

// WithPrivateKeyPassphrase sets the passphrase used to decrypt the private key
// given to WithPrivateKey.
func WithPrivateKeyPassphrase(passphrase []byte) sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		c.Passphrase = passphrase
	}
}

// WithHostKeyCallback sets the host key verification callback.
// Use ssh.FixedHostKey or a known_hosts-backed callback in production.
func WithHostKeyCallback(callback ssh.HostKeyCallback) sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		c.HostKeyCallback = callback
	}
}

// WithInsecureIgnoreHostKey disables host key verification.
// Only use this for local testing; it makes the connection trivially
// interceptable.
func WithInsecureIgnoreHostKey() sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		c.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in for tests
	}
}

// WithDialTimeout bounds the TCP connect and SSH handshake phase.
// Default is 30 seconds.
func WithDialTimeout(timeout time.Duration) sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		if timeout > 0 {
			c.DialTimeout = timeout
		}
	}
}

// WithChunkLength sets the default read/write request size for transfers.
// Default is 32 KiB. Larger chunks reduce round trips but some servers
// truncate reads above 64 KiB.
func WithChunkLength(length uint32) sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		if length > 0 {
			c.ChunkLength = length
		}
	}
}

// WithMaxInFlight sets the default number of read requests kept outstanding
// during pipelined downloads. Default is 48.
func WithMaxInFlight(n int) sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		if n > 0 {
			c.MaxInFlight = n
		}
	}
}

// WithConcurrency sets the default worker count for mirror and recursive
// delete operations. Default is 4.
func WithConcurrency(concurrency int) sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithLogger sets the structured logger for connection and transfer events.
// If not specified, slog.Default() is used.
func WithLogger(logger *slog.Logger) sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithFilesystem sets a custom filesystem implementation for local file operations.
// This allows using in-memory filesystems for testing or virtual filesystems.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem fs.Filesystem) sftptypes.Option {
	return func(c *sftptypes.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithProgress sets a progress tracker for upload operations.
func WithProgress(tracker sftptypes.ProgressTracker) sftptypes.UploadOption {
	return func(c *sftptypes.UploadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithPermissions sets the permission bits applied to the remote file on creation.
func WithPermissions(mode os.FileMode) sftptypes.UploadOption {
	return func(c *sftptypes.UploadOptionConfig) {
		c.Permissions = mode
	}
}

// WithUploadChunkLength overrides the client's chunk length for this upload.
func WithUploadChunkLength(length uint32) sftptypes.UploadOption {
	return func(c *sftptypes.UploadOptionConfig) {
		if length > 0 {
			c.ChunkLength = length
		}
	}
}

// WithDownloadProgress sets a progress tracker for download operations.
func WithDownloadProgress(tracker sftptypes.ProgressTracker) sftptypes.DownloadOption {
	return func(c *sftptypes.DownloadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithDownloadChunkLength overrides the client's chunk length for this download.
func WithDownloadChunkLength(length uint32) sftptypes.DownloadOption {
	return func(c *sftptypes.DownloadOptionConfig) {
		if length > 0 {
			c.ChunkLength = length
		}
	}
}

// WithDownloadMaxInFlight overrides the client's request window for this download.
func WithDownloadMaxInFlight(n int) sftptypes.DownloadOption {
	return func(c *sftptypes.DownloadOptionConfig) {
		if n > 0 {
			c.MaxInFlight = n
		}
	}
}

// WithRecursive makes List walk the directory tree instead of a single level.
func WithRecursive() sftptypes.ListOption {
	return func(c *sftptypes.ListOptionConfig) {
		c.Recursive = true
	}
}

// WithRemoveConcurrency overrides the client's worker count for RemoveAll.
func WithRemoveConcurrency(concurrency int) sftptypes.RemoveOption {
	return func(c *sftptypes.RemoveOptionConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithInclude adds glob patterns for files to include in a mirror.
// When any include pattern is set, files matching none of them are skipped.
func WithInclude(patterns ...string) sftptypes.MirrorOption {
	return func(c *sftptypes.MirrorOptionConfig) {
		c.IncludePatterns = append(c.IncludePatterns, patterns...)
	}
}

// WithExclude adds glob patterns for files to exclude from a mirror.
// Exclude patterns take precedence over include patterns.
func WithExclude(patterns ...string) sftptypes.MirrorOption {
	return func(c *sftptypes.MirrorOptionConfig) {
		c.ExcludePatterns = append(c.ExcludePatterns, patterns...)
	}
}

// WithDelete removes local files that no longer exist on the remote side.
func WithDelete() sftptypes.MirrorOption {
	return func(c *sftptypes.MirrorOptionConfig) {
		c.DeleteExtra = true
	}
}

// WithDryRun plans the mirror without transferring or deleting anything.
func WithDryRun() sftptypes.MirrorOption {
	return func(c *sftptypes.MirrorOptionConfig) {
		c.DryRun = true
	}
}

// WithMirrorConcurrency overrides the client's worker count for this mirror.
func WithMirrorConcurrency(concurrency int) sftptypes.MirrorOption {
	return func(c *sftptypes.MirrorOptionConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithMirrorProgress sets a progress tracker for mirror operations.
// It receives cumulative bytes across all downloaded files.
func WithMirrorProgress(tracker sftptypes.ProgressTracker) sftptypes.MirrorOption {
	return func(c *sftptypes.MirrorOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithComparator sets a custom file comparison strategy for mirror operations.
// The default comparator treats a file as changed when size or modification
// time differ.
func WithComparator(comparator sftptypes.FileComparator) sftptypes.MirrorOption {
	return func(c *sftptypes.MirrorOptionConfig) {
		c.Comparator = comparator
	}
}
