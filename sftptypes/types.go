// Package sftptypes provides shared type definitions for the SFTP module.
package sftptypes

import (
	"log/slog"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
)

// Default transfer tuning. These match the limits most SFTP servers accept
// without negotiation.
const (
	// DefaultChunkLength is the read/write request size in bytes (32 KiB)
	DefaultChunkLength uint32 = 32 * 1024

	// DefaultMaxInFlight is the number of read requests kept outstanding
	// during a pipelined download
	DefaultMaxInFlight = 48

	// DefaultDialTimeout bounds the TCP and SSH handshake phase
	DefaultDialTimeout = 30 * time.Second

	// DefaultConcurrency is the worker count for mirror and recursive
	// delete operations
	DefaultConcurrency = 4

	// DefaultPort is the standard SSH port
	DefaultPort = 22
)

// FileInfo describes a remote file or directory.
type FileInfo struct {
	// Name is the base name of the entry
	Name string

	// Path is the full remote path of the entry
	Path string

	// Size is the file size in bytes
	Size int64

	// Mode is the file mode and permission bits
	Mode os.FileMode

	// ModTime is the file modification time
	ModTime time.Time

	// IsDir reports whether the entry is a directory
	IsDir bool
}

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations can provide real-time progress updates during uploads and downloads.
type ProgressTracker interface {
	// Update is called periodically with transfer progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// FileComparator defines the interface for comparing remote and local files.
// Different implementations can use various comparison strategies.
type FileComparator interface {
	// HasChanged determines if the remote and local files are different
	HasChanged(remote *RemoteFile, local *LocalFile) bool
}

// LocalFile represents a file on the local filesystem during mirror operations.
type LocalFile struct {
	// Path is the local file path
	Path string

	// Size is the file size in bytes
	Size int64

	// ModTime is the file modification time
	ModTime time.Time
}

// RemoteFile represents a remote file during mirror operations.
type RemoteFile struct {
	// Path is the remote file path
	Path string

	// Size is the file size in bytes
	Size int64

	// ModTime is the file modification time
	ModTime time.Time
}

// UploadResult contains the result of an upload operation.
type UploadResult struct {
	// Path is the remote path that was written
	Path string

	// Size is the number of bytes uploaded
	Size int64

	// Duration is how long the upload took
	Duration time.Duration
}

// DownloadResult contains the result of a download operation.
type DownloadResult struct {
	// Path is the remote path that was read
	Path string

	// Size is the number of bytes downloaded
	Size int64

	// Duration is how long the download took
	Duration time.Duration
}

// MirrorResult contains the result of a mirror operation.
type MirrorResult struct {
	// FilesDownloaded is the number of files downloaded
	FilesDownloaded int

	// FilesSkipped is the number of files skipped (unchanged)
	FilesSkipped int

	// FilesDeleted is the number of local files deleted
	FilesDeleted int

	// BytesDownloaded is the total bytes downloaded
	BytesDownloaded int64

	// Errors contains any errors that occurred during the mirror
	Errors []MirrorError

	// Duration is how long the mirror operation took
	Duration time.Duration
}

// MirrorError represents an error that occurred during a mirror operation.
type MirrorError struct {
	// Path is the remote path that caused the error
	Path string

	// Message is the error message
	Message string
}

// Configuration types for functional options

// ClientConfig holds configuration for the SFTP client.
type ClientConfig struct {
	Port            int
	User            string
	Password        string
	PrivateKey      []byte
	Passphrase      []byte
	HostKeyCallback ssh.HostKeyCallback
	DialTimeout     time.Duration
	ChunkLength     uint32
	MaxInFlight     int
	Concurrency     int
	Logger          *slog.Logger
	Filesystem      fs.Filesystem // Filesystem abstraction for local file operations
}

// UploadOptionConfig holds configuration for upload operations via functional options.
type UploadOptionConfig struct {
	ProgressTracker ProgressTracker
	Permissions     os.FileMode
	ChunkLength     uint32
}

// DownloadOptionConfig holds configuration for download operations via functional options.
type DownloadOptionConfig struct {
	ProgressTracker ProgressTracker
	ChunkLength     uint32
	MaxInFlight     int
}

// ListOptionConfig holds configuration for list operations via functional options.
type ListOptionConfig struct {
	Recursive bool
}

// RemoveOptionConfig holds configuration for remove operations via functional options.
type RemoveOptionConfig struct {
	Concurrency int
}

// MirrorOptionConfig holds configuration for mirror operations via functional options.
type MirrorOptionConfig struct {
	DryRun          bool
	ExcludePatterns []string
	IncludePatterns []string
	ProgressTracker ProgressTracker
	Concurrency     int
	Comparator      FileComparator
	DeleteExtra     bool
}

// Option is a functional option for configuring the SFTP client.
type (
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring upload operations.
	UploadOption func(*UploadOptionConfig)
	// DownloadOption is a functional option for configuring download operations.
	DownloadOption func(*DownloadOptionConfig)
	// ListOption is a functional option for configuring list operations.
	ListOption func(*ListOptionConfig)
	// RemoveOption is a functional option for configuring remove operations.
	RemoveOption func(*RemoveOptionConfig)
	// MirrorOption is a functional option for configuring mirror operations.
	MirrorOption func(*MirrorOptionConfig)
)
