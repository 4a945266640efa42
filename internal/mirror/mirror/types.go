// Package mirror provides shared types for the mirror functionality.
package mirror

import (
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/planner"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// Config holds configuration for a mirror operation.
type Config struct {
	// RemotePath is the remote directory to mirror from
	RemotePath string

	// LocalPath is the local directory to mirror into
	LocalPath string

	// IncludePatterns are glob patterns for files to include
	IncludePatterns []string

	// ExcludePatterns are glob patterns for files to exclude
	ExcludePatterns []string

	// DeleteExtra determines if local files missing remotely are deleted
	DeleteExtra bool

	// DryRun determines if this should be a dry run (no actual changes)
	DryRun bool

	// ProgressTracker tracks cumulative mirror progress
	ProgressTracker sftptypes.ProgressTracker

	// Concurrency controls the number of concurrent downloads
	Concurrency int
}

// Result contains the results of a mirror operation.
type Result struct {
	// FilesDownloaded is the number of files downloaded
	FilesDownloaded int

	// FilesSkipped is the number of files skipped (unchanged)
	FilesSkipped int

	// FilesDeleted is the number of local files deleted
	FilesDeleted int

	// BytesDownloaded is the total bytes downloaded
	BytesDownloaded int64

	// Errors contains any errors that occurred during the mirror
	Errors []sftptypes.MirrorError

	// Duration is how long the mirror operation took
	Duration time.Duration

	// Actions contains the planned actions (populated for dry runs)
	Actions []*planner.Action
}
