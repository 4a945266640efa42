// Package comparator provides file comparison strategies for mirrors.
// This includes different algorithms for determining if a local copy is
// stale relative to its remote counterpart.
//
// Without content digests on the wire, size and modification time are the
// comparison signals available; the default comparator uses both with a
// small time tolerance.
package comparator

import (
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// SizeModTimeComparator is the default comparator. A file is considered
// changed when the sizes differ or the modification times are further apart
// than the tolerance.
type SizeModTimeComparator struct {
	// MaxTimeDiff is the tolerance for modification time comparison;
	// protocol timestamps have one-second resolution
	MaxTimeDiff time.Duration
}

// NewSizeModTimeComparator creates the default comparator with a two second
// tolerance.
func NewSizeModTimeComparator() *SizeModTimeComparator {
	return &SizeModTimeComparator{
		MaxTimeDiff: 2 * time.Second,
	}
}

// HasChanged implements the FileComparator interface.
func (c *SizeModTimeComparator) HasChanged(remote *sftptypes.RemoteFile, local *sftptypes.LocalFile) bool {
	if remote.Size != local.Size {
		return true
	}

	// A zero remote mtime means the server didn't send one; size agreement
	// is all we have then.
	if remote.ModTime.IsZero() {
		return false
	}

	diff := remote.ModTime.Sub(local.ModTime)
	if diff < 0 {
		diff = -diff
	}
	return diff > c.MaxTimeDiff
}

// SizeOnlyComparator only compares file sizes.
// This is the fastest comparator but misses changes that keep the size.
type SizeOnlyComparator struct{}

// NewSizeOnlyComparator creates a new size-only comparator.
func NewSizeOnlyComparator() *SizeOnlyComparator {
	return &SizeOnlyComparator{}
}

// HasChanged implements the FileComparator interface.
func (c *SizeOnlyComparator) HasChanged(remote *sftptypes.RemoteFile, local *sftptypes.LocalFile) bool {
	return remote.Size != local.Size
}

// AlwaysComparator treats every remote file as changed.
// This is useful for force-mirror scenarios or testing.
type AlwaysComparator struct{}

// NewAlwaysComparator creates a new always-changed comparator.
func NewAlwaysComparator() *AlwaysComparator {
	return &AlwaysComparator{}
}

// HasChanged implements the FileComparator interface.
func (c *AlwaysComparator) HasChanged(*sftptypes.RemoteFile, *sftptypes.LocalFile) bool {
	return true
}
