// Package sftp provides the public mirror API for directory replication.
package sftp

import (
	"context"
	"fmt"
	"path/filepath"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/comparator"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/executor"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/mirror"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/planner"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/scanner"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// Mirror replicates a remote directory tree into a local directory.
// It supports include/exclude patterns, deletion of local files that no
// longer exist remotely, and dry-run mode.
//
// The mirror operation follows a three-phase approach:
// 1. Inventory: walk the remote tree and the local target
// 2. Planning: determine which files to download or delete
// 3. Execution: perform downloads with concurrency control
//
// By default, Mirror only downloads new or changed files. Use WithDelete to
// remove local files whose remote counterpart is gone. Individual file
// failures are collected in the result rather than aborting the mirror.
//
// Returns:
//   - *MirrorResult: Contains statistics about the mirror operation
//   - error: Returns an error only when the operation as a whole fails
//
// Errors:
//   - ErrInvalidPath: If remotePath or localPath is empty or malformed
//   - ErrNotFound: If the remote directory doesn't exist
//   - ErrCancelled: If ctx is cancelled mid-mirror
//
// Example:
//
//	result, err := client.Mirror(ctx, "/srv/data", "/var/cache/data",
//	    sftp.WithExclude("*.tmp"),
//	    sftp.WithDelete(),
//	)
//	if err != nil {
//	    return fmt.Errorf("mirror failed: %w", err)
//	}
//	fmt.Printf("Downloaded %d files (%d bytes)\n", result.FilesDownloaded, result.BytesDownloaded)
//	fmt.Printf("Skipped %d unchanged files\n", result.FilesSkipped)
func (c *Client) Mirror(
	ctx context.Context,
	remotePath, localPath string,
	opts ...sftptypes.MirrorOption,
) (*sftptypes.MirrorResult, error) {
	cfg := &sftptypes.MirrorOptionConfig{
		Concurrency: c.cfg.Concurrency,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validation.ValidateRemotePath(remotePath); err != nil {
		return nil, err
	}
	if err := validation.ValidateLocalPath(localPath); err != nil {
		return nil, err
	}
	if err := validation.ValidatePatterns(cfg.IncludePatterns); err != nil {
		return nil, err
	}
	if err := validation.ValidatePatterns(cfg.ExcludePatterns); err != nil {
		return nil, err
	}
	if err := validation.ValidateConcurrency(cfg.Concurrency); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(localPath)
	if err != nil {
		return nil, sftperrors.NewError("mirror", fmt.Errorf("resolve local path: %w", err))
	}

	filesystem := c.filesystem()
	sc := scanner.NewScanner(c.conn, filesystem, c.logger)

	comp := cfg.Comparator
	if comp == nil {
		comp = comparator.NewSizeModTimeComparator()
	}
	pl := planner.NewPlanner(comp)

	downloadCfg := download.Config{
		ChunkLength: c.cfg.ChunkLength,
		MaxInFlight: c.cfg.MaxInFlight,
	}
	ex := executor.NewExecutor(download.New(c.conn, filesystem, c.logger), filesystem, cfg.Concurrency, downloadCfg)
	if cfg.ProgressTracker != nil {
		ex = ex.WithProgressTracker(cfg.ProgressTracker)
	}

	manager := mirror.NewManager(sc, pl, ex)
	result, err := manager.Mirror(ctx, &mirror.Config{
		RemotePath:      c.resolve(remotePath),
		LocalPath:       absPath,
		IncludePatterns: cfg.IncludePatterns,
		ExcludePatterns: cfg.ExcludePatterns,
		DeleteExtra:     cfg.DeleteExtra,
		DryRun:          cfg.DryRun,
		ProgressTracker: cfg.ProgressTracker,
		Concurrency:     cfg.Concurrency,
	})
	if err != nil {
		return nil, sftperrors.NewError("mirror", err)
	}

	return &sftptypes.MirrorResult{
		FilesDownloaded: result.FilesDownloaded,
		FilesSkipped:    result.FilesSkipped,
		FilesDeleted:    result.FilesDeleted,
		BytesDownloaded: result.BytesDownloaded,
		Errors:          result.Errors,
		Duration:        result.Duration,
	}, nil
}
