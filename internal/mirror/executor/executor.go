// Package executor handles the parallel execution of mirror actions.
// This includes managing concurrency limits and coordinating multiple
// transfers over the shared connection.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/fs"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/planner"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// Executor runs mirror actions with bounded concurrency. Failures are
// collected per file so one bad path doesn't abandon the rest of the
// mirror; cancellation does stop everything.
type Executor struct {
	downloader *download.Downloader
	filesystem fs.Filesystem

	maxConcurrency int
	semaphore      chan struct{}

	downloadCfg     download.Config
	progressTracker sftptypes.ProgressTracker
}

// NewExecutor creates a new executor with the specified concurrency limit.
func NewExecutor(
	downloader *download.Downloader,
	filesystem fs.Filesystem,
	maxConcurrency int,
	downloadCfg download.Config,
) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = sftptypes.DefaultConcurrency
	}

	return &Executor{
		downloader:     downloader,
		filesystem:     filesystem,
		maxConcurrency: maxConcurrency,
		semaphore:      make(chan struct{}, maxConcurrency),
		downloadCfg:    downloadCfg,
	}
}

// WithProgressTracker sets the progress tracker for the executor.
// It receives cumulative bytes across all downloads.
func (e *Executor) WithProgressTracker(tracker sftptypes.ProgressTracker) *Executor {
	e.progressTracker = tracker
	return e
}

// Result contains the outcome of executed mirror actions.
type Result struct {
	// filesDownloaded counts successful downloads (atomic)
	filesDownloaded int64

	// filesDeleted counts removed local files (atomic)
	filesDeleted int64

	// bytesDownloaded is the cumulative downloaded byte count (atomic)
	bytesDownloaded int64

	// mu guards Errors
	mu sync.Mutex

	// Errors contains per-file failures
	Errors []sftptypes.MirrorError

	// Duration is how long the execution took
	Duration time.Duration
}

// FilesDownloaded returns the number of downloaded files.
func (r *Result) FilesDownloaded() int {
	return int(atomic.LoadInt64(&r.filesDownloaded))
}

// FilesDeleted returns the number of deleted local files.
func (r *Result) FilesDeleted() int {
	return int(atomic.LoadInt64(&r.filesDeleted))
}

// BytesDownloaded returns the cumulative downloaded bytes.
func (r *Result) BytesDownloaded() int64 {
	return atomic.LoadInt64(&r.bytesDownloaded)
}

func (r *Result) addError(path string, err error) {
	r.mu.Lock()
	r.Errors = append(r.Errors, sftptypes.MirrorError{
		Path:    path,
		Message: err.Error(),
	})
	r.mu.Unlock()
}

// Execute runs the plan's downloads concurrently, then its deletions.
// totalBytes feeds cumulative progress reporting.
func (e *Executor) Execute(
	ctx context.Context,
	actions []*planner.Action,
	totalBytes int64,
) (*Result, error) {
	startTime := time.Now()
	result := &Result{}

	var downloads, deletes []*planner.Action
	for _, action := range actions {
		switch action.Type {
		case planner.ActionDownload:
			downloads = append(downloads, action)
		case planner.ActionDeleteLocal:
			deletes = append(deletes, action)
		}
	}

	if err := e.executeDownloads(ctx, downloads, totalBytes, result); err != nil {
		result.Duration = time.Since(startTime)
		return result, err
	}

	// Deletions run after downloads so a failed transfer never leaves the
	// target both incomplete and pruned.
	for _, action := range deletes {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(startTime)
			return result, cancelled(err)
		}
		if err := e.filesystem.Remove(action.LocalPath); err != nil {
			result.addError(action.LocalPath, err)
			continue
		}
		atomic.AddInt64(&result.filesDeleted, 1)
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// executeDownloads fans downloads out over the semaphore.
func (e *Executor) executeDownloads(
	ctx context.Context,
	downloads []*planner.Action,
	totalBytes int64,
	result *Result,
) error {
	var wg sync.WaitGroup

	for _, action := range downloads {
		select {
		case e.semaphore <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return cancelled(ctx.Err())
		}

		wg.Add(1)
		go func(action *planner.Action) {
			defer func() {
				<-e.semaphore
				wg.Done()
			}()

			if ctx.Err() != nil {
				return
			}
			e.downloadOne(ctx, action, totalBytes, result)
		}(action)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	return nil
}

// cancelled wraps a context error as the module's cancellation kind.
func cancelled(err error) error {
	return fmt.Errorf("%w: %v", sftperrors.ErrCancelled, err)
}

// downloadOne transfers a single file into place.
func (e *Executor) downloadOne(
	ctx context.Context,
	action *planner.Action,
	totalBytes int64,
	result *Result,
) {
	if err := e.filesystem.MkdirAll(filepath.Dir(action.LocalPath), 0o755); err != nil {
		result.addError(action.RemotePath, err)
		return
	}

	res, err := e.downloader.DownloadFile(ctx, action.RemotePath, action.LocalPath, e.downloadCfg, time.Now())
	if err != nil {
		result.addError(action.RemotePath, err)
		return
	}

	atomic.AddInt64(&result.filesDownloaded, 1)
	downloaded := atomic.AddInt64(&result.bytesDownloaded, res.Size)
	if e.progressTracker != nil {
		e.progressTracker.Update(downloaded, totalBytes)
	}
}
