package remove

import (
	"context"
	"log/slog"
	"sync"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/conn"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// Remover handles remote deletion operations.
type Remover struct {
	conn   *conn.Conn
	lister *list.Lister
	logger *slog.Logger
}

// New creates a new Remover instance.
func New(c *conn.Conn, logger *slog.Logger) *Remover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remover{
		conn:   c,
		lister: list.New(c, logger),
		logger: logger,
	}
}

// Remove deletes a single remote file.
func (r *Remover) Remove(ctx context.Context, path string) error {
	if err := r.conn.Remove(ctx, path); err != nil {
		return sftperrors.NewPathError("remove", path, err)
	}
	return nil
}

// RemoveDir deletes an empty remote directory.
func (r *Remover) RemoveDir(ctx context.Context, path string) error {
	if err := r.conn.Rmdir(ctx, path); err != nil {
		return sftperrors.NewPathError("removeDir", path, err)
	}
	return nil
}

// RemoveAll deletes the remote path and, for directories, everything under
// it. Files within one directory level are deleted concurrently with up to
// concurrency workers; a path that doesn't exist is not an error.
func (r *Remover) RemoveAll(ctx context.Context, path string, concurrency int) error {
	attrs, err := r.conn.Stat(ctx, path)
	if err != nil {
		if sftperrors.IsNotFound(err) {
			return nil
		}
		return sftperrors.NewPathError("removeAll", path, err)
	}

	if !attrs.IsDir() {
		return r.Remove(ctx, path)
	}
	return r.removeTree(ctx, path, concurrency)
}

// removeTree empties dirPath depth-first and then removes it.
func (r *Remover) removeTree(ctx context.Context, dirPath string, concurrency int) error {
	entries, err := r.lister.List(ctx, dirPath, false)
	if err != nil {
		return err
	}

	var files []sftptypes.FileInfo
	for _, entry := range entries {
		if entry.IsDir {
			// Subtrees go one at a time; their own levels fan out again.
			if err := r.removeTree(ctx, entry.Path, concurrency); err != nil {
				return err
			}
			continue
		}
		files = append(files, entry)
	}

	if err := r.removeFiles(ctx, files, concurrency); err != nil {
		return err
	}

	r.logger.Debug("removing directory", "path", dirPath)
	return r.RemoveDir(ctx, dirPath)
}

// removeFiles deletes one level's files through a bounded worker pool,
// keeping the first error.
func (r *Remover) removeFiles(ctx context.Context, files []sftptypes.FileInfo, concurrency int) error {
	if len(files) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, file := range files {
		mu.Lock()
		failed := firstErr != nil
		mu.Unlock()
		if failed {
			break
		}

		wg.Add(1)
		sem <- struct{}{} // Acquire semaphore

		go func(path string) {
			defer func() {
				<-sem // Release semaphore
				wg.Done()
			}()

			if err := ctx.Err(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = sftperrors.NewPathError("removeAll", path, sftperrors.ErrCancelled)
				}
				mu.Unlock()
				return
			}
			if err := r.Remove(ctx, path); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(file.Path)
	}

	wg.Wait()
	return firstErr
}
