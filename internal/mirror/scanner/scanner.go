// Package scanner handles remote and local filesystem scanning.
// This includes walking remote directory trees and local mirror targets.
//
// The scanner provides a unified interface for discovering files on both
// sides of a mirror.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/conn"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// Scanner discovers files on both sides of a mirror.
type Scanner struct {
	lister         *list.Lister
	filesystem     fs.Filesystem
	patternMatcher *PatternMatcher
}

// NewScanner creates a new scanner over the given connection and local
// filesystem.
func NewScanner(c *conn.Conn, filesystem fs.Filesystem, logger *slog.Logger) *Scanner {
	return &Scanner{
		lister:         list.New(c, logger),
		filesystem:     filesystem,
		patternMatcher: NewPatternMatcher(),
	}
}

// ScanRemote walks the remote tree rooted at remotePath and returns every
// regular file passing the include/exclude patterns. Paths in the result are
// absolute remote paths.
func (s *Scanner) ScanRemote(
	ctx context.Context,
	remotePath string,
	includePatterns []string,
	excludePatterns []string,
) ([]*sftptypes.RemoteFile, error) {
	var files []*sftptypes.RemoteFile

	err := s.lister.Walk(ctx, remotePath, func(entry sftptypes.FileInfo) error {
		if entry.IsDir {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relPath := RelativeRemote(remotePath, entry.Path)
		if !s.patternMatcher.ShouldIncludeFile(relPath, includePatterns, excludePatterns) {
			return nil
		}

		files = append(files, &sftptypes.RemoteFile{
			Path:    entry.Path,
			Size:    entry.Size,
			ModTime: entry.ModTime,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk remote directory %s: %w", remotePath, err)
	}

	return files, nil
}

// ScanLocal walks the local mirror target and returns every regular file.
// A missing root is an empty result, not an error: the first mirror into a
// fresh directory starts from nothing.
func (s *Scanner) ScanLocal(ctx context.Context, localPath string) ([]*sftptypes.LocalFile, error) {
	if exists, err := s.filesystem.Exists(localPath); err != nil || !exists {
		return nil, err
	}

	var files []*sftptypes.LocalFile
	err := s.filesystem.Walk(localPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		files = append(files, &sftptypes.LocalFile{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk local directory %s: %w", localPath, err)
	}

	return files, nil
}

// RelativeRemote returns the slash-separated path of p relative to root.
func RelativeRemote(root, p string) string {
	rel := strings.TrimPrefix(p, root)
	return strings.TrimPrefix(rel, "/")
}

// RelativeLocal returns the slash-separated path of p relative to root, or
// "" when p is not under root.
func RelativeLocal(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}
