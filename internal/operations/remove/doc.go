// Package remove handles remote file and directory deletion.
// This includes single-file removal, empty-directory removal, and recursive
// tree deletion with bounded per-level concurrency.
package remove
