// Package download handles remote file download operations.
// This includes stream-based downloads, file downloads, and in-memory reads.
//
// Downloads are pipelined: the remote file's size is taken up front, split
// into fixed-length chunks, and a bounded window of read requests is kept in
// flight while responses are reassembled in offset order.
package download
