// Package upload handles remote file upload operations.
// This includes stream-based uploads and local file uploads.
//
// Uploads write sequentially: each chunk is acknowledged before the next is
// sent, which keeps the write path simple and the remote file consistent on
// failure.
package upload
