// Package internal contains private implementation details for the SFTP module.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - wire: Packet encoding and decoding for the file transfer protocol
//   - conn: The shared connection, request correlation, and reply routing
//   - transfer: Chunk planning and the windowed download engine
//   - operations: Core remote file operation implementations
//   - mirror: Remote-to-local directory mirroring
//   - validation: Input validation logic
//   - pool: Memory management optimizations
package internal
