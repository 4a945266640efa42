// Package sftp provides a high-level Go module for SFTP file transfer.
// It implements the client side of the protocol directly over an SSH
// connection to give an intuitive interface for bulk file retrieval while
// maintaining flexibility for advanced use cases.
//
// The module emphasizes throughput on high-latency links: downloads keep a
// bounded window of read requests in flight and reassemble responses in
// offset order, so a single file saturates the connection without waiting
// one round trip per chunk.
//
// Key features:
//   - Simple connection setup with password or key authentication
//   - Progressive enhancement through functional options
//   - Pipelined downloads with a configurable request window
//   - Sequential uploads with progress tracking
//   - Comprehensive error handling with context
//   - Mirror functionality for remote-to-local directory trees
//
// Example usage:
//
//	client, err := sftp.Connect(ctx, "files.example.com", "deploy",
//	    sftp.WithPrivateKey(key))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	// Download a file
//	result, err := client.DownloadFile(ctx, "/srv/data/archive.tar", "/tmp/archive.tar")
//	if err != nil {
//	    return err
//	}
package sftp
