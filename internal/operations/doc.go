// Package operations contains the core SFTP operation implementations.
// These functions handle the protocol interactions for basic remote file
// operations like upload, download, list, and remove.
//
// Each operation is isolated into its own subpackage for better organization
// and testability.
package operations
