// Package validation provides centralized input validation logic.
// This includes remote path validation, transfer tuning bounds, and glob
// pattern checks.
//
// All user inputs are validated before any packet is sent so malformed
// requests fail fast on the client instead of surfacing as opaque server
// status codes.
package validation

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/wire"
)

// MaxPathLength bounds remote path length. SFTP carries paths as
// length-prefixed strings, but most servers reject anything near this.
const MaxPathLength = 4096

// MaxChunkLength is the largest read or write request the wire layer can
// frame. Requests above it would exceed the packet size limit once the
// header and handle are added.
const MaxChunkLength = uint32(wire.MaxPacket - 1024)

// ValidateRemotePath validates a remote file or directory path.
// Returns ErrInvalidPath when the path is empty, oversized, or contains
// characters no server-side filesystem accepts.
func ValidateRemotePath(p string) error {
	if p == "" {
		return errors.NewError("validatePath", errors.ErrInvalidPath).
			WithMessage("remote path cannot be empty")
	}

	if len(p) > MaxPathLength {
		return errors.NewError("validatePath", errors.ErrInvalidPath).
			WithPath(p).
			WithMessage(fmt.Sprintf("remote path cannot exceed %d bytes", MaxPathLength))
	}

	if strings.ContainsRune(p, 0) {
		return errors.NewError("validatePath", errors.ErrInvalidPath).
			WithPath(p).
			WithMessage("remote path cannot contain NUL bytes")
	}

	if hasControlCharacters(p) {
		return errors.NewError("validatePath", errors.ErrInvalidPath).
			WithPath(p).
			WithMessage("remote path cannot contain control characters")
	}

	return nil
}

// ValidateLocalPath validates a local file path used as a transfer source
// or destination.
func ValidateLocalPath(p string) error {
	if p == "" {
		return errors.NewError("validatePath", errors.ErrInvalidPath).
			WithMessage("local path cannot be empty")
	}

	if strings.ContainsRune(p, 0) {
		return errors.NewError("validatePath", errors.ErrInvalidPath).
			WithPath(p).
			WithMessage("local path cannot contain NUL bytes")
	}

	return nil
}

// ValidateChunkLength validates a transfer chunk length against the wire
// layer's framing limit.
func ValidateChunkLength(length uint32) error {
	if length == 0 {
		return errors.NewError("validateChunkLength", errors.ErrInvalidInput).
			WithMessage("chunk length must be positive")
	}

	if length > MaxChunkLength {
		return errors.NewError("validateChunkLength", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("chunk length %d exceeds the %d byte packet limit", length, MaxChunkLength))
	}

	return nil
}

// ValidateMaxInFlight validates a download request window size.
func ValidateMaxInFlight(n int) error {
	if n < 1 {
		return errors.NewError("validateMaxInFlight", errors.ErrInvalidInput).
			WithMessage("max in-flight requests must be at least 1")
	}

	return nil
}

// ValidateConcurrency validates a worker count for batch operations.
func ValidateConcurrency(n int) error {
	if n < 1 {
		return errors.NewError("validateConcurrency", errors.ErrInvalidInput).
			WithMessage("concurrency must be at least 1")
	}

	return nil
}

// ValidatePatterns validates glob patterns for mirror filtering.
// Each pattern must be accepted by path.Match.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if pattern == "" {
			return errors.NewError("validatePatterns", errors.ErrInvalidInput).
				WithMessage("pattern cannot be empty")
		}
		if _, err := path.Match(pattern, ""); err != nil {
			return errors.NewError("validatePatterns", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("malformed pattern %q", pattern))
		}
	}

	return nil
}

// hasControlCharacters checks for control characters in the path
func hasControlCharacters(p string) bool {
	for _, char := range p {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
