// Package errors provides error types and handling for SFTP operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents an SFTP operation error with context about the operation
// that failed. It wraps the underlying protocol or I/O error with additional
// context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "upload", "download", "rename")
	Op string

	// Path is the remote path the operation was acting on (if applicable)
	Path string

	// Err is the underlying error from the protocol layer or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("sftp.%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("sftp.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithPath adds remote path context to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewPathError creates a new Error with remote path context.
func NewPathError(op, path string, err error) *Error {
	return &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// Sentinel errors for common SFTP operation failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrTransport indicates a connection-level failure reported while a
	// request was outstanding
	ErrTransport = errors.New("sftp: transport failure")

	// ErrProtocolMismatch indicates the server's response disagrees with the
	// request (wrong payload length, unexpected packet type, bad version)
	ErrProtocolMismatch = errors.New("sftp: protocol mismatch")

	// ErrSizeMismatch indicates the bytes written by a transfer differ from
	// the declared remote file size
	ErrSizeMismatch = errors.New("sftp: size mismatch")

	// ErrCancelled indicates the operation observed external cancellation
	ErrCancelled = errors.New("sftp: transfer cancelled")

	// ErrNotFound indicates that the requested remote path does not exist
	ErrNotFound = errors.New("sftp: no such file")

	// ErrPermission indicates that access to the remote path is denied
	ErrPermission = errors.New("sftp: permission denied")

	// ErrNotConnected indicates the client's connection is closed
	ErrNotConnected = errors.New("sftp: not connected")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("sftp: invalid input")

	// ErrInvalidPath indicates that the remote path is malformed
	ErrInvalidPath = errors.New("sftp: invalid path")

	// ErrUnsupported indicates the server does not implement the request
	ErrUnsupported = errors.New("sftp: operation unsupported")
)

// IsTransport checks if an error indicates a transport-level failure.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsProtocolMismatch checks if an error indicates a request/response disagreement.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsProtocolMismatch(err error) bool {
	return errors.Is(err, ErrProtocolMismatch)
}

// IsSizeMismatch checks if an error indicates a final byte-count inconsistency.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsSizeMismatch(err error) bool {
	return errors.Is(err, ErrSizeMismatch)
}

// IsCancelled checks if an error indicates the operation was cancelled.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsNotFound checks if an error indicates that a remote path was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermission checks if an error indicates access was denied.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}

// IsInvalidInput checks if an error indicates invalid input.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
