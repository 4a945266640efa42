package wire

import (
	"fmt"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
)

// Status codes carried by STATUS replies.
const (
	StatusOK               = 0
	StatusEOF              = 1
	StatusNoSuchFile       = 2
	StatusPermissionDenied = 3
	StatusFailure          = 4
	StatusBadMessage       = 5
	StatusNoConnection     = 6
	StatusConnectionLost   = 7
	StatusOpUnsupported    = 8
)

// StatusError is a non-OK STATUS reply from the server. It matches the
// package sentinels through errors.Is so callers never inspect raw codes.
type StatusError struct {
	Code    uint32
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server status %s: %s", statusName(e.Code), e.Message)
	}
	return fmt.Sprintf("server status %s", statusName(e.Code))
}

// Is maps status codes onto the package's sentinel errors.
func (e *StatusError) Is(target error) bool {
	switch target {
	case sftperrors.ErrNotFound:
		return e.Code == StatusNoSuchFile
	case sftperrors.ErrPermission:
		return e.Code == StatusPermissionDenied
	case sftperrors.ErrUnsupported:
		return e.Code == StatusOpUnsupported
	case sftperrors.ErrTransport:
		return e.Code == StatusNoConnection || e.Code == StatusConnectionLost
	}
	return false
}

func statusName(code uint32) string {
	switch code {
	case StatusOK:
		return "SSH_FX_OK"
	case StatusEOF:
		return "SSH_FX_EOF"
	case StatusNoSuchFile:
		return "SSH_FX_NO_SUCH_FILE"
	case StatusPermissionDenied:
		return "SSH_FX_PERMISSION_DENIED"
	case StatusFailure:
		return "SSH_FX_FAILURE"
	case StatusBadMessage:
		return "SSH_FX_BAD_MESSAGE"
	case StatusNoConnection:
		return "SSH_FX_NO_CONNECTION"
	case StatusConnectionLost:
		return "SSH_FX_CONNECTION_LOST"
	case StatusOpUnsupported:
		return "SSH_FX_OP_UNSUPPORTED"
	default:
		return fmt.Sprintf("code %d", code)
	}
}
