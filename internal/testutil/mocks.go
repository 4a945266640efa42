// Package testutil provides test utilities and fakes for SFTP operations.
// This package is internal and should only be used for testing within the
// SFTP module.
package testutil

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/transfer/window"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// MockTransport is a mock implementation of the download engine's Transport
// interface. It allows customization of each method through function fields.
type MockTransport struct {
	ReadRequestFunc func(offset uint64, length uint32) (uint32, error)
	NextFunc        func(ctx context.Context) (window.Response, error)
}

// ReadRequest mocks issuing a pipelined read request.
func (m *MockTransport) ReadRequest(offset uint64, length uint32) (uint32, error) {
	if m.ReadRequestFunc != nil {
		return m.ReadRequestFunc(offset, length)
	}
	return 0, nil
}

// Next mocks receiving the next response in arrival order.
func (m *MockTransport) Next(ctx context.Context) (window.Response, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx)
	}
	return window.Response{}, ctx.Err()
}

// Ensure MockTransport implements the Transport interface.
var _ window.Transport = (*MockTransport)(nil)

// MockComparator is a mock implementation of FileComparator for testing.
type MockComparator struct {
	HasChangedFunc func(remote *sftptypes.RemoteFile, local *sftptypes.LocalFile) bool
}

// HasChanged mocks the change decision; the default reports every file as
// changed.
func (m *MockComparator) HasChanged(remote *sftptypes.RemoteFile, local *sftptypes.LocalFile) bool {
	if m.HasChangedFunc != nil {
		return m.HasChangedFunc(remote, local)
	}
	return true
}

// Ensure MockComparator implements the FileComparator interface.
var _ sftptypes.FileComparator = (*MockComparator)(nil)
