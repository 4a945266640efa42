// Package testutil provides SFTP server integration test utilities.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Credentials the containerized server is provisioned with.
const (
	ContainerUser     = "forge"
	ContainerPassword = "forge-secret"
)

// containerImage is the OpenSSH-based SFTP server used for integration tests.
const containerImage = "atmoz/sftp:alpine"

// SFTPContainer wraps a containerized SFTP server for testing.
type SFTPContainer struct {
	container testcontainers.Container
	host      string
	port      int
}

// NewSFTPContainer creates and starts a new SFTP server container. The user
// lands in a chrooted home directory with a writable upload subdirectory.
func NewSFTPContainer(ctx context.Context, t *testing.T) (*SFTPContainer, error) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        containerImage,
		ExposedPorts: []string{"22/tcp"},
		Cmd:          []string{fmt.Sprintf("%s:%s:1001::upload", ContainerUser, ContainerPassword)},
		WaitingFor: wait.ForListeningPort("22/tcp").
			WithStartupTimeout(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start SFTP container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "22")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &SFTPContainer{
		container: container,
		host:      host,
		port:      port.Int(),
	}, nil
}

// Host returns the address the mapped SFTP port listens on.
func (c *SFTPContainer) Host() string {
	return c.host
}

// Port returns the mapped SFTP port.
func (c *SFTPContainer) Port() int {
	return c.port
}

// UploadDir returns the writable directory inside the user's chroot.
func (c *SFTPContainer) UploadDir() string {
	return "/upload"
}

// Terminate stops and removes the container.
func (c *SFTPContainer) Terminate(ctx context.Context) error {
	if c.container != nil {
		if err := c.container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate container: %w", err)
		}
	}
	return nil
}

// SetupContainerTest is a helper that starts an SFTP server for a test.
// It returns the container and a cleanup function that should be deferred.
func SetupContainerTest(t *testing.T) (*SFTPContainer, func()) {
	t.Helper()

	// Skip if running in CI without Docker
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := NewSFTPContainer(ctx, t)
	if err != nil {
		t.Fatalf("Failed to start SFTP container: %v", err)
	}

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate SFTP container: %v", err)
		}
	}

	return container, cleanup
}
