// Package sftp provides client initialization and configuration.
//
// The Client provides a high-level interface for remote file transfer over
// SSH, supporting operations like upload, download, list, remove, and mirror
// with configurable options for performance tuning and error handling.
package sftp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/conn"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// Client represents an SFTP client bound to one server connection.
// It provides thread-safe access to remote file operations with built-in
// request pipelining, concurrency control, and progress tracking.
type Client struct {
	// conn is the protocol connection shared by all operations
	conn *conn.Conn

	// sshClient and session back the connection when Connect built it;
	// both are nil for clients created over a caller-provided transport
	sshClient *ssh.Client
	session   *ssh.Session

	// cfg holds the merged client configuration
	cfg sftptypes.ClientConfig

	// logger receives connection and transfer events
	logger *slog.Logger

	// mu protects the working directory and filesystem swap
	mu sync.RWMutex

	// fs is the filesystem abstraction for local file operations
	fs fs.Filesystem

	// cwd is the resolved remote working directory
	cwd string
}

// Connect dials host as user, opens the SFTP subsystem, and performs the
// protocol handshake. Authentication uses the password and private key
// options; host key verification is required unless explicitly disabled.
//
// Example:
//
//	client, err := sftp.Connect(ctx, "files.example.com", "deploy",
//	    sftp.WithPrivateKey(key),
//	    sftp.WithHostKeyCallback(hostKeys),
//	)
func Connect(ctx context.Context, host, user string, opts ...sftptypes.Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.User = user

	if err := validateConnectConfig(&cfg); err != nil {
		return nil, err
	}

	auth, err := authMethods(&cfg)
	if err != nil {
		return nil, err
	}

	sshCfg := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: cfg.HostKeyCallback,
		Timeout:         cfg.DialTimeout,
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", cfg.Port))
	sshClient, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, errors.NewError("connect", err).
			WithMessage(fmt.Sprintf("dial %s", addr))
	}

	session, pipe, err := openSubsystem(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, err
	}

	client, err := newClient(ctx, pipe, cfg)
	if err != nil {
		_ = session.Close()
		_ = sshClient.Close()
		return nil, err
	}
	client.sshClient = sshClient
	client.session = session
	return client, nil
}

// NewWithConn creates a client over a caller-provided transport already
// speaking the SFTP subsystem. This is primarily used for testing with
// in-memory servers, and for callers that manage their own SSH connection.
func NewWithConn(ctx context.Context, rwc io.ReadWriteCloser, opts ...sftptypes.Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newClient(ctx, rwc, cfg)
}

// newClient performs the handshake and resolves the initial working directory.
func newClient(ctx context.Context, rwc io.ReadWriteCloser, cfg sftptypes.ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	protoConn, err := conn.New(rwc, logger)
	if err != nil {
		return nil, errors.NewError("connect", err)
	}

	filesystem := cfg.Filesystem
	if filesystem == nil {
		// Default to OS filesystem rooted at /
		filesystem = billy.NewOSFS("/")
	}

	client := &Client{
		conn:   protoConn,
		cfg:    cfg,
		logger: logger,
		fs:     filesystem,
	}

	cwd, err := protoConn.RealPath(ctx, ".")
	if err != nil {
		_ = protoConn.Close()
		return nil, errors.NewError("connect", err).
			WithMessage("resolve initial working directory")
	}
	client.cwd = cwd

	logger.Debug("connected", "cwd", cwd)
	return client, nil
}

// SetFilesystem sets the filesystem implementation for local file operations.
// This is useful for testing or when the filesystem needs to be changed after creation.
func (c *Client) SetFilesystem(filesystem fs.Filesystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fs = filesystem
}

// Close shuts down the protocol connection and the SSH session under it.
// In-flight operations fail with a not-connected error.
func (c *Client) Close() error {
	err := c.conn.Close()
	if c.session != nil {
		_ = c.session.Close()
	}
	if c.sshClient != nil {
		if closeErr := c.sshClient.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// filesystem returns the current local filesystem abstraction.
func (c *Client) filesystem() fs.Filesystem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fs
}

// defaultConfig returns the client configuration before options are applied.
func defaultConfig() sftptypes.ClientConfig {
	return sftptypes.ClientConfig{
		Port:        sftptypes.DefaultPort,
		DialTimeout: sftptypes.DefaultDialTimeout,
		ChunkLength: sftptypes.DefaultChunkLength,
		MaxInFlight: sftptypes.DefaultMaxInFlight,
		Concurrency: sftptypes.DefaultConcurrency,
	}
}

// validateConnectConfig checks the parts of the configuration Connect
// depends on before any network traffic.
func validateConnectConfig(cfg *sftptypes.ClientConfig) error {
	if cfg.User == "" {
		return errors.NewError("connect", errors.ErrInvalidInput).
			WithMessage("user cannot be empty")
	}
	if cfg.Password == "" && len(cfg.PrivateKey) == 0 {
		return errors.NewError("connect", errors.ErrInvalidInput).
			WithMessage("either a password or a private key is required")
	}
	if cfg.HostKeyCallback == nil {
		return errors.NewError("connect", errors.ErrInvalidInput).
			WithMessage("host key verification is required; use WithHostKeyCallback or WithInsecureIgnoreHostKey")
	}
	return nil
}

// authMethods builds the SSH authentication chain from the configuration.
// Key authentication is offered before the password when both are present.
func authMethods(cfg *sftptypes.ClientConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if len(cfg.PrivateKey) > 0 {
		var signer ssh.Signer
		var err error
		if len(cfg.Passphrase) > 0 {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(cfg.PrivateKey, cfg.Passphrase)
		} else {
			signer, err = ssh.ParsePrivateKey(cfg.PrivateKey)
		}
		if err != nil {
			return nil, errors.NewError("connect", err).
				WithMessage("parse private key")
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}

	return methods, nil
}

// openSubsystem starts the SFTP subsystem on a fresh SSH session and returns
// its stdio as one transport.
func openSubsystem(sshClient *ssh.Client) (*ssh.Session, io.ReadWriteCloser, error) {
	session, err := sshClient.NewSession()
	if err != nil {
		return nil, nil, errors.NewError("connect", err).
			WithMessage("open SSH session")
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, nil, errors.NewError("connect", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, nil, errors.NewError("connect", err)
	}

	if err := session.RequestSubsystem("sftp"); err != nil {
		_ = session.Close()
		return nil, nil, errors.NewError("connect", err).
			WithMessage("request sftp subsystem")
	}

	return session, &sessionPipe{session: session, in: stdin, out: stdout}, nil
}

// sessionPipe joins a session's stdio into the single transport the
// connection layer reads and writes.
type sessionPipe struct {
	session *ssh.Session
	in      io.WriteCloser
	out     io.Reader
}

func (p *sessionPipe) Read(b []byte) (int, error)  { return p.out.Read(b) }
func (p *sessionPipe) Write(b []byte) (int, error) { return p.in.Write(b) }

func (p *sessionPipe) Close() error {
	_ = p.in.Close()
	return p.session.Close()
}
