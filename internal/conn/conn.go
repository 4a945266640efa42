// Package conn implements the logical SFTP connection: the version
// handshake, request id allocation, serialized packet writes, and a reader
// goroutine that demultiplexes replies to their waiters by request id. All
// higher layers — the operation helpers and the windowed transfer engine —
// share one Conn and stay isolated through their id routes.
package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/wire"
)

// Msg is one demultiplexed reply. Exactly one of the payload views is
// meaningful for a given Type: Code/Text for STATUS, Data for DATA, Rest for
// HANDLE, NAME and ATTRS replies.
type Msg struct {
	Type byte
	ID   uint32

	// Code and Text carry a decoded STATUS reply.
	Code uint32
	Text string

	// Data carries a DATA reply in a pooled buffer; consumers that are done
	// with it call Release.
	Data []byte

	// Rest is the undecoded payload after the request id for the remaining
	// reply types.
	Rest []byte
}

// Release returns the pooled data buffer, if any. Safe to call repeatedly.
func (m *Msg) Release() {
	if m.Data != nil {
		pool.PutBuffer(m.Data)
		m.Data = nil
	}
}

// statusErr converts a STATUS Msg to an error: nil for OK, io.EOF for EOF,
// a wire.StatusError otherwise.
func (m *Msg) statusErr() error {
	switch m.Code {
	case wire.StatusOK:
		return nil
	case wire.StatusEOF:
		return io.EOF
	default:
		return &wire.StatusError{Code: m.Code, Message: m.Text}
	}
}

// Conn is a logical SFTP connection over a byte stream, typically the
// stdin/stdout pipes of an SSH "sftp" subsystem. Methods are safe for
// concurrent use; packet writes are serialized and replies are routed by id.
type Conn struct {
	rwc    io.ReadWriteCloser
	logger *slog.Logger

	reqID uint32 // atomic

	wmu sync.Mutex // serializes frame writes

	mu      sync.Mutex
	waiters map[uint32]chan<- Msg
	down    bool
	cause   error

	done       chan struct{}
	readerDone chan struct{}
}

// New performs the version handshake over rwc and starts the reply reader.
// The connection takes ownership of rwc and closes it on teardown.
func New(rwc io.ReadWriteCloser, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := wire.WritePacket(rwc, wire.PacketInit, wire.MarshalInit()); err != nil {
		rwc.Close()
		return nil, fmt.Errorf("%w: send init: %v", sftperrors.ErrTransport, err)
	}
	typ, payload, err := wire.ReadPacket(rwc, nil)
	if err != nil {
		rwc.Close()
		return nil, fmt.Errorf("%w: read version: %v", sftperrors.ErrTransport, err)
	}
	if typ != wire.PacketVersion {
		rwc.Close()
		return nil, fmt.Errorf("%w: expected VERSION, got %s", sftperrors.ErrProtocolMismatch, wire.TypeName(typ))
	}
	version, err := wire.DecodeVersion(payload)
	if err != nil {
		rwc.Close()
		return nil, fmt.Errorf("%w: %v", sftperrors.ErrProtocolMismatch, err)
	}
	if version < wire.ProtocolVersion {
		rwc.Close()
		return nil, fmt.Errorf("%w: server speaks version %d, need %d",
			sftperrors.ErrProtocolMismatch, version, wire.ProtocolVersion)
	}
	c := &Conn{
		rwc:        rwc,
		logger:     logger,
		waiters:    make(map[uint32]chan<- Msg),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close tears the connection down. Outstanding waiters fail with
// ErrNotConnected. Safe to call more than once.
func (c *Conn) Close() error {
	c.teardown(sftperrors.ErrNotConnected)
	<-c.readerDone
	return nil
}

func (c *Conn) teardown(cause error) {
	c.mu.Lock()
	if c.down {
		c.mu.Unlock()
		return
	}
	c.down = true
	c.cause = cause
	c.waiters = nil
	c.mu.Unlock()
	close(c.done)
	c.rwc.Close()
}

// downErr maps the teardown cause to the error surfaced to callers.
func (c *Conn) downErr() error {
	c.mu.Lock()
	cause := c.cause
	c.mu.Unlock()
	if cause == nil || errors.Is(cause, sftperrors.ErrNotConnected) {
		return sftperrors.ErrNotConnected
	}
	return fmt.Errorf("%w: %v", sftperrors.ErrTransport, cause)
}

func (c *Conn) allocID() uint32 {
	return atomic.AddUint32(&c.reqID, 1)
}

// register routes the reply for id to ch. Routes deliver once.
func (c *Conn) register(id uint32, ch chan<- Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return c.cause
	}
	c.waiters[id] = ch
	return nil
}

func (c *Conn) deregister(id uint32) {
	c.mu.Lock()
	delete(c.waiters, id)
	c.mu.Unlock()
}

// send writes one framed packet. A write failure is fatal to the connection.
func (c *Conn) send(typ byte, payload []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	select {
	case <-c.done:
		return c.downErr()
	default:
	}
	if err := wire.WritePacket(c.rwc, typ, payload); err != nil {
		c.teardown(err)
		return c.downErr()
	}
	return nil
}

// readLoop reads frames until the stream dies, decoding and routing each
// reply to its registered waiter. Replies with no waiter are dropped: they
// belong to abandoned requests or to nobody, and matching is the receiver's
// concern, not the reader's.
func (c *Conn) readLoop() {
	defer close(c.readerDone)
	scratch := pool.GetFrameBuffer()
	scratch = scratch[:cap(scratch)]
	defer pool.PutFrameBuffer(scratch)
	for {
		typ, payload, err := wire.ReadPacket(c.rwc, scratch)
		if err != nil {
			c.teardown(err)
			return
		}
		id, rest, ok := wire.ParseID(payload)
		if !ok {
			c.teardown(fmt.Errorf("truncated %s reply", wire.TypeName(typ)))
			return
		}
		m := Msg{Type: typ, ID: id}
		switch typ {
		case wire.PacketStatus:
			code, text, derr := wire.DecodeStatus(rest)
			if derr != nil {
				c.teardown(derr)
				return
			}
			m.Code, m.Text = code, text
		case wire.PacketData:
			data, derr := wire.DecodeData(rest)
			if derr != nil {
				c.teardown(derr)
				return
			}
			buf := pool.GetBuffer(len(data))[:len(data)]
			copy(buf, data)
			m.Data = buf
		case wire.PacketHandle, wire.PacketName, wire.PacketAttrs:
			m.Rest = append([]byte(nil), rest...)
		default:
			c.logger.Debug("sftp: dropping unexpected packet",
				"type", wire.TypeName(typ), "id", id)
			continue
		}
		c.deliver(m)
	}
}

func (c *Conn) deliver(m Msg) {
	c.mu.Lock()
	ch, ok := c.waiters[m.ID]
	if ok {
		delete(c.waiters, m.ID)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("sftp: dropping reply with no waiter",
			"type", wire.TypeName(m.Type), "id", m.ID)
		m.Release()
		return
	}
	select {
	case ch <- m:
	default:
		// A full route buffer means the server answered requests we never
		// issued; the reader must not stall the whole connection for it.
		c.logger.Debug("sftp: dropping reply, route buffer full",
			"type", wire.TypeName(m.Type), "id", m.ID)
		m.Release()
	}
}

// request sends one packet and waits for its single reply.
func (c *Conn) request(ctx context.Context, typ byte, id uint32, payload []byte) (Msg, error) {
	ch := make(chan Msg, 1)
	if err := c.register(id, ch); err != nil {
		return Msg{}, c.downErr()
	}
	if err := c.send(typ, payload); err != nil {
		c.deregister(id)
		return Msg{}, err
	}
	select {
	case m := <-ch:
		return m, nil
	case <-c.done:
		return Msg{}, c.downErr()
	case <-ctx.Done():
		c.deregister(id)
		return Msg{}, fmt.Errorf("%w: %v", sftperrors.ErrCancelled, ctx.Err())
	}
}

// expectStatus returns the error a STATUS reply encodes, or a protocol
// mismatch for any other reply type.
func expectStatus(m Msg) error {
	if m.Type != wire.PacketStatus {
		m.Release()
		return fmt.Errorf("%w: expected STATUS, got %s", sftperrors.ErrProtocolMismatch, wire.TypeName(m.Type))
	}
	return m.statusErr()
}

// Open opens a remote file and returns its handle.
func (c *Conn) Open(ctx context.Context, path string, pflags uint32, a wire.Attrs) (string, error) {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketOpen, id, wire.MarshalOpen(id, path, pflags, a))
	if err != nil {
		return "", err
	}
	if m.Type == wire.PacketStatus {
		return "", m.statusErr()
	}
	if m.Type != wire.PacketHandle {
		m.Release()
		return "", fmt.Errorf("%w: expected HANDLE, got %s", sftperrors.ErrProtocolMismatch, wire.TypeName(m.Type))
	}
	return wire.DecodeHandle(m.Rest)
}

// OpenDir opens a remote directory for reading and returns its handle.
func (c *Conn) OpenDir(ctx context.Context, path string) (string, error) {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketOpendir, id, wire.MarshalPath(id, path))
	if err != nil {
		return "", err
	}
	if m.Type == wire.PacketStatus {
		return "", m.statusErr()
	}
	if m.Type != wire.PacketHandle {
		m.Release()
		return "", fmt.Errorf("%w: expected HANDLE, got %s", sftperrors.ErrProtocolMismatch, wire.TypeName(m.Type))
	}
	return wire.DecodeHandle(m.Rest)
}

// CloseHandle releases a remote file or directory handle.
func (c *Conn) CloseHandle(ctx context.Context, handle string) error {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketClose, id, wire.MarshalPath(id, handle))
	if err != nil {
		return err
	}
	return expectStatus(m)
}

// Stat returns the attributes of the file at path, following symlinks.
func (c *Conn) Stat(ctx context.Context, path string) (wire.Attrs, error) {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketStat, id, wire.MarshalPath(id, path))
	if err != nil {
		return wire.Attrs{}, err
	}
	if m.Type == wire.PacketStatus {
		return wire.Attrs{}, m.statusErr()
	}
	if m.Type != wire.PacketAttrs {
		m.Release()
		return wire.Attrs{}, fmt.Errorf("%w: expected ATTRS, got %s", sftperrors.ErrProtocolMismatch, wire.TypeName(m.Type))
	}
	return wire.DecodeAttrsReply(m.Rest)
}

// FStat returns the attributes of an open handle.
func (c *Conn) FStat(ctx context.Context, handle string) (wire.Attrs, error) {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketFstat, id, wire.MarshalPath(id, handle))
	if err != nil {
		return wire.Attrs{}, err
	}
	if m.Type == wire.PacketStatus {
		return wire.Attrs{}, m.statusErr()
	}
	if m.Type != wire.PacketAttrs {
		m.Release()
		return wire.Attrs{}, fmt.Errorf("%w: expected ATTRS, got %s", sftperrors.ErrProtocolMismatch, wire.TypeName(m.Type))
	}
	return wire.DecodeAttrsReply(m.Rest)
}

// ReadDirPage reads one page of directory entries from an open directory
// handle. io.EOF signals the end of the listing.
func (c *Conn) ReadDirPage(ctx context.Context, handle string) ([]wire.NameEntry, error) {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketReaddir, id, wire.MarshalPath(id, handle))
	if err != nil {
		return nil, err
	}
	if m.Type == wire.PacketStatus {
		return nil, m.statusErr()
	}
	if m.Type != wire.PacketName {
		m.Release()
		return nil, fmt.Errorf("%w: expected NAME, got %s", sftperrors.ErrProtocolMismatch, wire.TypeName(m.Type))
	}
	return wire.DecodeNamePage(m.Rest)
}

// RealPath canonicalizes a path server-side.
func (c *Conn) RealPath(ctx context.Context, path string) (string, error) {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketRealpath, id, wire.MarshalPath(id, path))
	if err != nil {
		return "", err
	}
	if m.Type == wire.PacketStatus {
		return "", m.statusErr()
	}
	if m.Type != wire.PacketName {
		m.Release()
		return "", fmt.Errorf("%w: expected NAME, got %s", sftperrors.ErrProtocolMismatch, wire.TypeName(m.Type))
	}
	entries, err := wire.DecodeNamePage(m.Rest)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: empty REALPATH reply", sftperrors.ErrProtocolMismatch)
	}
	return entries[0].Filename, nil
}

// Remove deletes a remote file.
func (c *Conn) Remove(ctx context.Context, path string) error {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketRemove, id, wire.MarshalPath(id, path))
	if err != nil {
		return err
	}
	return expectStatus(m)
}

// Rmdir deletes a remote directory.
func (c *Conn) Rmdir(ctx context.Context, path string) error {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketRmdir, id, wire.MarshalPath(id, path))
	if err != nil {
		return err
	}
	return expectStatus(m)
}

// Mkdir creates a remote directory.
func (c *Conn) Mkdir(ctx context.Context, path string, a wire.Attrs) error {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketMkdir, id, wire.MarshalMkdir(id, path, a))
	if err != nil {
		return err
	}
	return expectStatus(m)
}

// Rename moves a remote file or directory.
func (c *Conn) Rename(ctx context.Context, oldPath, newPath string) error {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketRename, id, wire.MarshalRename(id, oldPath, newPath))
	if err != nil {
		return err
	}
	return expectStatus(m)
}

// WriteChunk writes data at offset through an open handle and waits for the
// server's acknowledgement.
func (c *Conn) WriteChunk(ctx context.Context, handle string, offset uint64, data []byte) error {
	id := c.allocID()
	m, err := c.request(ctx, wire.PacketWrite, id, wire.MarshalWrite(id, handle, offset, data))
	if err != nil {
		return err
	}
	return expectStatus(m)
}
