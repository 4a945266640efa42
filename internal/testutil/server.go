// Package testutil provides test utilities and fakes for SFTP operations.
// This package is internal and should only be used for testing within the
// SFTP module.
package testutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/wire"
)

// readDirPageSize is how many entries a READDIR reply carries at most.
const readDirPageSize = 100

// Server is an in-process SFTP version 3 server backed by an in-memory
// filesystem. It speaks the real wire protocol over a net.Pipe, which lets
// connection and operation tests run against genuine packet exchanges
// without a network or an external daemon.
//
// Fault injection is configured through ServerOption values before the
// server starts serving. All requests are handled on a single goroutine, so
// reply reordering is deterministic.
type Server struct {
	// FS is the filesystem the server exposes. Seed it before connecting.
	FS fs.Filesystem

	handles    map[string]*serverHandle
	nextHandle int

	reorderDepth int
	pending      []reply

	readFailures map[uint64]uint32
	openFailures map[string]uint32
	statSizes    map[string]uint64
	truncateAt   int

	readCount int64

	done chan struct{}
}

// serverHandle is one open file or directory handle.
type serverHandle struct {
	path    string
	file    fs.File
	entries []wire.NameEntry
	pos     int
}

// reply is a queued response awaiting a reorder flush.
type reply struct {
	typ     byte
	payload []byte
}

// ServerOption configures a Server before it starts serving.
type ServerOption func(*Server)

// WithReadFailureAt makes READ requests at the given offset fail with the
// given status code.
func WithReadFailureAt(offset uint64, code uint32) ServerOption {
	return func(s *Server) {
		s.readFailures[offset] = code
	}
}

// WithOpenFailure makes OPEN requests for the given path fail with the
// given status code.
func WithOpenFailure(path string, code uint32) ServerOption {
	return func(s *Server) {
		s.openFailures[path] = code
	}
}

// WithReportedSize makes STAT and FSTAT report the given size for the path
// instead of the real one. Useful for provoking size disagreements.
func WithReportedSize(path string, size uint64) ServerOption {
	return func(s *Server) {
		s.statSizes[path] = size
	}
}

// WithReorderDepth makes the server hold up to depth READ replies and
// release them in reverse arrival order, exercising response correlation.
func WithReorderDepth(depth int) ServerOption {
	return func(s *Server) {
		s.reorderDepth = depth
	}
}

// WithTruncatedReads caps every DATA reply at max bytes regardless of the
// requested length, exercising the client's length checking.
func WithTruncatedReads(max int) ServerOption {
	return func(s *Server) {
		s.truncateAt = max
	}
}

// StartServer starts an in-process server and returns it together with the
// client side of the pipe. The server stops when either side closes; cleanup
// is registered on t.
func StartServer(t testing.TB, opts ...ServerOption) (*Server, net.Conn) {
	t.Helper()

	clientConn, serverConn := net.Pipe()
	s := &Server{
		FS:           billy.NewInMemoryFS(),
		handles:      make(map[string]*serverHandle),
		readFailures: make(map[uint64]uint32),
		openFailures: make(map[string]uint32),
		statSizes:    make(map[string]uint64),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.serve(serverConn)
	t.Cleanup(func() {
		_ = clientConn.Close()
		_ = serverConn.Close()
		<-s.done
	})
	return s, clientConn
}

// Seed writes content at the given path, creating parent directories.
func (s *Server) Seed(filePath string, content []byte) error {
	if err := s.FS.MkdirAll(path.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("seed %s: %w", filePath, err)
	}
	if err := s.FS.WriteFile(filePath, content, 0o644); err != nil {
		return fmt.Errorf("seed %s: %w", filePath, err)
	}
	return nil
}

// SeedTree writes every entry of tree under root.
func (s *Server) SeedTree(root string, tree map[string][]byte) error {
	for rel, content := range tree {
		if err := s.Seed(path.Join(root, rel), content); err != nil {
			return err
		}
	}
	return nil
}

// Reads returns how many READ requests the server has received.
func (s *Server) Reads() int64 {
	return atomic.LoadInt64(&s.readCount)
}

// serve runs the request loop until the pipe closes.
func (s *Server) serve(conn net.Conn) {
	defer close(s.done)
	defer conn.Close() //nolint:errcheck // test harness teardown

	scratch := make([]byte, 64*1024)
	for {
		typ, payload, err := wire.ReadPacket(conn, scratch)
		if err != nil {
			return
		}
		if err := s.handle(conn, typ, payload); err != nil {
			return
		}
	}
}

// handle dispatches one request packet and writes its reply.
func (s *Server) handle(w io.Writer, typ byte, payload []byte) error {
	if typ == wire.PacketInit {
		return wire.WritePacket(w, wire.PacketVersion, wire.MarshalVersion())
	}

	id, rest, ok := wire.ParseID(payload)
	if !ok {
		return fmt.Errorf("testutil: truncated %s packet", wire.TypeName(typ))
	}

	// A non-READ request means the client is past pipelined reading; release
	// anything the reorder buffer still holds so neither side stalls.
	if typ != wire.PacketRead {
		if err := s.flushPending(w); err != nil {
			return err
		}
	}

	switch typ {
	case wire.PacketOpen:
		return s.handleOpen(w, id, rest)
	case wire.PacketClose:
		return s.handleClose(w, id, rest)
	case wire.PacketRead:
		return s.handleRead(w, id, rest)
	case wire.PacketWrite:
		return s.handleWrite(w, id, rest)
	case wire.PacketStat, wire.PacketLstat:
		return s.handleStat(w, id, rest)
	case wire.PacketFstat:
		return s.handleFstat(w, id, rest)
	case wire.PacketOpendir:
		return s.handleOpenDir(w, id, rest)
	case wire.PacketReaddir:
		return s.handleReadDir(w, id, rest)
	case wire.PacketRealpath:
		return s.handleRealPath(w, id, rest)
	case wire.PacketRemove:
		return s.handleRemove(w, id, rest)
	case wire.PacketMkdir:
		return s.handleMkdir(w, id, rest)
	case wire.PacketRmdir:
		return s.handleRmdir(w, id, rest)
	case wire.PacketRename:
		return s.handleRename(w, id, rest)
	default:
		return s.status(w, id, wire.StatusOpUnsupported, "unsupported request")
	}
}

func (s *Server) handleOpen(w io.Writer, id uint32, rest []byte) error {
	req, err := wire.DecodeOpen(rest)
	if err != nil {
		return err
	}
	if code, ok := s.openFailures[req.Path]; ok {
		return s.status(w, id, code, "injected open failure")
	}

	perm := os.FileMode(0o644)
	if req.Attrs.Flags&wire.AttrPermissions != 0 {
		perm = req.Attrs.FileMode().Perm()
	}
	f, err := s.FS.OpenFile(req.Path, osFlags(req.Pflags), perm)
	if err != nil {
		return s.statusFromErr(w, id, err)
	}

	h := s.addHandle(&serverHandle{path: req.Path, file: f})
	return wire.WritePacket(w, wire.PacketHandle, wire.MarshalHandle(id, h))
}

func (s *Server) handleClose(w io.Writer, id uint32, rest []byte) error {
	handleID, err := wire.DecodePath(rest)
	if err != nil {
		return err
	}
	h, ok := s.handles[handleID]
	if !ok {
		return s.status(w, id, wire.StatusFailure, "unknown handle")
	}
	delete(s.handles, handleID)
	if h.file != nil {
		if err := h.file.Close(); err != nil {
			return s.statusFromErr(w, id, err)
		}
	}
	return s.status(w, id, wire.StatusOK, "")
}

func (s *Server) handleRead(w io.Writer, id uint32, rest []byte) error {
	handleID, offset, length, err := wire.DecodeRead(rest)
	if err != nil {
		return err
	}
	atomic.AddInt64(&s.readCount, 1)

	r, tail := s.readReply(id, handleID, offset, length)
	return s.sendRead(w, r, tail)
}

// readReply builds the DATA or STATUS reply for one READ and reports
// whether the read reaches the end of the file, which forces a reorder
// flush so the exchange cannot stall on a partially filled buffer.
func (s *Server) readReply(id uint32, handleID string, offset uint64, length uint32) (reply, bool) {
	if code, ok := s.readFailures[offset]; ok {
		return reply{wire.PacketStatus, wire.MarshalStatus(id, code, "injected read failure")}, false
	}

	h, ok := s.handles[handleID]
	if !ok || h.file == nil {
		return reply{wire.PacketStatus, wire.MarshalStatus(id, wire.StatusFailure, "unknown handle")}, true
	}

	size := uint64(0)
	if fi, err := s.FS.Stat(h.path); err == nil {
		size = uint64(fi.Size())
	}
	if reported, ok := s.statSizes[h.path]; ok {
		size = reported
	}
	tail := offset+uint64(length) >= size

	buf := make([]byte, length)
	n, err := h.file.ReadAt(buf, int64(offset))
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return reply{wire.PacketStatus, wire.MarshalStatus(id, wire.StatusEOF, "end of file")}, true
		}
		return reply{wire.PacketStatus, wire.MarshalStatus(id, statusCode(err), err.Error())}, true
	}
	if s.truncateAt > 0 && n > s.truncateAt {
		n = s.truncateAt
	}
	return reply{wire.PacketData, wire.MarshalData(id, buf[:n])}, tail
}

// sendRead queues r behind the reorder buffer when one is configured.
func (s *Server) sendRead(w io.Writer, r reply, tail bool) error {
	if s.reorderDepth <= 1 {
		return wire.WritePacket(w, r.typ, r.payload)
	}
	s.pending = append(s.pending, r)
	if len(s.pending) >= s.reorderDepth || tail {
		return s.flushPending(w)
	}
	return nil
}

// flushPending writes buffered replies newest first.
func (s *Server) flushPending(w io.Writer) error {
	for i := len(s.pending) - 1; i >= 0; i-- {
		if err := wire.WritePacket(w, s.pending[i].typ, s.pending[i].payload); err != nil {
			return err
		}
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *Server) handleWrite(w io.Writer, id uint32, rest []byte) error {
	handleID, offset, data, err := wire.DecodeWrite(rest)
	if err != nil {
		return err
	}
	h, ok := s.handles[handleID]
	if !ok || h.file == nil {
		return s.status(w, id, wire.StatusFailure, "unknown handle")
	}
	if _, err := h.file.Seek(int64(offset), io.SeekStart); err != nil {
		return s.statusFromErr(w, id, err)
	}
	if _, err := h.file.Write(data); err != nil {
		return s.statusFromErr(w, id, err)
	}
	return s.status(w, id, wire.StatusOK, "")
}

func (s *Server) handleStat(w io.Writer, id uint32, rest []byte) error {
	p, err := wire.DecodePath(rest)
	if err != nil {
		return err
	}
	return s.statReply(w, id, p)
}

func (s *Server) handleFstat(w io.Writer, id uint32, rest []byte) error {
	handleID, err := wire.DecodePath(rest)
	if err != nil {
		return err
	}
	h, ok := s.handles[handleID]
	if !ok {
		return s.status(w, id, wire.StatusFailure, "unknown handle")
	}
	return s.statReply(w, id, h.path)
}

func (s *Server) statReply(w io.Writer, id uint32, p string) error {
	fi, err := s.FS.Stat(p)
	if err != nil {
		return s.statusFromErr(w, id, err)
	}
	a := wire.AttrsFromFileInfo(fi)
	if reported, ok := s.statSizes[p]; ok {
		a.Size = reported
	}
	return wire.WritePacket(w, wire.PacketAttrs, wire.MarshalAttrsReply(id, a))
}

func (s *Server) handleOpenDir(w io.Writer, id uint32, rest []byte) error {
	p, err := wire.DecodePath(rest)
	if err != nil {
		return err
	}
	fi, err := s.FS.Stat(p)
	if err != nil {
		return s.statusFromErr(w, id, err)
	}
	if !fi.IsDir() {
		return s.status(w, id, wire.StatusFailure, "not a directory")
	}

	infos, err := s.FS.ReadDir(p)
	if err != nil {
		return s.statusFromErr(w, id, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	entries := make([]wire.NameEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, wire.NameEntry{
			Filename: info.Name(),
			Longname: info.Name(),
			Attrs:    wire.AttrsFromFileInfo(info),
		})
	}

	h := s.addHandle(&serverHandle{path: p, entries: entries})
	return wire.WritePacket(w, wire.PacketHandle, wire.MarshalHandle(id, h))
}

func (s *Server) handleReadDir(w io.Writer, id uint32, rest []byte) error {
	handleID, err := wire.DecodePath(rest)
	if err != nil {
		return err
	}
	h, ok := s.handles[handleID]
	if !ok || h.file != nil {
		return s.status(w, id, wire.StatusFailure, "unknown handle")
	}
	if h.pos >= len(h.entries) {
		return s.status(w, id, wire.StatusEOF, "end of directory")
	}
	end := h.pos + readDirPageSize
	if end > len(h.entries) {
		end = len(h.entries)
	}
	page := h.entries[h.pos:end]
	h.pos = end
	return wire.WritePacket(w, wire.PacketName, wire.MarshalName(id, page))
}

func (s *Server) handleRealPath(w io.Writer, id uint32, rest []byte) error {
	p, err := wire.DecodePath(rest)
	if err != nil {
		return err
	}
	abs := p
	if !path.IsAbs(abs) {
		abs = "/" + abs
	}
	abs = path.Clean(abs)
	entry := wire.NameEntry{Filename: abs, Longname: abs}
	return wire.WritePacket(w, wire.PacketName, wire.MarshalName(id, []wire.NameEntry{entry}))
}

func (s *Server) handleRemove(w io.Writer, id uint32, rest []byte) error {
	p, err := wire.DecodePath(rest)
	if err != nil {
		return err
	}
	fi, err := s.FS.Stat(p)
	if err != nil {
		return s.statusFromErr(w, id, err)
	}
	if fi.IsDir() {
		return s.status(w, id, wire.StatusFailure, "is a directory")
	}
	if err := s.FS.Remove(p); err != nil {
		return s.statusFromErr(w, id, err)
	}
	return s.status(w, id, wire.StatusOK, "")
}

func (s *Server) handleMkdir(w io.Writer, id uint32, rest []byte) error {
	p, a, err := wire.DecodeMkdir(rest)
	if err != nil {
		return err
	}
	perm := os.FileMode(0o755)
	if a.Flags&wire.AttrPermissions != 0 {
		perm = a.FileMode().Perm()
	}
	if err := s.FS.MkdirAll(p, perm); err != nil {
		return s.statusFromErr(w, id, err)
	}
	return s.status(w, id, wire.StatusOK, "")
}

func (s *Server) handleRmdir(w io.Writer, id uint32, rest []byte) error {
	p, err := wire.DecodePath(rest)
	if err != nil {
		return err
	}
	fi, err := s.FS.Stat(p)
	if err != nil {
		return s.statusFromErr(w, id, err)
	}
	if !fi.IsDir() {
		return s.status(w, id, wire.StatusFailure, "not a directory")
	}
	if infos, err := s.FS.ReadDir(p); err == nil && len(infos) > 0 {
		return s.status(w, id, wire.StatusFailure, "directory not empty")
	}
	if err := s.FS.Remove(p); err != nil {
		return s.statusFromErr(w, id, err)
	}
	return s.status(w, id, wire.StatusOK, "")
}

func (s *Server) handleRename(w io.Writer, id uint32, rest []byte) error {
	oldPath, newPath, err := wire.DecodeRename(rest)
	if err != nil {
		return err
	}
	fi, err := s.FS.Stat(oldPath)
	if err != nil {
		return s.statusFromErr(w, id, err)
	}
	if fi.IsDir() {
		return s.status(w, id, wire.StatusOpUnsupported, "directory rename not supported")
	}
	data, err := s.FS.ReadFile(oldPath)
	if err != nil {
		return s.statusFromErr(w, id, err)
	}
	if err := s.FS.MkdirAll(path.Dir(newPath), 0o755); err != nil {
		return s.statusFromErr(w, id, err)
	}
	if err := s.FS.WriteFile(newPath, data, fi.Mode().Perm()); err != nil {
		return s.statusFromErr(w, id, err)
	}
	if err := s.FS.Remove(oldPath); err != nil {
		return s.statusFromErr(w, id, err)
	}
	return s.status(w, id, wire.StatusOK, "")
}

func (s *Server) addHandle(h *serverHandle) string {
	s.nextHandle++
	id := fmt.Sprintf("h%d", s.nextHandle)
	s.handles[id] = h
	return id
}

func (s *Server) status(w io.Writer, id, code uint32, msg string) error {
	return wire.WritePacket(w, wire.PacketStatus, wire.MarshalStatus(id, code, msg))
}

func (s *Server) statusFromErr(w io.Writer, id uint32, err error) error {
	return s.status(w, id, statusCode(err), err.Error())
}

// statusCode maps a filesystem error onto the protocol status it would
// produce on a real server.
func statusCode(err error) uint32 {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return wire.StatusNoSuchFile
	case errors.Is(err, os.ErrPermission):
		return wire.StatusPermissionDenied
	default:
		return wire.StatusFailure
	}
}

// osFlags converts protocol open flags to os.OpenFile flags.
func osFlags(pflags uint32) int {
	var flag int
	switch {
	case pflags&wire.OpenRead != 0 && pflags&wire.OpenWrite != 0:
		flag = os.O_RDWR
	case pflags&wire.OpenWrite != 0:
		flag = os.O_WRONLY
	default:
		flag = os.O_RDONLY
	}
	if pflags&wire.OpenAppend != 0 {
		flag |= os.O_APPEND
	}
	if pflags&wire.OpenCreate != 0 {
		flag |= os.O_CREATE
	}
	if pflags&wire.OpenTruncate != 0 {
		flag |= os.O_TRUNC
	}
	if pflags&wire.OpenExclusive != 0 {
		flag |= os.O_EXCL
	}
	return flag
}
