// Package wire implements the SFTP version 3 packet encoding: frame
// delimiting, field primitives, and typed marshal/unmarshal helpers for the
// request and reply packets the client issues. The package is purely
// concerned with bytes on the wire; request scheduling, correlation, and
// connection state live above it.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ProtocolVersion is the protocol revision this package speaks.
const ProtocolVersion = 3

// MaxPacket bounds a single inbound frame. Servers cap data replies well
// below this; anything larger indicates a corrupt or hostile stream.
const MaxPacket = 256*1024 + 1024

// Packet type identifiers, client to server.
const (
	PacketInit     = 1
	PacketOpen     = 3
	PacketClose    = 4
	PacketRead     = 5
	PacketWrite    = 6
	PacketLstat    = 7
	PacketFstat    = 8
	PacketSetstat  = 9
	PacketOpendir  = 11
	PacketReaddir  = 12
	PacketRemove   = 13
	PacketMkdir    = 14
	PacketRmdir    = 15
	PacketRealpath = 16
	PacketStat     = 17
	PacketRename   = 18
)

// Packet type identifiers, server to client.
const (
	PacketVersion = 2
	PacketStatus  = 101
	PacketHandle  = 102
	PacketData    = 103
	PacketName    = 104
	PacketAttrs   = 105
)

// WritePacket frames and writes one packet: a big-endian uint32 length
// covering the type byte and payload, the type byte, then the payload.
// Callers serialize concurrent writers.
func WritePacket(w io.Writer, typ byte, payload []byte) error {
	var hdr [5]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(payload)+1))
	hdr[4] = typ
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// ReadPacket reads one frame from r. The payload slice aliases scratch when
// it fits; callers that retain a payload past the next ReadPacket call must
// copy it out first. Stream-level read errors are returned unwrapped so the
// connection layer can distinguish clean closes.
func ReadPacket(r io.Reader, scratch []byte) (typ byte, payload []byte, err error) {
	var hdr [5]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	length := binary.BigEndian.Uint32(hdr[:4])
	if length == 0 {
		return 0, nil, fmt.Errorf("wire: zero-length frame")
	}
	if length > MaxPacket {
		return 0, nil, fmt.Errorf("wire: frame of %d bytes exceeds limit %d", length, MaxPacket)
	}
	typ = hdr[4]
	n := int(length - 1)
	if n <= cap(scratch) {
		payload = scratch[:n]
	} else {
		payload = make([]byte, n)
	}
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return typ, payload, nil
}

// AppendUint32 appends v in big-endian order.
func AppendUint32(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

// AppendUint64 appends v in big-endian order.
func AppendUint64(b []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(b, v)
}

// AppendString appends a uint32-length-prefixed string.
func AppendString(b []byte, s string) []byte {
	b = AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

// AppendBytes appends a uint32-length-prefixed byte string.
func AppendBytes(b, p []byte) []byte {
	b = AppendUint32(b, uint32(len(p)))
	return append(b, p...)
}

// ParseUint32 splits a big-endian uint32 off the front of b.
func ParseUint32(b []byte) (v uint32, rest []byte, ok bool) {
	if len(b) < 4 {
		return 0, nil, false
	}
	return binary.BigEndian.Uint32(b), b[4:], true
}

// ParseUint64 splits a big-endian uint64 off the front of b.
func ParseUint64(b []byte) (v uint64, rest []byte, ok bool) {
	if len(b) < 8 {
		return 0, nil, false
	}
	return binary.BigEndian.Uint64(b), b[8:], true
}

// ParseString splits a uint32-length-prefixed byte string off the front of b.
// The returned slice aliases b.
func ParseString(b []byte) (s, rest []byte, ok bool) {
	n, rest, ok := ParseUint32(b)
	if !ok || uint32(len(rest)) < n {
		return nil, nil, false
	}
	return rest[:n], rest[n:], true
}

// ParseID splits the request id off the front of a reply payload.
func ParseID(payload []byte) (id uint32, rest []byte, ok bool) {
	return ParseUint32(payload)
}

// TypeName returns a readable name for a packet type, for logs and errors.
func TypeName(typ byte) string {
	switch typ {
	case PacketInit:
		return "INIT"
	case PacketVersion:
		return "VERSION"
	case PacketOpen:
		return "OPEN"
	case PacketClose:
		return "CLOSE"
	case PacketRead:
		return "READ"
	case PacketWrite:
		return "WRITE"
	case PacketLstat:
		return "LSTAT"
	case PacketFstat:
		return "FSTAT"
	case PacketSetstat:
		return "SETSTAT"
	case PacketOpendir:
		return "OPENDIR"
	case PacketReaddir:
		return "READDIR"
	case PacketRemove:
		return "REMOVE"
	case PacketMkdir:
		return "MKDIR"
	case PacketRmdir:
		return "RMDIR"
	case PacketRealpath:
		return "REALPATH"
	case PacketStat:
		return "STAT"
	case PacketRename:
		return "RENAME"
	case PacketStatus:
		return "STATUS"
	case PacketHandle:
		return "HANDLE"
	case PacketData:
		return "DATA"
	case PacketName:
		return "NAME"
	case PacketAttrs:
		return "ATTRS"
	default:
		return fmt.Sprintf("type %d", typ)
	}
}

var errShortPacket = fmt.Errorf("wire: truncated packet")
