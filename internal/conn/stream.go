package conn

import (
	"context"
	"fmt"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/wire"
)

// Stream routes the replies for many outstanding read requests to a single
// buffered channel, delivered in arrival order. It is the connection-side
// half of the windowed download engine's transport: the engine issues reads
// through SendRead and consumes whatever arrives through Next, in whatever
// order the server produced it.
//
// A Stream belongs to exactly one control loop; its methods are not safe for
// concurrent use. Many Streams may share one Conn.
type Stream struct {
	c  *Conn
	ch chan Msg

	ids map[uint32]struct{}
}

// NewStream creates a reply stream. capacity must cover the caller's whole
// request window so the connection reader never has to drop a routed reply.
func (c *Conn) NewStream(capacity int) *Stream {
	return &Stream{
		c:   c,
		ch:  make(chan Msg, capacity),
		ids: make(map[uint32]struct{}),
	}
}

// SendRead issues a READ for length bytes at offset and returns the request
// id. It never waits for the response.
func (s *Stream) SendRead(handle string, offset uint64, length uint32) (uint32, error) {
	id := s.c.allocID()
	if err := s.c.register(id, s.ch); err != nil {
		return 0, s.c.downErr()
	}
	if err := s.c.send(wire.PacketRead, wire.MarshalRead(id, handle, offset, length)); err != nil {
		s.c.deregister(id)
		return 0, err
	}
	s.ids[id] = struct{}{}
	return id, nil
}

// Next returns the next reply in arrival order. It blocks until a reply
// arrives, the context is cancelled, or the connection goes down.
func (s *Stream) Next(ctx context.Context) (Msg, error) {
	select {
	case m := <-s.ch:
		delete(s.ids, m.ID)
		return m, nil
	case <-s.c.done:
		return Msg{}, s.c.downErr()
	case <-ctx.Done():
		return Msg{}, fmt.Errorf("%w: %v", sftperrors.ErrCancelled, ctx.Err())
	}
}

// Close abandons the stream's outstanding requests and releases any replies
// still buffered. Late replies for abandoned ids are dropped by the reader.
func (s *Stream) Close() {
	for id := range s.ids {
		s.c.deregister(id)
	}
	s.ids = nil
	for {
		select {
		case m := <-s.ch:
			m.Release()
		default:
			return
		}
	}
}

// Err converts a stream Msg into the engine's view of a response error:
// nil for DATA replies, the decoded status error for STATUS replies, and a
// protocol mismatch for anything else.
func (m *Msg) Err() error {
	switch m.Type {
	case wire.PacketData:
		return nil
	case wire.PacketStatus:
		err := m.statusErr()
		if err == nil {
			// A bare OK in answer to a READ carries no data; the server is
			// not speaking the protocol we asked for.
			return fmt.Errorf("%w: OK status for a read request", sftperrors.ErrProtocolMismatch)
		}
		return err
	default:
		return fmt.Errorf("%w: unexpected %s reply to a read request", sftperrors.ErrProtocolMismatch, wire.TypeName(m.Type))
	}
}
