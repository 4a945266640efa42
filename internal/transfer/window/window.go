// Package window implements the windowed, pipelined download engine: a
// bounded number of read requests kept in flight over a shared connection,
// responses correlated back to their chunks in arrival order, and payloads
// written to the sink strictly by offset.
//
// One control loop owns all transfer state. The transport delivers responses
// through a channel handoff, so no fine-grained locking is needed; ordering
// guarantees stay auditable: requests go out in increasing offset order,
// responses resolve in any order, bytes land in the sink in offset order.
package window

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/transfer/planner"
)

// State is the phase a transfer session is in.
type State uint8

// Session states. Terminal states are Completed and Failed.
const (
	StatePlanning State = iota
	StateTransferring
	StateCompleted
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePlanning:
		return "planning"
	case StateTransferring:
		return "transferring"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Config parameterizes one transfer session.
type Config struct {
	// FileSize is the declared size of the remote file, known before the
	// transfer starts
	FileSize uint64

	// ChunkLength is the read request size; the final chunk may be shorter
	ChunkLength uint32

	// MaxInFlight bounds the number of unresolved requests
	MaxInFlight int

	// Progress, when set, receives cumulative bytes written after each flush
	Progress func(written, total int64)

	// Logger receives debug-level scheduling events; nil means slog.Default
	Logger *slog.Logger

	// TransferID tags the session's log lines so interleaved transfers stay
	// attributable
	TransferID string
}

// Result reports how a session ended.
type Result struct {
	// BytesWritten is the total the sink accepted
	BytesWritten int64

	// State is the terminal state, Completed or Failed
	State State
}

// pendingRequest tracks one issued read until its response resolves it.
type pendingRequest struct {
	offset uint64
	length uint32
}

// session is the whole transfer state, mutated only by the control loop.
type session struct {
	cfg    Config
	t      Transport
	sink   io.Writer
	plan   *planner.Plan
	logger *slog.Logger

	state    State
	inFlight map[uint32]pendingRequest
	pending  map[uint64][]byte
	cursor   uint64
	written  int64
	termErr  error
}

// Download runs one windowed transfer: it plans cfg.FileSize into chunks,
// keeps up to cfg.MaxInFlight read requests outstanding on t, and writes the
// payloads to sink in strict offset order. It returns the bytes written and
// the terminal state; err is non-nil exactly when the state is Failed.
//
// The engine never retries: the first fatal condition — a transport failure,
// a response length disagreeing with its request, cancellation, or a final
// byte count differing from cfg.FileSize — ends the transfer, and later
// errors for other in-flight requests are discarded to keep the root cause.
func Download(ctx context.Context, t Transport, sink io.Writer, cfg Config) (Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TransferID != "" {
		logger = logger.With("transfer", cfg.TransferID)
	}
	s := &session{
		cfg:      cfg,
		t:        t,
		sink:     sink,
		logger:   logger,
		state:    StatePlanning,
		inFlight: make(map[uint32]pendingRequest),
		pending:  make(map[uint64][]byte),
	}
	err := s.run(ctx)
	return Result{BytesWritten: s.written, State: s.state}, err
}

// run drives the session through its states.
func (s *session) run(ctx context.Context) error {
	defer s.releasePending()

	// Planning: the preconditions the loop depends on.
	if err := s.validate(); err != nil {
		return s.fail(err)
	}
	s.plan = planner.New(s.cfg.FileSize, s.cfg.ChunkLength)
	s.state = StateTransferring
	s.logger.Debug("transfer started",
		"size", s.cfg.FileSize, "chunk", s.cfg.ChunkLength, "window", s.cfg.MaxInFlight)

	for {
		if err := ctx.Err(); err != nil {
			return s.fail(cancelled(err))
		}

		// Fill the request window.
		for {
			dispatched, err := s.tryDispatchNext()
			if err != nil {
				return s.fail(err)
			}
			if !dispatched {
				break
			}
		}

		// Complete exactly when everything is written and nothing is owed.
		if s.cursor == s.cfg.FileSize && len(s.inFlight) == 0 {
			break
		}

		resp, err := s.t.Next(ctx)
		if err != nil {
			return s.fail(nextErr(err))
		}
		s.correlate(resp)
		s.drain()

		if s.termErr != nil {
			s.state = StateFailed
			return s.termErr
		}
	}

	s.state = StateCompleted
	// The loop's bookkeeping should make this impossible; a mismatch means
	// the sink did not accept what the protocol delivered.
	if s.written != int64(s.cfg.FileSize) {
		return s.fail(fmt.Errorf("%w: wrote %d bytes, remote file has %d",
			sftperrors.ErrSizeMismatch, s.written, s.cfg.FileSize))
	}
	s.logger.Debug("transfer completed", "written", s.written)
	return nil
}

// validate checks the session preconditions.
func (s *session) validate() error {
	if s.t == nil || s.sink == nil {
		return fmt.Errorf("%w: transport and sink are required", sftperrors.ErrInvalidInput)
	}
	if s.cfg.ChunkLength == 0 {
		return fmt.Errorf("%w: chunk length must be positive", sftperrors.ErrInvalidInput)
	}
	if s.cfg.MaxInFlight < 1 {
		return fmt.Errorf("%w: max in-flight must be at least 1", sftperrors.ErrInvalidInput)
	}
	return nil
}

// tryDispatchNext issues the next planned chunk if the window has room.
// It returns false when the window is full or all chunks are requested,
// which is the caller's cue to wait for responses.
func (s *session) tryDispatchNext() (bool, error) {
	if len(s.inFlight) >= s.cfg.MaxInFlight {
		return false, nil
	}
	chunk, ok := s.plan.Next()
	if !ok {
		return false, nil
	}
	id, err := s.t.ReadRequest(chunk.Offset, chunk.Length)
	if err != nil {
		return false, err
	}
	s.inFlight[id] = pendingRequest{offset: chunk.Offset, length: chunk.Length}
	s.logger.Debug("dispatched read", "id", id, "offset", chunk.Offset, "length", chunk.Length)
	return true, nil
}

// correlate resolves one response against the in-flight window. Responses
// whose id matches nothing are ignored: they belong to abandoned requests,
// duplicates, or other users of the shared connection.
func (s *session) correlate(resp Response) {
	pr, ok := s.inFlight[resp.ID]
	if !ok {
		s.logger.Debug("ignoring response with no matching request", "id", resp.ID)
		releasePayload(resp.Payload)
		return
	}
	delete(s.inFlight, resp.ID)

	if resp.Err != nil {
		releasePayload(resp.Payload)
		// EOF for an in-range chunk means the remote file shrank after its
		// size was read; classify it like any other length disagreement.
		if errors.Is(resp.Err, io.EOF) {
			s.setErr(fmt.Errorf("%w: read at offset %d hit end of file, requested %d bytes",
				sftperrors.ErrProtocolMismatch, pr.offset, pr.length))
			return
		}
		s.setErr(fmt.Errorf("chunk at offset %d: %w", pr.offset, resp.Err))
		return
	}
	if uint32(len(resp.Payload)) != pr.length {
		got := len(resp.Payload)
		releasePayload(resp.Payload)
		s.setErr(fmt.Errorf("%w: read at offset %d returned %d bytes, requested %d",
			sftperrors.ErrProtocolMismatch, pr.offset, got, pr.length))
		return
	}
	s.pending[pr.offset] = resp.Payload
}

// drain flushes buffered chunks at the write cursor until it hits a gap.
// A gap is expected: the chunk for it is in flight or not yet dispatched.
func (s *session) drain() {
	for {
		payload, ok := s.pending[s.cursor]
		if !ok {
			return
		}
		delete(s.pending, s.cursor)
		n, err := s.sink.Write(payload)
		s.written += int64(n)
		s.cursor += uint64(len(payload))
		releasePayload(payload)
		if err != nil {
			s.setErr(fmt.Errorf("write to sink at offset %d: %w", s.cursor-uint64(n), err))
			return
		}
		if s.cfg.Progress != nil {
			s.cfg.Progress(s.written, int64(s.cfg.FileSize))
		}
	}
}

// setErr records the first fatal error; later ones are deliberately dropped
// so the root cause is what surfaces.
func (s *session) setErr(err error) {
	if s.termErr == nil {
		s.termErr = err
		return
	}
	s.logger.Debug("suppressing subsequent error", "err", err)
}

// fail moves the session to its failed state, keeping the first error.
func (s *session) fail(err error) error {
	s.setErr(err)
	s.state = StateFailed
	s.logger.Debug("transfer failed", "state", s.state, "err", s.termErr)
	return s.termErr
}

// releasePending returns buffered payloads on every exit path; outstanding
// requests are abandoned, never awaited.
func (s *session) releasePending() {
	for off, payload := range s.pending {
		delete(s.pending, off)
		releasePayload(payload)
	}
}

func releasePayload(p []byte) {
	if p != nil {
		pool.PutBuffer(p)
	}
}

// cancelled wraps a context error as the engine's cancellation kind.
func cancelled(err error) error {
	return fmt.Errorf("%w: %v", sftperrors.ErrCancelled, err)
}

// nextErr classifies a Next failure: cancellation stays cancellation,
// everything else that is not already classified is a transport loss.
func nextErr(err error) error {
	switch {
	case errors.Is(err, sftperrors.ErrCancelled):
		return err
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return cancelled(err)
	case errors.Is(err, sftperrors.ErrTransport) || errors.Is(err, sftperrors.ErrNotConnected):
		return err
	default:
		return fmt.Errorf("%w: %v", sftperrors.ErrTransport, err)
	}
}
