package window_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/transfer/window"
)

// fakeTransport answers read requests from an in-memory byte slice. Every
// request produces its response immediately; an optional reorder buffer
// releases responses in reverse arrival order to exercise correlation.
type fakeTransport struct {
	data         []byte
	failAt       map[uint64]error
	shortAt      map[uint64]int
	reorderDepth int
	duplicate    bool

	mu             sync.Mutex
	nextID         uint32
	queue          []window.Response
	hold           []window.Response
	outstanding    int
	maxOutstanding int
	requests       int
}

func (f *fakeTransport) ReadRequest(offset uint64, length uint32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	f.requests++
	f.outstanding++
	if f.outstanding > f.maxOutstanding {
		f.maxOutstanding = f.outstanding
	}

	resp := window.Response{ID: id}
	switch {
	case f.failAt[offset] != nil:
		resp.Err = f.failAt[offset]
	default:
		end := offset + uint64(length)
		if end > uint64(len(f.data)) {
			end = uint64(len(f.data))
		}
		payload := append([]byte(nil), f.data[offset:end]...)
		if n, ok := f.shortAt[offset]; ok && len(payload) > n {
			payload = payload[:n]
		}
		resp.Payload = payload
	}

	f.hold = append(f.hold, resp)
	if f.duplicate {
		dup := resp
		if resp.Payload != nil {
			dup.Payload = append([]byte(nil), resp.Payload...)
		}
		f.hold = append(f.hold, dup)
	}
	if f.reorderDepth <= 1 || len(f.hold) >= f.reorderDepth {
		f.flushLocked()
	}
	return id, nil
}

// flushLocked releases held responses newest first.
func (f *fakeTransport) flushLocked() {
	for i := len(f.hold) - 1; i >= 0; i-- {
		f.queue = append(f.queue, f.hold[i])
	}
	f.hold = f.hold[:0]
}

func (f *fakeTransport) Next(ctx context.Context) (window.Response, error) {
	if err := ctx.Err(); err != nil {
		return window.Response{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		f.flushLocked()
	}
	if len(f.queue) == 0 {
		return window.Response{}, errors.New("no response pending")
	}
	resp := f.queue[0]
	f.queue = f.queue[1:]
	f.outstanding--
	return resp, nil
}

func TestDownload(t *testing.T) {
	t.Run("reassembles out-of-order responses in offset order", func(t *testing.T) {
		content := testutil.GenerateContent(1, 1000)
		transport := &fakeTransport{data: content, reorderDepth: 3}
		var sink bytes.Buffer

		result, err := window.Download(context.Background(), transport, &sink, window.Config{
			FileSize:    1000,
			ChunkLength: 100,
			MaxInFlight: 4,
		})

		require.NoError(t, err)
		assert.Equal(t, window.StateCompleted, result.State)
		assert.Equal(t, int64(1000), result.BytesWritten)
		assert.Equal(t, content, sink.Bytes())
		assert.Equal(t, 10, transport.requests)
	})

	t.Run("never exceeds the in-flight window", func(t *testing.T) {
		content := testutil.GenerateContent(2, 4096)
		transport := &fakeTransport{data: content, reorderDepth: 2}
		var sink bytes.Buffer

		_, err := window.Download(context.Background(), transport, &sink, window.Config{
			FileSize:    4096,
			ChunkLength: 128,
			MaxInFlight: 5,
		})

		require.NoError(t, err)
		assert.LessOrEqual(t, transport.maxOutstanding, 5)
		assert.GreaterOrEqual(t, transport.maxOutstanding, 2)
	})

	t.Run("progress is cumulative and monotonic", func(t *testing.T) {
		content := testutil.GenerateContent(3, 500)
		transport := &fakeTransport{data: content, reorderDepth: 3}
		var sink bytes.Buffer

		var updates []int64
		_, err := window.Download(context.Background(), transport, &sink, window.Config{
			FileSize:    500,
			ChunkLength: 64,
			MaxInFlight: 4,
			Progress: func(written, total int64) {
				assert.Equal(t, int64(500), total)
				updates = append(updates, written)
			},
		})

		require.NoError(t, err)
		require.NotEmpty(t, updates)
		for i := 1; i < len(updates); i++ {
			assert.Greater(t, updates[i], updates[i-1])
		}
		assert.Equal(t, int64(500), updates[len(updates)-1])
	})

	t.Run("first server error wins and fails the session", func(t *testing.T) {
		content := testutil.GenerateContent(4, 1000)
		transport := &fakeTransport{
			data: content,
			failAt: map[uint64]error{
				300: sftperrors.ErrPermission,
				600: errors.New("later failure"),
			},
		}
		var sink bytes.Buffer

		result, err := window.Download(context.Background(), transport, &sink, window.Config{
			FileSize:    1000,
			ChunkLength: 100,
			MaxInFlight: 4,
		})

		require.Error(t, err)
		assert.Equal(t, window.StateFailed, result.State)
		assert.ErrorIs(t, err, sftperrors.ErrPermission)
		assert.Contains(t, err.Error(), "offset 300")
		assert.NotContains(t, err.Error(), "later failure")
	})

	t.Run("short response payload is a protocol mismatch", func(t *testing.T) {
		content := testutil.GenerateContent(5, 400)
		transport := &fakeTransport{
			data:    content,
			shortAt: map[uint64]int{200: 10},
		}
		var sink bytes.Buffer

		result, err := window.Download(context.Background(), transport, &sink, window.Config{
			FileSize:    400,
			ChunkLength: 100,
			MaxInFlight: 2,
		})

		require.Error(t, err)
		assert.Equal(t, window.StateFailed, result.State)
		assert.ErrorIs(t, err, sftperrors.ErrProtocolMismatch)
	})

	t.Run("large transfer with reversed batches", func(t *testing.T) {
		content := testutil.GenerateContent(9, 1<<20)
		transport := &fakeTransport{data: content, reorderDepth: 8}
		var sink bytes.Buffer

		result, err := window.Download(context.Background(), transport, &sink, window.Config{
			FileSize:    1 << 20,
			ChunkLength: 64 * 1024,
			MaxInFlight: 8,
		})

		require.NoError(t, err)
		assert.Equal(t, window.StateCompleted, result.State)
		assert.Equal(t, int64(1<<20), result.BytesWritten)
		assert.Equal(t, 16, transport.requests)
		assert.True(t, bytes.Equal(content, sink.Bytes()))
	})

	t.Run("duplicate responses for resolved ids are ignored", func(t *testing.T) {
		content := testutil.GenerateContent(10, 500)
		transport := &fakeTransport{data: content, duplicate: true}
		var sink bytes.Buffer

		result, err := window.Download(context.Background(), transport, &sink, window.Config{
			FileSize:    500,
			ChunkLength: 100,
			MaxInFlight: 3,
		})

		require.NoError(t, err)
		assert.Equal(t, window.StateCompleted, result.State)
		assert.Equal(t, int64(500), result.BytesWritten)
		assert.Equal(t, content, sink.Bytes())
	})

	t.Run("EOF for an in-range chunk is a protocol mismatch", func(t *testing.T) {
		content := testutil.GenerateContent(12, 600)
		transport := &fakeTransport{
			data:   content,
			failAt: map[uint64]error{400: io.EOF},
		}
		var sink bytes.Buffer

		result, err := window.Download(context.Background(), transport, &sink, window.Config{
			FileSize:    600,
			ChunkLength: 100,
			MaxInFlight: 3,
		})

		require.Error(t, err)
		assert.Equal(t, window.StateFailed, result.State)
		assert.ErrorIs(t, err, sftperrors.ErrProtocolMismatch)
		assert.Contains(t, err.Error(), "offset 400")
	})

	t.Run("responses with unknown ids are ignored", func(t *testing.T) {
		content := testutil.GenerateContent(6, 300)
		transport := &fakeTransport{data: content}
		transport.queue = append(transport.queue, window.Response{ID: 9999, Payload: []byte("stray")})
		var sink bytes.Buffer

		result, err := window.Download(context.Background(), transport, &sink, window.Config{
			FileSize:    300,
			ChunkLength: 100,
			MaxInFlight: 2,
		})

		require.NoError(t, err)
		assert.Equal(t, window.StateCompleted, result.State)
		assert.Equal(t, content, sink.Bytes())
	})

	t.Run("zero-size file completes without requests", func(t *testing.T) {
		transport := &fakeTransport{}
		var sink bytes.Buffer

		result, err := window.Download(context.Background(), transport, &sink, window.Config{
			FileSize:    0,
			ChunkLength: 100,
			MaxInFlight: 2,
		})

		require.NoError(t, err)
		assert.Equal(t, window.StateCompleted, result.State)
		assert.Equal(t, int64(0), result.BytesWritten)
		assert.Equal(t, 0, transport.requests)
	})

	t.Run("cancellation fails the session as cancelled", func(t *testing.T) {
		transport := &testutil.MockTransport{
			ReadRequestFunc: func(offset uint64, length uint32) (uint32, error) {
				return uint32(offset/100) + 1, nil
			},
			NextFunc: func(ctx context.Context) (window.Response, error) {
				<-ctx.Done()
				return window.Response{}, ctx.Err()
			},
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var sink bytes.Buffer

		result, err := window.Download(ctx, transport, &sink, window.Config{
			FileSize:    1000,
			ChunkLength: 100,
			MaxInFlight: 4,
		})

		require.Error(t, err)
		assert.Equal(t, window.StateFailed, result.State)
		assert.ErrorIs(t, err, sftperrors.ErrCancelled)
	})

	t.Run("sink failure fails the session", func(t *testing.T) {
		content := testutil.GenerateContent(7, 200)
		transport := &fakeTransport{data: content}

		result, err := window.Download(context.Background(), transport, failingWriter{}, window.Config{
			FileSize:    200,
			ChunkLength: 100,
			MaxInFlight: 2,
		})

		require.Error(t, err)
		assert.Equal(t, window.StateFailed, result.State)
		assert.Contains(t, err.Error(), "write to sink")
	})

	t.Run("sink accepting fewer bytes is a size mismatch", func(t *testing.T) {
		content := testutil.GenerateContent(11, 300)
		transport := &fakeTransport{data: content}

		result, err := window.Download(context.Background(), transport, &underWriter{}, window.Config{
			FileSize:    300,
			ChunkLength: 100,
			MaxInFlight: 2,
		})

		require.Error(t, err)
		assert.Equal(t, window.StateFailed, result.State)
		assert.ErrorIs(t, err, sftperrors.ErrSizeMismatch)
		assert.NotErrorIs(t, err, sftperrors.ErrTransport)
	})

	t.Run("invalid configuration is rejected", func(t *testing.T) {
		var sink bytes.Buffer
		cases := []window.Config{
			{FileSize: 100, ChunkLength: 0, MaxInFlight: 2},
			{FileSize: 100, ChunkLength: 100, MaxInFlight: 0},
		}
		for _, cfg := range cases {
			result, err := window.Download(context.Background(), &fakeTransport{}, &sink, cfg)
			require.Error(t, err)
			assert.Equal(t, window.StateFailed, result.State)
			assert.ErrorIs(t, err, sftperrors.ErrInvalidInput)
		}

		result, err := window.Download(context.Background(), nil, &sink, window.Config{
			FileSize: 100, ChunkLength: 100, MaxInFlight: 2,
		})
		require.Error(t, err)
		assert.Equal(t, window.StateFailed, result.State)
		assert.ErrorIs(t, err, sftperrors.ErrInvalidInput)
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "planning", window.StatePlanning.String())
	assert.Equal(t, "transferring", window.StateTransferring.String())
	assert.Equal(t, "completed", window.StateCompleted.String())
	assert.Equal(t, "failed", window.StateFailed.String())
}

// failingWriter rejects every write.
type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

// underWriter claims to accept one byte fewer than it was given.
type underWriter struct{}

func (underWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return len(p) - 1, nil
}
