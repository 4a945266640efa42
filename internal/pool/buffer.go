// Package pool provides memory management optimizations.
// This includes buffer pooling and resource reuse to reduce allocations.
//
// The pool package keeps high-throughput transfers from allocating a fresh
// buffer per packet: connection frame reads, chunk payload copies, and
// upload staging all cycle buffers through here.
package pool

import (
	"sync"
)

const (
	// ControlBufferSize covers control replies: status, handles, name pages (4KB)
	ControlBufferSize = 4 * 1024
	// ChunkBufferSize covers read/write payloads up to the default chunk lengths (64KB)
	ChunkBufferSize = 64 * 1024
	// FrameBufferSize covers the largest frame the connection accepts (256KB)
	FrameBufferSize = 256 * 1024
)

// BufferPool manages reusable buffers of different sizes to reduce allocations.
type BufferPool struct {
	control *sync.Pool
	chunk   *sync.Pool
	frame   *sync.Pool
}

// NewBufferPool creates a new buffer pool with default sizes.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		control: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, ControlBufferSize)
				return &buf
			},
		},
		chunk: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, ChunkBufferSize)
				return &buf
			},
		},
		frame: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, FrameBufferSize)
				return &buf
			},
		},
	}
}

// GetChunk returns a chunk-sized buffer from the pool.
// The caller is responsible for calling PutChunk to return the buffer to the pool.
func (bp *BufferPool) GetChunk() []byte {
	bufPtr := bp.chunk.Get().(*[]byte)
	// Reset length to 0 but keep capacity
	*bufPtr = (*bufPtr)[:0]
	return *bufPtr
}

// PutChunk returns a chunk-sized buffer to the pool.
// The buffer should not be used after calling PutChunk.
func (bp *BufferPool) PutChunk(buf []byte) {
	buf = buf[:0]
	bp.chunk.Put(&buf)
}

// GetFrame returns a frame-sized buffer from the pool.
// The caller is responsible for calling PutFrame to return the buffer to the pool.
func (bp *BufferPool) GetFrame() []byte {
	bufPtr := bp.frame.Get().(*[]byte)
	*bufPtr = (*bufPtr)[:0]
	return *bufPtr
}

// PutFrame returns a frame-sized buffer to the pool.
// The buffer should not be used after calling PutFrame.
func (bp *BufferPool) PutFrame(buf []byte) {
	buf = buf[:0]
	bp.frame.Put(&buf)
}

// GetBuffer returns a buffer with capacity for at least size bytes, length
// zero. Requests beyond FrameBufferSize allocate outside the pool.
// The caller is responsible for calling PutBuffer to return the buffer to the pool.
func (bp *BufferPool) GetBuffer(size int) []byte {
	switch {
	case size <= ControlBufferSize:
		bufPtr := bp.control.Get().(*[]byte)
		*bufPtr = (*bufPtr)[:0]
		return *bufPtr
	case size <= ChunkBufferSize:
		return bp.GetChunk()
	case size <= FrameBufferSize:
		return bp.GetFrame()
	default:
		return make([]byte, 0, size)
	}
}

// PutBuffer returns a buffer to the appropriate pool based on its capacity.
// Buffers larger than FrameBufferSize are not returned to any pool.
func (bp *BufferPool) PutBuffer(buf []byte) {
	switch capacity := cap(buf); capacity {
	case ControlBufferSize:
		buf = buf[:0]
		bp.control.Put(&buf)
	case ChunkBufferSize:
		bp.PutChunk(buf)
	case FrameBufferSize:
		bp.PutFrame(buf)
		// Oversized buffers are not pooled to avoid memory bloat
	}
}

// Global buffer pool instance for use throughout the module.
var globalBufferPool = NewBufferPool()

// GetChunkBuffer returns a chunk-sized buffer from the global pool.
func GetChunkBuffer() []byte {
	return globalBufferPool.GetChunk()
}

// PutChunkBuffer returns a chunk-sized buffer to the global pool.
func PutChunkBuffer(buf []byte) {
	globalBufferPool.PutChunk(buf)
}

// GetFrameBuffer returns a frame-sized buffer from the global pool.
func GetFrameBuffer() []byte {
	return globalBufferPool.GetFrame()
}

// PutFrameBuffer returns a frame-sized buffer to the global pool.
func PutFrameBuffer(buf []byte) {
	globalBufferPool.PutFrame(buf)
}

// GetBuffer returns a buffer from the global pool for the specified size.
func GetBuffer(size int) []byte {
	return globalBufferPool.GetBuffer(size)
}

// PutBuffer returns a buffer to the global pool.
func PutBuffer(buf []byte) {
	globalBufferPool.PutBuffer(buf)
}
