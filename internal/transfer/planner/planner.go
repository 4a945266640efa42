// Package planner divides a remote file of known size into the fixed-length
// byte ranges the download engine requests.
//
// A plan is a lazy cursor over [0, fileSize): chunks come out in strictly
// increasing offset order, tile the file with no gaps or overlaps, and the
// final chunk shrinks to whatever remains. A plan is consumed exactly once
// per transfer.
package planner

// Chunk is one contiguous byte range of the source file, the unit of a
// single read request.
type Chunk struct {
	// Offset is the chunk's position in the file
	Offset uint64

	// Length is the number of bytes to request, always > 0
	Length uint32
}

// Plan hands out the chunks covering a file in offset order.
type Plan struct {
	fileSize    uint64
	chunkLength uint32
	next        uint64
}

// New creates a plan for a file of fileSize bytes cut into chunkLength
// pieces. chunkLength must be positive; callers validate it beforehand.
func New(fileSize uint64, chunkLength uint32) *Plan {
	return &Plan{
		fileSize:    fileSize,
		chunkLength: chunkLength,
	}
}

// Next returns the next chunk and true, or a zero chunk and false once the
// file is fully covered. A zero-size file yields no chunks at all.
func (p *Plan) Next() (Chunk, bool) {
	if p.next >= p.fileSize {
		return Chunk{}, false
	}
	length := uint64(p.chunkLength)
	if remaining := p.fileSize - p.next; remaining < length {
		length = remaining
	}
	c := Chunk{Offset: p.next, Length: uint32(length)}
	p.next += length
	return c, true
}

// Offset returns the next offset not yet planned.
func (p *Plan) Offset() uint64 {
	return p.next
}

// Remaining returns the number of bytes not yet planned.
func (p *Plan) Remaining() uint64 {
	return p.fileSize - p.next
}
