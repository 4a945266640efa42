package window

import "context"

// Transport is the engine's view of the connection: issue one read request
// without waiting for its response, and receive responses in whatever order
// the server produced them. The production implementation is a conn.Stream;
// tests substitute their own.
type Transport interface {
	// ReadRequest issues a read for length bytes at offset and returns the
	// request id the response will carry. It must not block on the response.
	ReadRequest(offset uint64, length uint32) (uint32, error)

	// Next returns the next response in arrival order. It blocks until a
	// response arrives, the context is cancelled, or the connection dies.
	Next(ctx context.Context) (Response, error)
}

// Response is one inbound read response. Err carries the server-reported
// failure for the request; when Err is nil, Payload holds the data.
type Response struct {
	ID      uint32
	Payload []byte
	Err     error
}
