// Package transfer manages pipelined file transfer operations.
// This includes chunk planning and the windowed download engine that keeps
// a bounded number of read requests in flight.
//
// The transfer packages are transport-agnostic: they speak to the connection
// through a narrow interface so the engine can be exercised without a server.
package transfer
