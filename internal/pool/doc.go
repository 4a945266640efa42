// Package pool provides memory management optimizations.
// This includes buffer pooling and resource reuse to reduce allocations.
//
// The pool package helps keep steady-state transfers allocation-free by
// recycling packet frames and chunk payload buffers.
package pool
