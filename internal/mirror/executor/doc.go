// Package executor handles the parallel execution of mirror actions.
// This includes managing concurrency limits and coordinating multiple
// transfers over the shared connection.
//
// The executor ensures actions are performed efficiently and safely.
package executor
