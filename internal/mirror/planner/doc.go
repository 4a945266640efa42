// Package planner creates action plans for mirror operations.
// This includes determining which remote files need to be downloaded and
// which local files are stale.
//
// The planner analyzes scan results and orders the resulting plan for
// execution.
package planner
