// Package mirror provides the main mirror orchestration logic.
// This includes coordinating the mirror phases and managing the overall
// mirror process.
//
// This package acts as the main entry point for all mirror-related operations.
package mirror
