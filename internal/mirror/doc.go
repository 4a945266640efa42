// Package mirror implements remote-to-local directory mirroring.
// This includes scanning both sides, deciding which files to download or
// delete, and executing the plan with bounded concurrency.
package mirror
