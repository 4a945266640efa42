// Package scanner handles remote and local filesystem scanning.
// This includes walking remote directory trees and local mirror targets.
//
// The scanner provides a unified interface for discovering files on both
// sides of a mirror.
package scanner
