// Package list handles remote directory listing operations.
// This includes single-level listings and recursive directory walks.
//
// Listings are paged through the server handle until it reports end of
// directory, so arbitrarily large directories stream without buffering the
// whole result server-side.
package list
