// Package validation provides centralized input validation logic.
// This includes remote path validation, transfer tuning bounds, and glob
// pattern checks.
//
// All user inputs are validated before any packet is sent so malformed
// requests fail fast on the client instead of surfacing as opaque server
// status codes.
package validation
