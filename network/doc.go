// Package network exposes the cache over ZeroMQ.
// This package implements:
// - A REP-socket service serving JSON cache commands
// - A REQ-socket client
// - Caller-facing command validation (empty keys, negative TTLs)
package network
