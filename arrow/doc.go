// Package arrow provides Apache Arrow exports of cache state.
// This package implements:
// - Schema definition for cache snapshots
// - Snapshot to Arrow record conversion
// - Arrow IPC serialization for handing snapshots to analysis tools
package arrow
