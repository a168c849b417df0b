// Package store provides SQLite-backed storage for compiled flowc builds.
//
// The store records:
//   - Builds: one row per compilation, keyed by a UUIDv7 build id and
//     carrying the graph fingerprint
//   - Programs: the emitted program of every location of a build
//   - Channels: the transports established when a build's network was
//     connected by a deployment backend
//
// Writes are idempotent (ON CONFLICT DO NOTHING). Reads are ordered
// deterministically: builds by seq, programs by location id, channels by
// insertion order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Fingerprints and program hashes are computed in internal/ir/hash.go using
// RFC 8785 canonical JSON and SHA-256 with domain separation.
package store
