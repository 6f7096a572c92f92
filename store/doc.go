// Package store owns the on-disk cache tree: where each pipeline artifact
// lives, atomic file publication, and mtime-based staleness checks.
//
// Staleness is timestamp-based by design. A content-hash manifest would be
// immune to clock skew but adds state to maintain; for a single-operator
// pipeline the mtime rule is enough.
package store
