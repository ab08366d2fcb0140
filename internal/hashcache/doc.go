// Package hashcache persists computed perceptual hashes in SQLite so a
// re-scan of an unchanged library skips image decoding. Entries are
// keyed by path and algorithm and validated against file size and
// modification time. A file lock serializes writers across processes.
package hashcache
