// Package scanner is the hash source: it walks a directory tree,
// filters to image files, and computes one perceptual hash per image
// with a bounded worker pool. Unreadable files are logged and skipped.
// The full record set is materialized before it is returned, so the
// clustering engine always sees a complete, static sequence.
package scanner
