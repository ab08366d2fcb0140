// Package preflight verifies the environment before a scan starts:
// the scan root must be readable and the cache directory writable.
// Failures are reported together so the user can fix everything at once.
package preflight
