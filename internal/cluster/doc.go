// Package cluster groups perceptual hash records into duplicate sets.
//
// The engine sorts records by their canonical digest encoding and walks
// the sorted sequence once, chaining each record onto the open group
// when it is within the Hamming threshold of the last record added.
// Sort adjacency is a heuristic for Hamming proximity, not a guarantee;
// the linear scan trades a little recall for O(n log n) instead of
// pairwise O(n^2) comparisons.
package cluster
