// Package imghash computes perceptual image hashes and defines the
// fixed-width digest type the clustering engine compares. All digests
// produced by one Algorithm share a bit width, so Hamming distance is
// always defined within a scan.
package imghash
