package imghash

import (
	"fmt"
	"image"
	"strings"

	"github.com/corona10/goimagehash"
)

// Algorithm identifies one of the supported perceptual hash functions.
type Algorithm string

const (
	// PHash is the DCT-based perceptual hash. Default; robust against
	// re-encoding and mild edits.
	PHash Algorithm = "phash"
	// AHash is the average hash.
	AHash Algorithm = "ahash"
	// DHash is the difference (gradient) hash.
	DHash Algorithm = "dhash"
	// WHash is the Haar wavelet hash.
	WHash Algorithm = "whash"
)

// Algorithms lists the supported algorithms in display order.
func Algorithms() []Algorithm {
	return []Algorithm{PHash, AHash, DHash, WHash}
}

// ParseAlgorithm maps a user-supplied name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case PHash:
		return PHash, nil
	case AHash:
		return AHash, nil
	case DHash:
		return DHash, nil
	case WHash:
		return WHash, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q (choose one of phash, ahash, dhash, whash)", name)
	}
}

// Compute hashes a decoded image with the selected algorithm. Every
// algorithm emits a 64-bit digest, so digests from a single run are
// always comparable.
func Compute(alg Algorithm, img image.Image) (Digest, error) {
	switch alg {
	case PHash:
		h, err := goimagehash.PerceptionHash(img)
		if err != nil {
			return Digest{}, fmt.Errorf("compute phash: %w", err)
		}
		return NewDigest(PHash, []uint64{h.GetHash()}, 64)
	case AHash:
		h, err := goimagehash.AverageHash(img)
		if err != nil {
			return Digest{}, fmt.Errorf("compute ahash: %w", err)
		}
		return NewDigest(AHash, []uint64{h.GetHash()}, 64)
	case DHash:
		h, err := goimagehash.DifferenceHash(img)
		if err != nil {
			return Digest{}, fmt.Errorf("compute dhash: %w", err)
		}
		return NewDigest(DHash, []uint64{h.GetHash()}, 64)
	case WHash:
		return waveletHash(img)
	default:
		return Digest{}, fmt.Errorf("unknown hash algorithm %q", alg)
	}
}
