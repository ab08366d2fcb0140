package imghash

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// ErrWidthMismatch reports an attempt to compare digests of different
// bit widths or algorithms. Such input is a caller bug; the comparison
// fails fast rather than returning a meaningless distance.
var ErrWidthMismatch = errors.New("digests are not comparable")

// Digest is an opaque fixed-width bit vector produced by one Algorithm.
// Digests carry no arithmetic meaning; they are compared only by
// Hamming distance and ordered only by their canonical encoding.
type Digest struct {
	kind  Algorithm
	words []uint64
	width int
}

// NewDigest wraps raw hash words as a Digest. The width must account
// for every word exactly (64 bits per word).
func NewDigest(kind Algorithm, words []uint64, width int) (Digest, error) {
	if len(words) == 0 {
		return Digest{}, errors.New("digest requires at least one word")
	}
	if width != len(words)*64 {
		return Digest{}, fmt.Errorf("digest width %d does not match %d words", width, len(words))
	}
	cp := make([]uint64, len(words))
	copy(cp, words)
	return Digest{kind: kind, words: cp, width: width}, nil
}

// Kind returns the algorithm that produced the digest.
func (d Digest) Kind() Algorithm { return d.kind }

// Width returns the digest size in bits.
func (d Digest) Width() int { return d.width }

// IsZero reports whether the digest is the uninitialized zero value.
func (d Digest) IsZero() bool { return len(d.words) == 0 }

// Distance returns the Hamming distance to other. Digests from
// different algorithms or of different widths are not comparable.
func (d Digest) Distance(other Digest) (int, error) {
	if d.kind != other.kind || d.width != other.width || len(d.words) != len(other.words) {
		return 0, fmt.Errorf("%w: %s/%d vs %s/%d", ErrWidthMismatch, d.kind, d.width, other.kind, other.width)
	}
	dist := 0
	for i := range d.words {
		dist += bits.OnesCount64(d.words[i] ^ other.words[i])
	}
	return dist, nil
}

// String returns the canonical encoding: the algorithm name, a colon,
// and the hash words as fixed-width big-endian hex. Lexicographic order
// over this encoding is the total order the clustering sort uses.
func (d Digest) String() string {
	var b strings.Builder
	b.WriteString(string(d.kind))
	b.WriteByte(':')
	for _, w := range d.words {
		fmt.Fprintf(&b, "%016x", w)
	}
	return b.String()
}

// ParseDigest decodes a canonical encoding produced by String. Used by
// the hash cache to round-trip digests through storage.
func ParseDigest(s string) (Digest, error) {
	kindPart, hexPart, ok := strings.Cut(s, ":")
	if !ok {
		return Digest{}, fmt.Errorf("malformed digest %q", s)
	}
	kind, err := ParseAlgorithm(kindPart)
	if err != nil {
		return Digest{}, fmt.Errorf("malformed digest %q: %w", s, err)
	}
	if len(hexPart) == 0 || len(hexPart)%16 != 0 {
		return Digest{}, fmt.Errorf("malformed digest %q: hex payload must be a whole number of 64-bit words", s)
	}
	words := make([]uint64, 0, len(hexPart)/16)
	for i := 0; i < len(hexPart); i += 16 {
		w, err := strconv.ParseUint(hexPart[i:i+16], 16, 64)
		if err != nil {
			return Digest{}, fmt.Errorf("malformed digest %q: %w", s, err)
		}
		words = append(words, w)
	}
	return NewDigest(kind, words, len(words)*64)
}
