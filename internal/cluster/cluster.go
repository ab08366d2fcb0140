package cluster

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"picdup/internal/imghash"
)

// ErrMixedDigests reports input records whose digests come from more
// than one algorithm or bit width. The hash source produces a single
// algorithm per run, so mixed input is a caller bug; the engine fails
// fast instead of silently mis-clustering.
var ErrMixedDigests = errors.New("records mix hash algorithms or widths")

// Record pairs one image's digest with its identifier. The identifier
// is used only for reporting, never for comparison.
type Record struct {
	Digest imghash.Digest
	ID     string
}

// Group is the sorted set of identifiers judged visually similar.
// A group always has at least two distinct members.
type Group []string

// FindDuplicateGroups partitions records into duplicate groups.
//
// Records are sorted by the digest's canonical encoding and scanned
// left to right with a single open group. The current record joins the
// open group when its distance to the last record added is zero or
// strictly below threshold: bit-identical copies always merge, and a
// distance equal to the threshold does not. Comparisons chain rather
// than anchor, so a run of records can span a first-to-last distance
// well past the threshold.
//
// The input slice is not modified. Groups with identical membership
// collapse to one entry. Output ordering is deterministic: members are
// sorted within each group and groups are sorted by first member.
func FindDuplicateGroups(records []Record, threshold int) ([]Group, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("hamming distance threshold must be non-negative, got %d", threshold)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if err := checkUniformDigests(records); err != nil {
		return nil, err
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		si, sj := sorted[i].Digest.String(), sorted[j].Digest.String()
		if si != sj {
			return si < sj
		}
		return sorted[i].ID < sorted[j].ID
	})

	var (
		groups []Group
		seen   = make(map[string]struct{})
		open   = make([]Record, 0, 8)
	)
	flush := func() {
		if g, ok := closeGroup(open); ok {
			key := strings.Join(g, "\x00")
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				groups = append(groups, g)
			}
		}
		open = open[:0]
	}

	for _, rec := range sorted {
		if len(open) == 0 {
			open = append(open, rec)
			continue
		}
		dist, err := open[len(open)-1].Digest.Distance(rec.Digest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMixedDigests, err)
		}
		if dist == 0 || dist < threshold {
			open = append(open, rec)
			continue
		}
		flush()
		open = append(open, rec)
	}
	flush()

	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups, nil
}

// closeGroup turns the open scan buffer into a reported group: the
// distinct identifiers, sorted. Buffers with fewer than two records or
// fewer than two distinct identifiers are discarded.
func closeGroup(open []Record) (Group, bool) {
	if len(open) < 2 {
		return nil, false
	}
	uniq := make(map[string]struct{}, len(open))
	for _, rec := range open {
		uniq[rec.ID] = struct{}{}
	}
	if len(uniq) < 2 {
		return nil, false
	}
	g := make(Group, 0, len(uniq))
	for id := range uniq {
		g = append(g, id)
	}
	sort.Strings(g)
	return g, true
}

func checkUniformDigests(records []Record) error {
	first := records[0].Digest
	if first.IsZero() {
		return fmt.Errorf("%w: record %q has an empty digest", ErrMixedDigests, records[0].ID)
	}
	for _, rec := range records[1:] {
		if rec.Digest.IsZero() {
			return fmt.Errorf("%w: record %q has an empty digest", ErrMixedDigests, rec.ID)
		}
		if rec.Digest.Kind() != first.Kind() || rec.Digest.Width() != first.Width() {
			return fmt.Errorf("%w: %q is %s/%d, %q is %s/%d",
				ErrMixedDigests,
				records[0].ID, first.Kind(), first.Width(),
				rec.ID, rec.Digest.Kind(), rec.Digest.Width())
		}
	}
	return nil
}
