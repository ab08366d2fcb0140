package cluster_test

import (
	"errors"
	"reflect"
	"testing"

	"picdup/internal/cluster"
	"picdup/internal/imghash"
)

func record(t *testing.T, id string, hash uint64) cluster.Record {
	t.Helper()
	d, err := imghash.NewDigest(imghash.PHash, []uint64{hash}, 64)
	if err != nil {
		t.Fatalf("NewDigest: %v", err)
	}
	return cluster.Record{Digest: d, ID: id}
}

func groupsEqual(a, b []cluster.Group) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func TestEmptyInput(t *testing.T) {
	groups, err := cluster.FindDuplicateGroups(nil, 4)
	if err != nil {
		t.Fatalf("FindDuplicateGroups: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected no groups, got %v", groups)
	}
}

func TestSingleRecord(t *testing.T) {
	groups, err := cluster.FindDuplicateGroups([]cluster.Record{record(t, "only.jpg", 0xABCD)}, 4)
	if err != nil {
		t.Fatalf("FindDuplicateGroups: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("a single record must never form a group, got %v", groups)
	}
}

func TestIdenticalHashesGroupAtThresholdZero(t *testing.T) {
	records := []cluster.Record{
		record(t, "a.jpg", 0xFF00),
		record(t, "b.jpg", 0xFF00),
	}
	groups, err := cluster.FindDuplicateGroups(records, 0)
	if err != nil {
		t.Fatalf("FindDuplicateGroups: %v", err)
	}
	want := []cluster.Group{{"a.jpg", "b.jpg"}}
	if !groupsEqual(groups, want) {
		t.Fatalf("groups = %v, want %v", groups, want)
	}
}

func TestThresholdZeroExcludesNearMisses(t *testing.T) {
	records := []cluster.Record{
		record(t, "a.jpg", 0xFF00),
		record(t, "b.jpg", 0xFF01), // one bit away
	}
	groups, err := cluster.FindDuplicateGroups(records, 0)
	if err != nil {
		t.Fatalf("FindDuplicateGroups: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("threshold 0 must group only bit-identical hashes, got %v", groups)
	}
}

func TestThresholdBoundaryIsExclusive(t *testing.T) {
	// Distance exactly equal to the threshold does not cluster.
	atBoundary := []cluster.Record{
		record(t, "a.jpg", 0x00),
		record(t, "b.jpg", 0x03), // distance 2
	}
	groups, err := cluster.FindDuplicateGroups(atBoundary, 2)
	if err != nil {
		t.Fatalf("FindDuplicateGroups: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("distance == threshold must not cluster, got %v", groups)
	}

	within := []cluster.Record{
		record(t, "a.jpg", 0x00),
		record(t, "b.jpg", 0x01), // distance 1
	}
	groups, err = cluster.FindDuplicateGroups(within, 2)
	if err != nil {
		t.Fatalf("FindDuplicateGroups: %v", err)
	}
	want := []cluster.Group{{"a.jpg", "b.jpg"}}
	if !groupsEqual(groups, want) {
		t.Fatalf("distance < threshold must cluster: got %v, want %v", groups, want)
	}
}

func TestDistanceChaining(t *testing.T) {
	// Sorted order is a, b, c. distance(a,b)=1 and distance(b,c)=1 are
	// within the threshold while distance(a,c)=2 is not; the chain
	// compares to the last record added, so all three land together.
	records := []cluster.Record{
		record(t, "a.jpg", 0b0100),
		record(t, "b.jpg", 0b0110),
		record(t, "c.jpg", 0b0111),
	}
	groups, err := cluster.FindDuplicateGroups(records, 2)
	if err != nil {
		t.Fatalf("FindDuplicateGroups: %v", err)
	}
	want := []cluster.Group{{"a.jpg", "b.jpg", "c.jpg"}}
	if !groupsEqual(groups, want) {
		t.Fatalf("chained records must share one group: got %v, want %v", groups, want)
	}
}

func TestSampleScenario(t *testing.T) {
	records := []cluster.Record{
		record(t, "a", 0xFF00),
		record(t, "b", 0xFF01),
		record(t, "c", 0x00FF),
	}
	groups, err := cluster.FindDuplicateGroups(records, 2)
	if err != nil {
		t.Fatalf("FindDuplicateGroups: %v", err)
	}
	want := []cluster.Group{{"a", "b"}}
	if !groupsEqual(groups, want) {
		t.Fatalf("groups = %v, want %v", groups, want)
	}
}

func TestInputOrderDoesNotChangeOutput(t *testing.T) {
	base := []cluster.Record{
		record(t, "a.jpg", 0xFF00),
		record(t, "b.jpg", 0xFF01),
		record(t, "c.jpg", 0x00FF),
		record(t, "d.jpg", 0x00FF),
	}
	want, err := cluster.FindDuplicateGroups(base, 2)
	if err != nil {
		t.Fatalf("FindDuplicateGroups: %v", err)
	}
	if len(want) == 0 {
		t.Fatal("fixture must produce at least one group")
	}

	permute(base, func(perm []cluster.Record) {
		got, err := cluster.FindDuplicateGroups(perm, 2)
		if err != nil {
			t.Fatalf("FindDuplicateGroups(%v): %v", ids(perm), err)
		}
		if !groupsEqual(got, want) {
			t.Fatalf("permutation %v changed output: got %v, want %v", ids(perm), got, want)
		}
	})
}

func TestClusteringIsIdempotent(t *testing.T) {
	records := []cluster.Record{
		record(t, "a.jpg", 0xFF00),
		record(t, "b.jpg", 0xFF01),
		record(t, "c.jpg", 0x00FF),
	}
	first, err := cluster.FindDuplicateGroups(records, 2)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := cluster.FindDuplicateGroups(records, 2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !groupsEqual(first, second) {
		t.Fatalf("repeated runs diverged: %v vs %v", first, second)
	}
}

func TestInputSliceIsNotMutated(t *testing.T) {
	records := []cluster.Record{
		record(t, "z.jpg", 0xFF01),
		record(t, "a.jpg", 0xFF00),
	}
	if _, err := cluster.FindDuplicateGroups(records, 2); err != nil {
		t.Fatalf("FindDuplicateGroups: %v", err)
	}
	if records[0].ID != "z.jpg" || records[1].ID != "a.jpg" {
		t.Fatalf("input slice was reordered: %v", ids(records))
	}
}

func TestMixedAlgorithmsRejected(t *testing.T) {
	p, err := imghash.NewDigest(imghash.PHash, []uint64{0xFF00}, 64)
	if err != nil {
		t.Fatalf("NewDigest: %v", err)
	}
	w, err := imghash.NewDigest(imghash.WHash, []uint64{0xFF00}, 64)
	if err != nil {
		t.Fatalf("NewDigest: %v", err)
	}
	records := []cluster.Record{
		{Digest: p, ID: "a.jpg"},
		{Digest: w, ID: "b.jpg"},
	}
	if _, err := cluster.FindDuplicateGroups(records, 2); !errors.Is(err, cluster.ErrMixedDigests) {
		t.Fatalf("expected ErrMixedDigests, got %v", err)
	}
}

func TestNegativeThresholdRejected(t *testing.T) {
	if _, err := cluster.FindDuplicateGroups([]cluster.Record{record(t, "a.jpg", 1)}, -1); err == nil {
		t.Fatal("expected error for negative threshold")
	}
}

func TestDuplicateGroupMembershipCollapses(t *testing.T) {
	// Two scan segments can only produce the same membership when the
	// identifiers repeat; the output must still be a set.
	records := []cluster.Record{
		record(t, "a.jpg", 0xFF00),
		record(t, "a.jpg", 0xFF00),
		record(t, "b.jpg", 0xFF00),
	}
	groups, err := cluster.FindDuplicateGroups(records, 1)
	if err != nil {
		t.Fatalf("FindDuplicateGroups: %v", err)
	}
	want := []cluster.Group{{"a.jpg", "b.jpg"}}
	if !groupsEqual(groups, want) {
		t.Fatalf("groups = %v, want %v", groups, want)
	}
}

func ids(records []cluster.Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.ID
	}
	return out
}

// permute invokes fn with every permutation of records (Heap's algorithm).
func permute(records []cluster.Record, fn func([]cluster.Record)) {
	work := make([]cluster.Record, len(records))
	copy(work, records)

	var generate func(k int)
	generate = func(k int) {
		if k == 1 {
			perm := make([]cluster.Record, len(work))
			copy(perm, work)
			fn(perm)
			return
		}
		for i := 0; i < k; i++ {
			generate(k - 1)
			if k%2 == 0 {
				work[i], work[k-1] = work[k-1], work[i]
			} else {
				work[0], work[k-1] = work[k-1], work[0]
			}
		}
	}
	generate(len(work))
}
