package zerofs

import "testing"

func TestNamemapEntryPackUnpackRoundTrip(t *testing.T) {
	e := namemapEntry{
		Name:        [6]byte{1, 2, 3, 4, 5, 6},
		FirstSector: 42,
		FirstOffset: 17,
		TypeLen:     1<<24 | 1234,
	}
	raw := packNamemapEntry(e)
	if len(raw) != namemapEntrySize {
		t.Fatalf("packed size = %d, want %d", len(raw), namemapEntrySize)
	}
	got := unpackNamemapEntry(raw)
	if got.Name != e.Name || got.FirstSector != e.FirstSector || got.FirstOffset != e.FirstOffset || got.TypeLen != e.TypeLen {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestNamemapEntryLiveness(t *testing.T) {
	var zero namemapEntry
	if !zero.zero() || zero.live() {
		t.Errorf("zero-value entry should be zero() and not live()")
	}

	inProgress := namemapEntry{Name: [6]byte{1}, TypeLen: inProgressTypeLen}
	if inProgress.live() {
		t.Errorf("in-progress entry (TypeLen=0xffffffff) should not be live")
	}

	live := namemapEntry{Name: [6]byte{1}, TypeLen: 2<<24 | 99}
	if !live.live() {
		t.Errorf("finalized entry should be live")
	}
	if got := live.fileType(); got != 2 {
		t.Errorf("fileType() = %d, want 2", got)
	}
	if got := live.size(); got != 99 {
		t.Errorf("size() = %d, want 99", got)
	}
}
