package zerofs

import "testing"

func TestSectorMapWritableAndActive(t *testing.T) {
	flash := []byte{mapErased, mapEmpty, mapEmpty, 3}
	sm := newSectorMap(flash)

	if sm.writable() {
		t.Fatal("fresh sectorMap should not be writable")
	}
	if got := sm.get(3); got != 3 {
		t.Errorf("get(3) = %d, want 3", got)
	}

	sm.enterWriteMode(len(flash), 0, 0)
	if !sm.writable() {
		t.Fatal("expected writable after enterWriteMode")
	}
	sm.set(1, 7)
	if sm.get(1) != 7 {
		t.Errorf("set/get round trip failed")
	}
	if flash[1] != mapEmpty {
		t.Errorf("enterWriteMode must not mutate the flash-backed slice in place")
	}
}

func TestSectorMapEnterWriteModePromotesErasedMax(t *testing.T) {
	flash := []byte{mapEmpty, mapEmpty, mapEmpty, mapEmpty}
	sm := newSectorMap(flash)
	sm.enterWriteMode(len(flash), 2, 3)

	// lastWritten=2, erasedMax=3 -> promote cells (2+0)%4, (2+1)%4, (2+2)%4 = 2,3,0
	want := []byte{mapErased, mapEmpty, mapErased, mapErased}
	for i, w := range want {
		if sm.get(i) != w {
			t.Errorf("cell %d = %d, want %d", i, sm.get(i), w)
		}
	}
}

func TestSectorMapEnterReadModeReleasesRAM(t *testing.T) {
	flash := []byte{mapEmpty, mapEmpty}
	sm := newSectorMap(flash)
	sm.enterWriteMode(len(flash), 0, 0)
	sm.set(0, 5)

	newFlash := []byte{5, mapEmpty}
	sm.enterReadMode(newFlash)
	if sm.writable() {
		t.Fatal("expected read mode after enterReadMode")
	}
	if sm.get(0) != 5 {
		t.Errorf("expected published value visible after enterReadMode")
	}
}
