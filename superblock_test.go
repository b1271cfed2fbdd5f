package zerofs

import "testing"

func TestVersionOrder(t *testing.T) {
	cases := []struct {
		a, b uint16
		want bool
	}{
		{1, 2, true},
		{2, 1, false},
		{superblockVersionMax, 5, false},
		{5, superblockVersionMax, true},
		{superblockVersionMax, superblockVersionMax, false},
	}
	for _, c := range cases {
		if got := versionOrder(c.a, c.b); got != c.want {
			t.Errorf("versionOrder(%d, %d) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestMetadataPackUnpackRoundTrip(t *testing.T) {
	m := metadata{LastWritten: 10, LastWrittenLen: 200, Version: 0xfffd}
	raw := packMetadata(m)
	if len(raw) != metadataSize {
		t.Fatalf("packed size = %d, want %d", len(raw), metadataSize)
	}
	got := unpackMetadata(raw)
	if got != m {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, m)
	}
}

func TestBankLayoutOffsets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFiles = 10
	layout := bankLayout{numberOfSectors: 100, maxFiles: cfg.MaxFiles}

	if got := layout.sectorMapOffset(); got != 0 {
		t.Errorf("sectorMapOffset = %d, want 0", got)
	}
	if got := layout.namemapOffset(); got != 100 {
		t.Errorf("namemapOffset = %d, want 100", got)
	}
	wantMeta := 100 + 10*namemapEntrySize
	if got := layout.metaOffset(); got != wantMeta {
		t.Errorf("metaOffset = %d, want %d", got, wantMeta)
	}
	if got := layout.size(); got != wantMeta+metadataSize {
		t.Errorf("size = %d, want %d", got, wantMeta+metadataSize)
	}
}

func TestDecodeBankSplitsRegions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFiles = 4
	layout := newBankLayout(cfg)
	raw := make([]byte, layout.size())
	for i := range raw {
		raw[i] = 0xff
	}

	entry := namemapEntry{Name: [6]byte{9, 9, 9, 9, 9, 9}, TypeLen: 1<<24 | 5}
	copy(raw[layout.namemapOffset():], packNamemapEntry(entry))

	meta := metadata{LastWritten: 3, Version: 7}
	copy(raw[layout.metaOffset():], packMetadata(meta))

	sm, entries, m := decodeBank(cfg, raw)
	if len(sm) != layout.numberOfSectors {
		t.Errorf("sector map region len = %d, want %d", len(sm), layout.numberOfSectors)
	}
	if len(entries) != cfg.MaxFiles {
		t.Fatalf("entries len = %d, want %d", len(entries), cfg.MaxFiles)
	}
	if entries[0].Name != entry.Name || entries[0].TypeLen != entry.TypeLen {
		t.Errorf("entries[0] = %+v, want %+v", entries[0], entry)
	}
	if m.LastWritten != meta.LastWritten || m.Version != meta.Version {
		t.Errorf("meta = %+v, want %+v", m, meta)
	}
}
