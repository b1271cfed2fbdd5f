package zerofs

import "github.com/go-restruct/restruct"

// metadata is struct zerofs_metadata: last_written, last_written_len,
// version, padding. version is monotone-decreasing and wraps 1 -> 0xFFFE;
// the smaller value (ignoring the 0xFFFE reset sentinel) is the active
// bank on boot.
type metadata struct {
	LastWritten    uint16 `struct:"uint16"`
	LastWrittenLen uint16 `struct:"uint16"`
	Version        uint16 `struct:"uint16"`
	Padding        uint16 `struct:"uint16"`
}

const metadataSize = 8

func packMetadata(m metadata) []byte {
	buf, err := restruct.Pack(superEncoding, &m)
	if err != nil {
		panic(err)
	}
	return buf
}

func unpackMetadata(raw []byte) metadata {
	var m metadata
	if err := restruct.Unpack(raw, superEncoding, &m); err != nil {
		panic(err)
	}
	return m
}

// bankLayout describes the byte offsets of the three regions packed into
// one superblock bank: sector_map || namemap || metadata.
type bankLayout struct {
	numberOfSectors int
	maxFiles        int
}

func (b bankLayout) sectorMapOffset() int { return 0 }
func (b bankLayout) namemapOffset() int   { return b.numberOfSectors }
func (b bankLayout) metaOffset() int {
	return b.numberOfSectors + b.maxFiles*namemapEntrySize
}
func (b bankLayout) size() int {
	return b.metaOffset() + metadataSize
}

func newBankLayout(cfg Config) bankLayout {
	return bankLayout{numberOfSectors: cfg.numberOfSectors(), maxFiles: cfg.MaxFiles}
}

// decodeBank splits a raw bank buffer (as read from the mapped super-flash
// view) into its three logical regions.
func decodeBank(cfg Config, raw []byte) (sectorMap []byte, entries []namemapEntry, meta metadata) {
	layout := newBankLayout(cfg)
	sectorMap = raw[layout.sectorMapOffset():layout.namemapOffset()]
	entries = make([]namemapEntry, cfg.MaxFiles)
	for i := range entries {
		off := layout.namemapOffset() + i*namemapEntrySize
		entries[i] = unpackNamemapEntry(raw[off : off+namemapEntrySize])
	}
	meta = unpackMetadata(raw[layout.metaOffset() : layout.metaOffset()+metadataSize])
	return sectorMap, entries, meta
}

// versionOrder returns true if a is the winning (more current) version
// compared to b, implementing spec §9's explicit total order on
// Option<version>: smaller wins, except 0xFFFE ("just reset") always loses
// to any real version, and if both are 0xFFFE the filesystem is empty (no
// preference, caller defaults to bank 0). An erased bank reads 0xFFFF and
// loses to every written bank, including one at 0xFFFE.
func versionOrder(a, b uint16) bool {
	aReset := a == superblockVersionMax
	bReset := b == superblockVersionMax
	if aReset && bReset {
		return false
	}
	if aReset {
		return b == 0xffff
	}
	if bReset {
		return a != 0xffff
	}
	return a < b
}
