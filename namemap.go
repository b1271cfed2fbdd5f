package zerofs

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"
)

// superEncoding is the fixed byte order used to pack every on-flash
// superblock structure, mirroring dsoprea-go-exfat's defaultEncoding used
// with restruct.Unpack throughout structures.go.
var superEncoding = binary.LittleEndian

// namemapEntrySize is sizeof(struct zerofs_namemap) in the reference
// firmware: 6 bytes packed name, u16 first_sector, u16 first_offset, u16
// reserved, u32 type_len.
const namemapEntrySize = 16

// namemapEntry is one append-only directory slot. Field order and sizes
// are load-bearing: they define the on-flash layout, restruct-packed via
// struct tags the way dsoprea-go-exfat's BootSectorHeader is.
type namemapEntry struct {
	Name        [6]byte `struct:"[6]byte"`
	FirstSector uint16  `struct:"uint16"`
	FirstOffset uint16  `struct:"uint16"`
	Reserved    uint16  `struct:"uint16"`
	TypeLen     uint32  `struct:"uint32"`
}

// inProgressTypeLen is the TypeLen sentinel written at create time, before close
// fills in the real type/size. All bits set -> AND-semantics-valid
// transition to any smaller value on close.
const inProgressTypeLen = 0xffffffff

func (e namemapEntry) zero() bool {
	return e.Name == [6]byte{} && e.TypeLen == 0
}

func (e namemapEntry) live() bool {
	return e.Name != [6]byte{} && e.TypeLen != 0 && e.TypeLen != inProgressTypeLen
}

// repackValid reports whether a namemap slot should survive a repack
// compaction. This is NOT the same predicate as live(): it additionally
// rejects a closed zero-length file, matching zerofs_repack_superblock's
// three-part check (name non-zero, size non-zero, not in-progress) in
// original_source/zerofs.h:249-252. A finalized entry with a recognized
// extension and zero bytes written has TypeLen != 0 (the type occupies the
// high byte) even though its size is zero, so live() alone would wrongly
// keep it across a repack.
func (e namemapEntry) repackValid() bool {
	return e.Name != [6]byte{} && e.size() != 0 && e.TypeLen != inProgressTypeLen
}

func (e namemapEntry) fileType() uint8 {
	return uint8(e.TypeLen >> 24)
}

func (e namemapEntry) size() uint32 {
	return e.TypeLen & 0xffffff
}

func packNamemapEntry(e namemapEntry) []byte {
	buf, err := restruct.Pack(superEncoding, &e)
	if err != nil {
		panic(err) // fixed-layout struct, can only fail on programmer error
	}
	return buf
}

func unpackNamemapEntry(raw []byte) namemapEntry {
	var e namemapEntry
	if err := restruct.Unpack(raw, superEncoding, &e); err != nil {
		panic(err)
	}
	return e
}
