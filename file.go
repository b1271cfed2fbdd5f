package zerofs

import "io"

// fileMode is the access mode of an open File.
type fileMode uint8

const (
	modeClosed fileMode = iota
	modeReadOnly
	modeWriteOnly
)

// fileNoMore marks a handle created inside a partially used tail sector,
// matching ZEROFS_FILE_NOMORE. Write clears it at the first sector
// boundary; nothing else reads it, and Close leaves lastWrittenLen as is,
// so a later Create may still start in the same sector.
const fileNoMore = 1 << 0

// File is an open ZeroFS file handle. It weakly references its ZeroFS
// instance: closing does not destroy the handle but makes further
// reads/writes fail, and using a handle after the owning instance is
// reformatted is undefined, matching spec §3.
type File struct {
	zfs    *ZeroFS
	id     int
	mode   fileMode
	sector int
	pos    int
	typ    uint8
	size   uint32
	flags  uint8

	// read is the number of bytes already delivered to the caller via
	// Read, used only to synthesize io.EOF (the original has no such
	// bookkeeping and relies on the caller to stop at the right length).
	read uint32
}

// FileInfo describes a file without requiring an open handle.
type FileInfo struct {
	Name string
	Type uint8
	Size uint32
}

// Mode reports the access mode of the handle.
func (f *File) Mode() string {
	switch f.mode {
	case modeReadOnly:
		return "r"
	case modeWriteOnly:
		return "w"
	default:
		return "closed"
	}
}

// Size returns the number of bytes written/available in the file.
func (f *File) Size() uint32 { return f.size }

// Type returns the file's extension-derived type id.
func (f *File) Type() uint8 { return f.typ }

func (z *ZeroFS) namemapField(id int, field namemapField) uint32 {
	addr := uint32(z.bank*z.cfg.SuperSectorSize) + uint32(newBankLayout(z.cfg).namemapOffset()) + uint32(id*namemapEntrySize)
	return addr + uint32(field)
}

type namemapField uint32

const (
	fieldName    namemapField = 0
	fieldTypeLen namemapField = 12
)

// Open opens name for reading. Fails with ErrNotFound if no live entry
// matches.
func (z *ZeroFS) Open(name string) (*File, error) {
	packed, typ, err := encodeName(z.cfg, name)
	if err != nil {
		return nil, err
	}
	id, ok := z.findByName(packed, typ)
	if !ok {
		return nil, wrap(errNotFound, "open %q", name)
	}
	e := z.namemapEntry(id)
	return &File{
		zfs:    z,
		id:     id,
		mode:   modeReadOnly,
		sector: int(e.FirstSector),
		pos:    int(e.FirstOffset),
		typ:    e.fileType(),
		size:   e.size(),
	}, nil
}

// Stat returns the metadata of a live file without opening it.
func (z *ZeroFS) Stat(name string) (FileInfo, error) {
	packed, typ, err := encodeName(z.cfg, name)
	if err != nil {
		return FileInfo{}, err
	}
	id, ok := z.findByName(packed, typ)
	if !ok {
		return FileInfo{}, wrap(errNotFound, "stat %q", name)
	}
	e := z.namemapEntry(id)
	return FileInfo{Name: decodeName(e.Name), Type: e.fileType(), Size: e.size()}, nil
}

// List enumerates every live file in namemap order.
func (z *ZeroFS) List() ([]FileInfo, error) {
	var out []FileInfo
	limit := z.lastNamemapID
	if limit > z.cfg.MaxFiles {
		limit = z.cfg.MaxFiles
	}
	for i := 0; i < limit; i++ {
		e := z.namemapEntry(i)
		if !e.live() {
			continue
		}
		out = append(out, FileInfo{Name: decodeName(e.Name), Type: e.fileType(), Size: e.size()})
	}
	return out, nil
}

func (z *ZeroFS) findByName(name [6]byte, typ uint8) (int, bool) {
	for i := 0; i < z.cfg.MaxFiles; i++ {
		e := z.namemapEntry(i)
		if e.Name == name && e.fileType() == typ {
			return i, true
		}
	}
	return 0, false
}

// Create creates name for writing, deleting any existing entry by that
// name first (spec §4.6). Write mode only.
func (z *ZeroFS) Create(name string) (*File, error) {
	if z.IsReadOnly() {
		return nil, errReadMode
	}
	_ = z.deleteByName(name) // best-effort, matches zerofs_create step 0

	id, err := z.findSlot()
	if err != nil {
		return nil, err
	}

	packed, typ, err := encodeName(z.cfg, name)
	if err != nil {
		return nil, err
	}

	f := &File{zfs: z, id: id, typ: typ}
	var firstSector uint16
	var firstOffset uint16

	if z.meta.LastWrittenLen > 0 && int(z.meta.LastWrittenLen) < z.cfg.SectorSize {
		// Tail sharing: start inside the previous file's tail sector.
		f.flags |= fileNoMore
		firstSector = z.meta.LastWritten
		firstOffset = z.meta.LastWrittenLen
		f.sector = int(firstSector)
		f.pos = int(firstOffset)
	} else {
		s := z.findFreeBlock()
		if s < 0 {
			return nil, wrap(errNoSpace, "create %q", name)
		}
		firstSector = uint16(s)
		firstOffset = 0
		f.sector = s
		f.pos = 0
	}

	if err := z.claimBlock(f.sector, byte(id)); err != nil {
		return nil, err
	}

	entry := namemapEntry{
		Name:        packed,
		FirstSector: firstSector,
		FirstOffset: firstOffset,
		TypeLen:     inProgressTypeLen,
	}
	addr := uint32(z.bank*z.cfg.SuperSectorSize) + uint32(newBankLayout(z.cfg).namemapOffset()) + uint32(id*namemapEntrySize)
	if err := z.super.Program(addr, packNamemapEntry(entry)); err != nil {
		return nil, wrap(err, "create %q: program namemap entry", name)
	}

	f.mode = modeWriteOnly
	return f, nil
}

// deleteByID implements the sector-map release and namemap wipe shared by
// Delete and Create's implicit overwrite, matching zerofs_delete_by_id.
func (z *ZeroFS) deleteByID(id int) error {
	e := z.namemapEntry(id)
	from := int(e.FirstSector)

	addr := uint32(z.bank*z.cfg.SuperSectorSize) + uint32(newBankLayout(z.cfg).namemapOffset()) + uint32(id*namemapEntrySize)
	var zero [namemapEntrySize]byte
	if err := z.super.Program(addr, zero[:]); err != nil {
		return wrap(err, "delete: zero namemap entry %d", id)
	}

	sm := z.sm.active()
	n := z.numberOfSectors()
	last := -1
	for i := 0; i < n; i++ {
		sec := (i + from) % n
		if int(sm[sec]) == id {
			last = sec
			z.sm.set(sec, mapEmpty)
		}
	}
	if last >= 0 {
		// This sector may also be the head of another file packed after
		// ours via tail sharing; if so, restore its ownership.
		if owner, ok := z.findLiveByFirstSector(last); ok {
			z.sm.set(last, byte(owner))
		}
	}
	return nil
}

func (z *ZeroFS) findLiveByFirstSector(sec int) (int, bool) {
	limit := z.lastNamemapID
	if limit > z.cfg.MaxFiles {
		limit = z.cfg.MaxFiles
	}
	for i := 0; i < limit; i++ {
		e := z.namemapEntry(i)
		if e.TypeLen != 0 && int(e.FirstSector) == sec {
			return i, true
		}
	}
	return 0, false
}

func (z *ZeroFS) deleteByName(name string) error {
	packed, typ, err := encodeName(z.cfg, name)
	if err != nil {
		return err
	}
	id, ok := z.findByName(packed, typ)
	if !ok {
		return errNotFound
	}
	return z.deleteByID(id)
}

// Delete removes name, releasing its sectors. Write mode only.
func (z *ZeroFS) Delete(name string) error {
	if z.IsReadOnly() {
		return errReadMode
	}
	if err := z.deleteByName(name); err != nil {
		return wrap(err, "delete %q", name)
	}
	return nil
}

// Close finalizes a write handle by programming its type/size into the
// namemap (AND-semantics-valid since 0xFFFFFFFF only ever clears bits on
// close); read handles close with no I/O.
func (f *File) Close() error {
	if f.mode == modeWriteOnly {
		typeLen := uint32(f.typ)<<24 | f.size
		var buf [4]byte
		superEncoding.PutUint32(buf[:], typeLen)
		addr := f.zfs.namemapField(f.id, fieldTypeLen)
		if err := f.zfs.super.Program(addr, buf[:]); err != nil {
			return wrap(err, "close: program type/size for id %d", f.id)
		}
	}
	f.mode = modeClosed
	return nil
}

// Read implements io.Reader over an open read-mode file, copying bytes
// sector by sector and following the sector-map chain for this file's id
// at sector boundaries (spec §4.6).
func (f *File) Read(buf []byte) (int, error) {
	if f.mode != modeReadOnly {
		return 0, errInvalidFp
	}
	if f.read >= f.size {
		return 0, io.EOF
	}
	remaining := int(f.size - f.read)
	if len(buf) > remaining {
		buf = buf[:remaining]
	}
	total := 0
	z := f.zfs
	for len(buf) > 0 {
		l := len(buf)
		if max := z.cfg.SectorSize - f.pos; l > max {
			l = max
		}
		if err := z.flash.Read(uint32(f.sector*z.cfg.SectorSize+f.pos), buf[:l]); err != nil {
			return total, wrap(errOpen, "read id %d sector %d", f.id, f.sector)
		}
		buf = buf[l:]
		f.pos += l
		total += l
		f.read += uint32(l)
		if f.pos >= z.cfg.SectorSize {
			next := z.findSectorOfType(f.sector, byte(f.id))
			if next < 0 {
				return total, nil
			}
			f.sector = next
			f.pos = 0
		}
	}
	return total, nil
}

// Seek repositions a read-mode file. A negative pos is relative to the
// end of the file; out-of-range positions fail with ErrArg.
func (f *File) Seek(pos int32) error {
	if f.mode != modeReadOnly {
		return errWriteMode
	}
	abs := pos
	if abs < 0 {
		abs = int32(f.size) + pos
	}
	if abs < 0 || uint32(abs) > f.size {
		return errArg
	}

	z := f.zfs
	e := z.namemapEntry(f.id)
	firstBlockFill := z.cfg.SectorSize - int(e.FirstOffset)
	sec := int(e.FirstSector)
	remaining := int(abs)

	if remaining > firstBlockFill {
		dec := firstBlockFill
		for {
			next := z.findSectorOfType(sec, byte(f.id))
			if next < 0 {
				return errOverflow
			}
			sec = next
			remaining -= dec
			dec = z.cfg.SectorSize
			if remaining < z.cfg.SectorSize {
				break
			}
		}
		f.sector = sec
		f.pos = remaining
	} else {
		f.sector = sec
		f.pos = int(e.FirstOffset) + remaining
	}
	f.read = uint32(abs)
	return nil
}

// Write implements io.Writer over an open write-mode file, programming
// sector-bounded slices and allocating a new sector at each boundary,
// matching zerofs_write including NoSpace cleanup and optional verify.
func (f *File) Write(buf []byte) (int, error) {
	if f.mode != modeWriteOnly {
		return 0, errInvalidFp
	}
	z := f.zfs
	sm := z.sm.active()
	total := 0
	for len(buf) > 0 {
		l := z.cfg.SectorSize - f.pos
		if l > len(buf) {
			l = len(buf)
		}
		if l > 0 {
			addr := uint32(f.sector*z.cfg.SectorSize + f.pos)
			if err := z.flash.Program(addr, buf[:l]); err != nil {
				return total, wrap(errBadSector, "write id %d sector %d", f.id, f.sector)
			}
			if bad, err := z.maybeVerify(f.sector, addr, buf[:l]); err != nil {
				return total, err
			} else if bad {
				sm[f.sector] = mapBad
				return total, errBadSector
			}
			buf = buf[l:]
			f.pos += l
			f.size += uint32(l)
			total += l
			z.meta.LastWritten = uint16(f.sector)
			z.meta.LastWrittenLen = uint16(f.pos)
		}
		if l == 0 {
			f.flags &^= fileNoMore
			s := z.findFreeBlock()
			if s < 0 {
				for i := range sm {
					if int(sm[i]) == f.id {
						sm[i] = mapEmpty
					}
				}
				f.mode = modeClosed
				return total, errNoSpace
			}
			f.sector = s
			f.pos = 0
			if sm[s] != mapErased {
				if err := z.flash.Erase(uint32(s*z.cfg.SectorSize), uint32(z.cfg.SectorSize), false); err != nil {
					return total, wrap(err, "write: erase sector %d", s)
				}
			}
			sm[s] = byte(f.id)
		}
	}
	return total, nil
}

// maybeVerify performs the sampled CRC-8 readback check when
// Config.VerifyPeriod is non-zero, counting down once per program call.
func (z *ZeroFS) maybeVerify(sector int, addr uint32, written []byte) (bad bool, err error) {
	if z.cfg.VerifyPeriod <= 0 {
		return false, nil
	}
	z.verifyCountdown--
	if z.verifyCountdown > 0 {
		return false, nil
	}
	z.verifyCountdown = z.cfg.VerifyPeriod
	want := crc8(written, 0)
	readback := make([]byte, len(written))
	if err := z.flash.Read(addr, readback); err != nil {
		return false, wrap(errOpen, "verify read sector %d", sector)
	}
	return crc8(readback, 0) != want, nil
}

// Append locates an existing file, takes over its sector chain under a
// fresh namemap id, and positions the handle write-only at its end,
// matching zerofs_append.
func (z *ZeroFS) Append(name string) (*File, error) {
	if z.IsReadOnly() {
		return nil, errReadMode
	}
	packed, typ, err := encodeName(z.cfg, name)
	if err != nil {
		return nil, err
	}
	id, ok := z.findByName(packed, typ)
	if !ok {
		return nil, wrap(errNotFound, "append %q", name)
	}

	ni, err := z.findSlot()
	if err != nil {
		return nil, err
	}

	old := z.namemapEntry(id)
	f := &File{zfs: z, id: ni, typ: typ, size: old.size()}
	f.pos = int(old.size()+uint32(old.FirstOffset)) % z.cfg.SectorSize

	sm := z.sm.active()
	n := z.numberOfSectors()
	sec := int(old.FirstSector)
	remaining := int(old.size()) - (z.cfg.SectorSize - int(old.FirstOffset))
	for remaining > 0 {
		next := -1
		for i := 1; i < n; i++ {
			cand := (sec + i) % n
			if int(sm[cand]) == id {
				next = cand
				break
			}
		}
		if next < 0 {
			return nil, errOverflow
		}
		sec = next
		remaining -= z.cfg.SectorSize
	}
	f.sector = sec

	if f.pos == 0 {
		s := z.findFreeBlock()
		if s < 0 {
			return nil, errNoSpace
		}
		f.sector = s
		sm[s] = byte(ni)
	}

	for i := range sm {
		if int(sm[i]) == id {
			sm[i] = byte(ni)
		}
	}

	entry := namemapEntry{
		Name:        packed,
		FirstSector: old.FirstSector,
		FirstOffset: old.FirstOffset,
		TypeLen:     inProgressTypeLen,
	}
	layout := newBankLayout(z.cfg)
	addr := uint32(z.bank*z.cfg.SuperSectorSize) + uint32(layout.namemapOffset()) + uint32(ni*namemapEntrySize)
	if err := z.super.Program(addr, packNamemapEntry(entry)); err != nil {
		return nil, wrap(err, "append %q: program namemap entry", name)
	}
	var zero [namemapEntrySize]byte
	oldAddr := uint32(z.bank*z.cfg.SuperSectorSize) + uint32(layout.namemapOffset()) + uint32(id*namemapEntrySize)
	if err := z.super.Program(oldAddr, zero[:]); err != nil {
		return nil, wrap(err, "append %q: clear old namemap entry", name)
	}

	f.mode = modeWriteOnly
	return f, nil
}
