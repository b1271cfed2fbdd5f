package zerofs

import (
	"log/slog"
)

// ZeroFS is one mounted instance of the filesystem. It owns the RAM
// sector-map when in write mode, the bank index, the RAM metadata working
// copy, and a borrowed reference to the flash vtables. The zero value is
// not usable; construct with New.
type ZeroFS struct {
	cfg   Config
	flash Flash
	super SuperFlash

	bank int
	sm   *sectorMap
	meta metadata

	lastNamemapID int
	erasedMax     int

	verifyCountdown int

	log *slog.Logger
}

// Option configures optional behavior on New.
type Option func(*ZeroFS)

// WithLogger overrides the default logger (slog.Default()). A nil logger
// leaves the default in place.
func WithLogger(l *slog.Logger) Option {
	return func(z *ZeroFS) {
		if l != nil {
			z.log = l
		}
	}
}

// New binds a ZeroFS instance to the given flash vtables and config,
// booting from whichever super bank carries the winning version (spec
// §8: smaller version wins; both 0xFFFE means empty, bank 0 is chosen).
func New(cfg Config, flash Flash, super SuperFlash, opts ...Option) (*ZeroFS, error) {
	if flash == nil || super == nil {
		return nil, errArg
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	z := &ZeroFS{
		cfg:   cfg,
		flash: flash,
		super: super,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(z)
	}

	bankSize := cfg.SuperSectorSize
	meta0 := unpackMetadata(readBankRegion(z.super.Bank(0, bankSize), cfg, regionMeta))
	meta1 := unpackMetadata(readBankRegion(z.super.Bank(1, bankSize), cfg, regionMeta))
	if versionOrder(meta1.Version, meta0.Version) {
		z.bank = 1
		z.meta = meta1
	} else {
		z.bank = 0
		z.meta = meta0
	}

	z.sm = newSectorMap(z.activeBankSectorMap())
	z.scanLastNamemapID()
	z.verifyCountdown = cfg.VerifyPeriod

	z.log.Debug("zerofs mounted", "bank", z.bank, "version", z.meta.Version, "lastNamemapID", z.lastNamemapID)
	return z, nil
}

type bankRegion int

const (
	regionSectorMap bankRegion = iota
	regionNamemap
	regionMeta
)

func readBankRegion(bank []byte, cfg Config, region bankRegion) []byte {
	layout := newBankLayout(cfg)
	switch region {
	case regionSectorMap:
		return bank[layout.sectorMapOffset():layout.namemapOffset()]
	case regionNamemap:
		return bank[layout.namemapOffset():layout.metaOffset()]
	default:
		return bank[layout.metaOffset() : layout.metaOffset()+metadataSize]
	}
}

func (z *ZeroFS) activeBank() []byte {
	return z.super.Bank(z.bank, z.cfg.SuperSectorSize)
}

func (z *ZeroFS) activeBankSectorMap() []byte {
	return readBankRegion(z.activeBank(), z.cfg, regionSectorMap)
}

func (z *ZeroFS) namemapEntry(id int) namemapEntry {
	layout := newBankLayout(z.cfg)
	off := layout.namemapOffset() + id*namemapEntrySize
	return unpackNamemapEntry(z.activeBank()[off : off+namemapEntrySize])
}

// scanLastNamemapID recomputes the "one past the last live entry" cursor
// by scanning the whole table, matching zerofs_init.
func (z *ZeroFS) scanLastNamemapID() {
	z.lastNamemapID = 0
	for i := 0; i < z.cfg.MaxFiles; i++ {
		e := z.namemapEntry(i)
		if e.TypeLen != 0 && e.TypeLen != inProgressTypeLen {
			z.lastNamemapID = i + 1
		}
	}
}

// IsReadOnly reports whether the instance is currently in read mode (no
// RAM sector map materialized).
func (z *ZeroFS) IsReadOnly() bool {
	return !z.sm.writable()
}

func (z *ZeroFS) numberOfSectors() int {
	return z.cfg.numberOfSectors()
}

// block returns the sector index i positions after lastWritten, wrapping
// circularly, matching the ZEROFS_BLOCK macro.
func (z *ZeroFS) block(i int) int {
	return (int(z.meta.LastWritten) + i) % z.numberOfSectors()
}

// Format erases both superblock banks and resets the in-RAM bookkeeping,
// matching zerofs_format. It leaves the instance in read mode; the next
// EnterWriteMode call observes a freshly-erased, empty filesystem.
func (z *ZeroFS) Format() error {
	z.sm.ram = nil
	z.meta.LastWritten = 0
	z.meta.LastWrittenLen = 0
	z.lastNamemapID = 0
	z.erasedMax = 0
	if err := z.super.Erase(0, uint32(z.cfg.SuperSectorSize), false); err != nil {
		return wrap(err, "format: erase bank 0")
	}
	if err := z.super.Erase(uint32(z.cfg.SuperSectorSize), uint32(z.cfg.SuperSectorSize), false); err != nil {
		return wrap(err, "format: erase bank 1")
	}
	z.sm.flash = z.activeBankSectorMap()
	z.log.Info("zerofs formatted")
	return nil
}

// EnterWriteMode materializes the RAM sector map and enables mutating
// operations. It is idempotent: calling it while already in write mode is
// a no-op. Per spec §5, this must be called before create/write/delete/
// append.
func (z *ZeroFS) EnterWriteMode() error {
	if z.sm.writable() {
		return nil
	}
	z.sm.enterWriteMode(z.numberOfSectors(), int(z.meta.LastWritten), z.erasedMax)
	z.erasedMax = 0
	return nil
}

// EnterReadMode forces a repack to publish any pending RAM changes, then
// switches to read mode. A no-op if already read-only.
func (z *ZeroFS) EnterReadMode() error {
	if !z.sm.writable() {
		return nil
	}
	if err := z.repackSuperblock(); err != nil {
		return err
	}
	z.sm.enterReadMode(z.activeBankSectorMap())
	return nil
}

// repackSuperblock atomically publishes the RAM sector map and metadata
// to the inactive bank, compacting deleted namemap entries, then flips
// the active bank. See spec §4.5 and DESIGN.md for the step-by-step
// grounding in zerofs_repack_superblock.
func (z *ZeroFS) repackSuperblock() error {
	if !z.sm.writable() {
		return nil
	}
	nb := z.bank ^ 1
	nbBase := uint32(nb * z.cfg.SuperSectorSize)
	layout := newBankLayout(z.cfg)

	// 1. Erase the inactive bank.
	if err := z.super.Erase(nbBase, uint32(z.cfg.SuperSectorSize), false); err != nil {
		return wrap(err, "repack: erase bank %d", nb)
	}

	// 2. Walk the active bank's namemap, compacting live entries into the
	// inactive bank and decrementing sector-map ids for each deleted one.
	sm := z.sm.ram
	addr := nbBase + uint32(layout.namemapOffset())
	deletedSoFar, nextID := 0, 0
	limit := z.lastNamemapID + 1
	if limit > z.cfg.MaxFiles {
		limit = z.cfg.MaxFiles
	}
	for id := 0; id < limit; id++ {
		e := z.namemapEntry(id)
		if !e.repackValid() {
			threshold := id - deletedSoFar
			for j := range sm {
				if sm[j] < mapBad && int(sm[j]) > threshold {
					sm[j]--
				}
			}
			deletedSoFar++
			continue
		}
		if err := z.super.Program(addr, packNamemapEntry(e)); err != nil {
			return wrap(err, "repack: program namemap entry %d", id)
		}
		addr += namemapEntrySize
		nextID++
	}
	z.lastNamemapID = nextID

	// 3. Program the compacted RAM sector map.
	if err := z.super.Program(nbBase, sm); err != nil {
		return wrap(err, "repack: program sector map")
	}

	// 4. Decrement version, wrapping 1 -> 0xFFFE.
	z.meta.Version--
	if z.meta.Version == 0 {
		z.meta.Version = superblockVersionMax
	}

	// 5. Program metadata.
	metaAddr := nbBase + uint32(layout.metaOffset())
	if err := z.super.Program(metaAddr, packMetadata(z.meta)); err != nil {
		return wrap(err, "repack: program metadata")
	}

	// 6. If version reached the reset sentinel (a wrap from 1, or the
	// first decrement from an erased bank's 0xFFFF), erase the old bank
	// too, restoring ground state on both banks.
	if z.meta.Version == superblockVersionMax {
		oldBase := uint32(z.bank * z.cfg.SuperSectorSize)
		if err := z.super.Erase(oldBase, uint32(z.cfg.SuperSectorSize), false); err != nil {
			return wrap(err, "repack: erase wrapped bank %d", z.bank)
		}
	}

	// 7. Flip the active bank.
	z.log.Debug("repack complete", "from_bank", z.bank, "to_bank", nb, "version", z.meta.Version, "deleted", deletedSoFar)
	z.bank = nb
	return nil
}

// findFreeBlock scans the sector map in a one-pass circular order starting
// at lastWritten, preferring the first ERASED cell; failing that, the
// first EMPTY cell seen in the same pass. Returns -1 if neither exists.
func (z *ZeroFS) findFreeBlock() int {
	sm := z.sm.active()
	n := z.numberOfSectors()
	free := -1
	for i := 0; i < n; i++ {
		sec := z.block(i)
		if sm[sec] == mapErased {
			return sec
		}
		if free < 0 && sm[sec] == mapEmpty {
			free = sec
		}
	}
	return free
}

// findSectorOfType circularly scans forward from "from" (exclusive) for
// the next sector whose map cell equals typ, wrapping modulo
// numberOfSectors. Returns -1 if none found within one full pass.
func (z *ZeroFS) findSectorOfType(from int, typ byte) int {
	sm := z.sm.active()
	n := z.numberOfSectors()
	for i := 1; i < n; i++ {
		sec := (from + i) % n
		if sm[sec] == typ {
			return sec
		}
	}
	return -1
}

// findSlot returns the next free namemap slot id, triggering a repack and
// retrying once if the table is full.
func (z *ZeroFS) findSlot() (int, error) {
	if z.IsReadOnly() {
		return -1, errReadMode
	}
	id := z.lastNamemapID
	z.lastNamemapID++
	if z.lastNamemapID >= z.cfg.MaxFiles {
		if err := z.repackSuperblock(); err != nil {
			return -1, err
		}
		id = z.lastNamemapID
		if id >= z.cfg.MaxFiles {
			return -1, errMaxFiles
		}
		z.lastNamemapID++
	}
	return id, nil
}

// Usage reports free/used/bad sector counts and the live file count for
// the active bank, decoded via decodeBank the way a debug/inspection tool
// would read the mapped super-flash view directly rather than going
// through the dual-mode sectorMap accessor.
type Usage struct {
	SectorSize  int
	FreeSectors int
	UsedSectors int
	BadSectors  int
	Files       int
}

func (z *ZeroFS) Usage() Usage {
	sm, entries, _ := decodeBank(z.cfg, z.activeBank())
	u := Usage{SectorSize: z.cfg.SectorSize}
	for _, v := range sm {
		switch v {
		case mapEmpty, mapErased:
			u.FreeSectors++
		case mapBad:
			u.BadSectors++
		default:
			u.UsedSectors++
		}
	}
	for _, e := range entries {
		if e.live() {
			u.Files++
		}
	}
	return u
}

// claimBlock erases sec if it is EMPTY and marks it owned by id in the
// sector map, matching the create/write "allocate a fresh sector" step.
func (z *ZeroFS) claimBlock(sec int, id byte) error {
	sm := z.sm.active()
	if sm[sec] == mapEmpty {
		if err := z.flash.Erase(uint32(sec*z.cfg.SectorSize), uint32(z.cfg.SectorSize), false); err != nil {
			return wrap(err, "erase sector %d", sec)
		}
		sm[sec] = mapErased
	}
	if sm[sec] == mapErased {
		z.sm.set(sec, id)
	}
	return nil
}
