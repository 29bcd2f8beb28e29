package hwio

import (
	"fmt"

	"fusionx/emu/log"
)

const (
	AddrSpace   = 0x10000 // Z80 address space is 64K
	Granularity = 1       // bytes per block
	NumBlocks   = AddrSpace / Granularity

	MaxTarget = 1<<24 - 1
)

// Entry is one page table slot: the backing store kind and the offset of the
// block within that store.
type Entry struct {
	Kind   Kind
	Target uint32 // 24 bits
}

// Pack returns the entry in its 32-bit form, kind in the top byte.
func (e Entry) Pack() uint32 {
	return uint32(e.Kind)<<24 | e.Target&MaxTarget
}

// Unpack is the reverse of Entry.Pack.
func Unpack(v uint32) Entry {
	return Entry{Kind: Kind(v >> 24), Target: v & MaxTarget}
}

func (e Entry) String() string {
	return fmt.Sprintf("%s:%06X", e.Kind, e.Target)
}

// Block returns the block index containing addr.
func Block(addr uint16) uint16 { return addr / Granularity }

// PageTable maps every block of the address space to an Entry. The zero
// value of an entry is Inhibited so the table is always total.
//
// A PageTable holds no lock. It is written by the control path while the
// execution goroutine is quiesced, or by the execution goroutine itself from
// the bus path.
type PageTable struct {
	Name string

	entries [NumBlocks]Entry
	shadow  *ShadowPage
}

func NewPageTable(name string) *PageTable {
	return &PageTable{Name: name}
}

// Lookup returns the entry for the block containing addr.
func (t *PageTable) Lookup(addr uint16) Entry {
	return t.entries[Block(addr)]
}

// WriteEntry overwrites one block.
func (t *PageTable) WriteEntry(block uint16, kind Kind, target uint32) {
	if !kind.Valid() {
		log.ModHwIo.ErrorZ("invalid kind, block inhibited").
			String("table", t.Name).
			Hex16("block", block).
			Uint("kind", uint(kind)).
			End()
		kind, target = Inhibited, 0
	}
	t.entries[block] = Entry{Kind: kind, Target: target & MaxTarget}
}

// MapRange assigns kind to every block of the inclusive range [begin, end],
// with target = base + (addr - begin).
func (t *PageTable) MapRange(begin, end uint16, kind Kind, base uint32) {
	log.ModHwIo.DebugZ("map range").
		String("table", t.Name).
		Hex16("begin", begin).
		Hex16("end", end).
		Stringer("kind", kind).
		Hex32("base", base).
		End()

	for addr := uint32(begin); addr <= uint32(end); addr += Granularity {
		t.WriteEntry(Block(uint16(addr)), kind, base+addr-uint32(begin))
	}
}

// Reset inhibits the whole table and drops the shadow.
func (t *PageTable) Reset() {
	t.entries = [NumBlocks]Entry{}
	t.shadow = nil
}

// CopyFrom replaces t contents with those of src. The shadow is not copied.
func (t *PageTable) CopyFrom(src *PageTable) {
	t.entries = src.entries
}

// Snapshot returns a copy of the entries in [begin, end].
func (t *PageTable) Snapshot(begin, end uint16) []Entry {
	return append([]Entry(nil), t.entries[Block(begin):int(Block(end))+1]...)
}

// Backup copies the entries of [begin, end] to the shadow page, overwriting
// any previous backup of these blocks.
func (t *PageTable) Backup(begin, end uint16) {
	sp := t.shadowPage()
	for addr := uint32(begin); addr <= uint32(end); addr += Granularity {
		sp.save(Block(uint16(addr)), t.entries[Block(uint16(addr))])
	}
}

// Restore copies back the shadowed entries of [begin, end]. Blocks that were
// never backed up are left untouched.
func (t *PageTable) Restore(begin, end uint16) {
	if t.shadow == nil {
		return
	}
	for addr := uint32(begin); addr <= uint32(end); addr += Granularity {
		blk := Block(uint16(addr))
		if e, ok := t.shadow.take(blk); ok {
			t.entries[blk] = e
		}
	}
}

// Inhibit backs up [begin, end] then tags it Inhibited. Inhibit is single
// level: blocks still shadowed from a previous Inhibit keep their first
// backup, so that Restore always brings back the pre-inhibit mapping.
func (t *PageTable) Inhibit(begin, end uint16) {
	sp := t.shadowPage()
	nested := false
	for addr := uint32(begin); addr <= uint32(end); addr += Granularity {
		blk := Block(uint16(addr))
		if sp.saved.test(blk) {
			nested = true
		} else {
			sp.save(blk, t.entries[blk])
		}
		t.entries[blk] = Entry{Kind: Inhibited}
	}
	if nested {
		log.ModHwIo.WarnZ("nested inhibit, keeping first backup").
			String("table", t.Name).
			Hex16("begin", begin).
			Hex16("end", end).
			End()
	}
}

// Shadowed reports whether the block holding addr has a pending backup.
func (t *PageTable) Shadowed(addr uint16) bool {
	return t.shadow != nil && t.shadow.saved.test(Block(addr))
}

func (t *PageTable) shadowPage() *ShadowPage {
	if t.shadow == nil {
		t.shadow = new(ShadowPage)
	}
	return t.shadow
}

// ShadowPage is the single level backup buffer used by inhibit transitions.
type ShadowPage struct {
	entries [NumBlocks]Entry
	saved   blockSet
}

func (sp *ShadowPage) save(blk uint16, e Entry) {
	sp.entries[blk] = e
	sp.saved.set(blk)
}

func (sp *ShadowPage) take(blk uint16) (Entry, bool) {
	if !sp.saved.test(blk) {
		return Entry{}, false
	}
	sp.saved.clear(blk)
	return sp.entries[blk], true
}

// blockSet is a bitset with one bit per block.
type blockSet [NumBlocks / 64]uint64

func (s *blockSet) set(blk uint16)       { s[blk/64] |= 1 << (blk % 64) }
func (s *blockSet) clear(blk uint16)     { s[blk/64] &^= 1 << (blk % 64) }
func (s *blockSet) test(blk uint16) bool { return s[blk/64]&(1<<(blk%64)) != 0 }
