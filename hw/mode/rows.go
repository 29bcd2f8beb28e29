package mode

import (
	"fmt"

	"fusionx/hw/hwio"
)

// BankSize is the size of one local RAM bank.
const BankSize = 0x10000

// Row is one line of a mapping matrix: the inclusive range [Begin, End] of
// the address space gets Kind, with target = Base + (addr - Begin).
type Row struct {
	Begin, End uint16
	Kind       hwio.Kind
	Base       uint32
}

func (r Row) String() string {
	return fmt.Sprintf("%04X-%04X %s@%06X", r.Begin, r.End, r.Kind, r.Base)
}

// Rows are applied in order, a later row overrides the earlier ones.
type Rows []Row

// Populate scans the rows into t, leaving uncovered blocks untouched.
func (rows Rows) Populate(t *hwio.PageTable) {
	for _, r := range rows {
		t.MapRange(r.Begin, r.End, r.Kind, r.Base)
	}
}

// Table returns a new page table populated with rows.
func (rows Rows) Table(name string) *hwio.PageTable {
	t := hwio.NewPageTable(name)
	rows.Populate(t)
	return t
}

// phys maps [begin, end] to a host kind, on itself.
func phys(begin, end uint16, kind hwio.Kind) Row {
	return Row{Begin: begin, End: end, Kind: kind, Base: uint32(begin)}
}

// banked maps [begin, end] to the same offsets inside local bank n.
func banked(begin, end uint16, kind hwio.Kind, n int) Row {
	return Row{Begin: begin, End: end, Kind: kind, Base: uint32(n)*BankSize + uint32(begin)}
}

// local maps [begin, end] to an explicit local target.
func local(begin, end uint16, kind hwio.Kind, base uint32) Row {
	return Row{Begin: begin, End: end, Kind: kind, Base: base}
}

func inhibited(begin, end uint16) Row {
	return Row{Begin: begin, End: end, Kind: hwio.Inhibited}
}
