package hwio_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"fusionx/hw/hwio"
)

type testTable struct {
	t testing.TB
	*hwio.PageTable
}

func newTestTable(tb testing.TB) *testTable {
	return &testTable{t: tb, PageTable: hwio.NewPageTable("test")}
}

func (tbl *testTable) wantLookup(addr uint16, kind hwio.Kind, target uint32) {
	tbl.t.Helper()
	want := hwio.Entry{Kind: kind, Target: target}
	if got := tbl.Lookup(addr); got != want {
		tbl.t.Errorf("Lookup(%04X) = %v, want %v", addr, got, want)
	}
}

func TestPageTableTotal(t *testing.T) {
	tbl := hwio.NewPageTable("total")
	for addr := range hwio.AddrSpace {
		e := tbl.Lookup(uint16(addr))
		if e.Kind != hwio.Inhibited {
			t.Fatalf("Lookup(%04X) = %v on a fresh table, want Inhibited", addr, e)
		}
	}

	tbl.MapRange(0x0000, 0xFFFF, hwio.VirtualRAM, 0x30000)
	for addr := range hwio.AddrSpace {
		if !tbl.Lookup(uint16(addr)).Kind.Valid() {
			t.Fatalf("Lookup(%04X) returned an undefined kind", addr)
		}
	}
}

func TestPageTableMapRange(t *testing.T) {
	tbl := newTestTable(t)
	tbl.MapRange(0x0000, 0x0FFF, hwio.VirtualRAM, 0xC000)
	tbl.MapRange(0xC000, 0xCFFF, hwio.VirtualROM, 0)
	tbl.MapRange(0xFFFF, 0xFFFF, hwio.PhysicalHW, 0xFFFF)

	tbl.wantLookup(0x0000, hwio.VirtualRAM, 0xC000)
	tbl.wantLookup(0x0FFF, hwio.VirtualRAM, 0xCFFF)
	tbl.wantLookup(0x1000, hwio.Inhibited, 0)
	tbl.wantLookup(0xC123, hwio.VirtualROM, 0x123)
	tbl.wantLookup(0xFFFF, hwio.PhysicalHW, 0xFFFF)
}

func TestPageTableTargetIs24Bits(t *testing.T) {
	tbl := newTestTable(t)
	tbl.WriteEntry(0x10, hwio.VirtualRAM, 0x1_23_4567)
	tbl.wantLookup(0x10, hwio.VirtualRAM, 0x234567)

	tbl.WriteEntry(0x11, hwio.Kind(200), 0x10)
	tbl.wantLookup(0x11, hwio.Inhibited, 0)
}

func TestInhibitRestoreRoundTrip(t *testing.T) {
	kinds := []hwio.Kind{
		hwio.PhysicalRAM, hwio.PhysicalROM, hwio.PhysicalVRAM, hwio.PhysicalHW,
		hwio.VirtualRAM, hwio.VirtualROM, hwio.VirtualRAMReadOnly, hwio.VirtualHW,
		hwio.VirtualROMHW, hwio.Inhibited,
	}

	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			tbl := hwio.NewPageTable("inhibit")
			tbl.MapRange(0xD000, 0xFFFF, kind, 0x6D000)
			before := tbl.Snapshot(0xD000, 0xFFFF)

			tbl.Backup(0xD000, 0xFFFF)
			tbl.MapRange(0xD000, 0xFFFF, hwio.Inhibited, 0)
			tbl.Restore(0xD000, 0xFFFF)

			if diff := cmp.Diff(before, tbl.Snapshot(0xD000, 0xFFFF)); diff != "" {
				t.Fatalf("table differs after restore (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInhibitSingleLevel(t *testing.T) {
	tbl := newTestTable(t)
	tbl.MapRange(0xD000, 0xDFFF, hwio.PhysicalVRAM, 0xD000)
	tbl.MapRange(0xE000, 0xFFFF, hwio.PhysicalHW, 0xE000)
	before := tbl.Snapshot(0xD000, 0xFFFF)

	tbl.Inhibit(0xD000, 0xFFFF)
	tbl.wantLookup(0xD000, hwio.Inhibited, 0)
	if !tbl.Shadowed(0xE800) {
		t.Fatalf("Shadowed(E800) = false after Inhibit")
	}

	// A second inhibit must not clobber the first backup.
	tbl.Inhibit(0xD000, 0xFFFF)
	tbl.Restore(0xD000, 0xFFFF)

	if diff := cmp.Diff(before, tbl.Snapshot(0xD000, 0xFFFF)); diff != "" {
		t.Fatalf("table differs after nested inhibit (-want +got):\n%s", diff)
	}
	if tbl.Shadowed(0xE800) {
		t.Fatalf("Shadowed(E800) = true after Restore")
	}

	// Restore without a backup leaves entries alone.
	tbl.MapRange(0xD000, 0xD000, hwio.VirtualRAM, 1)
	tbl.Restore(0xD000, 0xD000)
	tbl.wantLookup(0xD000, hwio.VirtualRAM, 1)
}

func TestEntryPack(t *testing.T) {
	e := hwio.Entry{Kind: hwio.VirtualRAMReadOnly, Target: 0x1E800}
	if got := e.Pack(); got != 0x0701E800 {
		t.Errorf("Pack() = %08X, want %08X", got, 0x0701E800)
	}
	if got := hwio.Unpack(e.Pack()); got != e {
		t.Errorf("Unpack(Pack()) = %v, want %v", got, e)
	}
}

func TestIOPageTable(t *testing.T) {
	io := hwio.NewIOPageTable("io")
	if got := io.Lookup(0x12E0); got != (hwio.IOEntry{Kind: hwio.PhysicalHW, Port: 0x12E0}) {
		t.Fatalf("Lookup(12E0) = %v, want identity PhysicalHW", got)
	}

	io.RouteLocal(0x60)
	for _, port := range []uint16{0x0060, 0x1260, 0xFF60} {
		if got := io.Lookup(port); got.Kind != hwio.VirtualHW || got.Port != port {
			t.Errorf("Lookup(%04X) = %v, want VirtualHW", port, got)
		}
	}
	if got := io.Lookup(0x0061); got.Kind != hwio.PhysicalHW {
		t.Errorf("Lookup(0061) = %v, want PhysicalHW", got)
	}

	io.Route(0x00EA, hwio.VirtualRAM, 0xEA)
	if got := io.Lookup(0x00EA); got.Kind != hwio.PhysicalHW {
		t.Errorf("Route with a memory kind: Lookup(00EA) = %v, want PhysicalHW", got)
	}

	io.RouteHost(0x60)
	if got := io.Lookup(0x1260); got.Kind != hwio.PhysicalHW {
		t.Errorf("Lookup(1260) = %v after RouteHost, want PhysicalHW", got)
	}
}

func TestMem(t *testing.T) {
	m := hwio.NewMem("test", 0x100, hwio.MemFlagReadWrite)
	m.Write8(0x1FF, 0x42)
	if got := m.Read8(0xFF); got != 0x42 {
		t.Errorf("Read8(FF) = %02X, want 42", got)
	}

	m.Load(0xFE, []byte{1, 2, 3})
	if diff := cmp.Diff([]byte{1, 2, 3}, m.Slice(0xFE, 3)); diff != "" {
		t.Errorf("Slice differs (-want +got):\n%s", diff)
	}

	rom := hwio.NewMem("rom", 0x100, hwio.MemFlagNoROLog)
	rom.Poke(0x10, 0xAA)
	rom.Write8(0x10, 0x55)
	if got := rom.Read8(0x10); got != 0xAA {
		t.Errorf("Read8(10) = %02X after write to ROM, want AA", got)
	}
}
