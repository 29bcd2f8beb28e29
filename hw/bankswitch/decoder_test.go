package bankswitch_test

import (
	"errors"
	"testing"

	"fusionx/hw/bankswitch"
	"fusionx/hw/hwio"
	"fusionx/hw/mode"
)

func wantEntry(tb testing.TB, t *hwio.PageTable, addr uint16, kind hwio.Kind, target uint32) {
	tb.Helper()
	want := hwio.Entry{Kind: kind, Target: target}
	if got := t.Lookup(addr); got != want {
		tb.Errorf("Lookup(%04X) = %v, want %v", addr, got, want)
	}
}

func newDecoder(board mode.Board, p mode.Profile) (*bankswitch.Decoder, *mode.Bank) {
	bank := mode.NewBank(mode.NumModes, mode.TZFS)
	bank.Reset(board.Default(p), nil)
	d := bankswitch.New(board, bank, nil)
	d.Reset(p)
	return d, bank
}

func TestMZ80AMonitorSwap(t *testing.T) {
	d, bank := newDecoder(mode.MZ80A, mode.Virtual)

	d.Decode(0xE00D, 0, false, true)
	if !d.Swapped() {
		t.Fatal("read of E00D did not swap")
	}
	wantEntry(t, bank.Active(), 0x0000, hwio.VirtualRAM, 0xC000)
	wantEntry(t, bank.Active(), 0xC123, hwio.VirtualROM, 0x0123)

	// Writes never trigger the swap.
	d.Decode(0xE011, 0, false, false)
	if !d.Swapped() {
		t.Fatal("write of E011 reverted the swap")
	}

	d.Decode(0xE012, 0, false, true)
	if d.Swapped() {
		t.Fatal("read of E012 did not revert")
	}
	wantEntry(t, bank.Active(), 0x0000, hwio.VirtualROM, 0)
	wantEntry(t, bank.Active(), 0xC123, hwio.VirtualRAM, 0xC123)
}

func TestMZ700Inhibit(t *testing.T) {
	d, bank := newDecoder(mode.MZ700, mode.Virtual)
	tbl := bank.Active()

	d.Decode(0xE0, 0, true, false)
	wantEntry(t, tbl, 0x0800, hwio.VirtualRAM, 0x0800)
	d.Decode(0xE1, 0, true, false)
	wantEntry(t, tbl, 0xD000, hwio.VirtualRAM, 0xD000)

	d.Decode(0xE5, 0, true, false)
	if !d.Inhibited() {
		t.Fatal("E5 did not inhibit")
	}
	wantEntry(t, tbl, 0xE000, hwio.Inhibited, 0)

	// Inhibited: E3 must not remap the upper range.
	d.Decode(0xE3, 0, true, false)
	wantEntry(t, tbl, 0xE000, hwio.Inhibited, 0)

	d.Decode(0xE6, 0, true, false)
	wantEntry(t, tbl, 0xE000, hwio.VirtualRAM, 0xE000)

	d.Decode(0xE4, 0, true, false)
	wantEntry(t, tbl, 0x0000, hwio.VirtualROM, 0)
	wantEntry(t, tbl, 0xD000, hwio.PhysicalVRAM, 0xD000)
	wantEntry(t, tbl, 0xE008, hwio.PhysicalHW, 0xE008)

	// Reads of the ports do nothing.
	d.Decode(0xE0, 0, true, true)
	wantEntry(t, tbl, 0x0000, hwio.VirtualROM, 0)
}

func TestMZ2000Boot(t *testing.T) {
	d, bank := newDecoder(mode.MZ2000, mode.Virtual)
	resets := 0
	d.ResetCPU = func() { resets++ }

	wantEntry(t, bank.Active(), 0x8000, hwio.VirtualRAM, 0)

	// PIO A bit 7: graphics VRAM, then revert with the IPL low swap.
	d.Decode(0xE8, 0, true, false)
	d.Decode(0xE8, 0x80, true, false)
	wantEntry(t, bank.Active(), 0xC000, hwio.PhysicalVRAM, 0xC000)
	d.Decode(0xE8, 0x00, true, false)
	wantEntry(t, bank.Active(), 0xC000, hwio.VirtualRAM, 0x4000)

	// NST set.
	d.Decode(0xE3, 0x03, true, false)
	if resets != 1 {
		t.Fatalf("resets = %d, want 1", resets)
	}
	wantEntry(t, bank.Active(), 0x0000, hwio.VirtualRAM, 0)
	wantEntry(t, bank.Active(), 0x8000, hwio.VirtualRAM, 0x8000)

	d.Decode(0xE8, 0xC0, true, false)
	wantEntry(t, bank.Active(), 0xD000, hwio.PhysicalVRAM, 0xD000)
	wantEntry(t, bank.Active(), 0xD800, hwio.VirtualRAM, 0xD800)
	d.Decode(0xE8, 0x00, true, false)
	wantEntry(t, bank.Active(), 0xC000, hwio.VirtualRAM, 0xC000)

	// IPL reset through port C brings back the boot layout.
	d.Decode(0xE2, 0x00, true, false)
	wantEntry(t, bank.Active(), 0x0000, hwio.VirtualROM, 0)
	wantEntry(t, bank.Active(), 0x8000, hwio.VirtualRAM, 0)
	if resets != 1 {
		t.Fatalf("resets = %d, want 1", resets)
	}
}

func TestMZ2000HostNST(t *testing.T) {
	d, bank := newDecoder(mode.MZ2000, mode.Host)
	d.Decode(0xE3, 0x03, true, false)
	wantEntry(t, bank.Active(), 0x0000, hwio.PhysicalRAM, 0)
	wantEntry(t, bank.Active(), 0xFFFF, hwio.PhysicalRAM, 0xFFFF)
}

func TestSelect(t *testing.T) {
	bank := mode.NewBank(2, mode.TZFS)
	orig, _ := mode.TZFS(mode.ModeOrig)
	bank.Reset(orig, nil)
	d := bankswitch.New(mode.MZ80A, bank, nil)

	if err := d.Select(mode.ModeTZFS); err != nil {
		t.Fatalf("Select(TZFS) = %v", err)
	}
	if err := d.Select(mode.ModeCPM); !errors.Is(err, mode.ErrOutOfMemory) {
		t.Fatalf("Select(CPM) = %v, want ErrOutOfMemory", err)
	}
	if got := bank.ActiveID(); got != mode.ModeTZFS {
		t.Fatalf("active = %v after refused switch, want %v", got, mode.ModeTZFS)
	}
	if err := d.Select(0x1F); !errors.Is(err, mode.ErrUnsupportedMode) {
		t.Fatalf("Select(1F) = %v, want ErrUnsupportedMode", err)
	}
	if got := bank.ActiveID(); got != mode.ModeTZFS {
		t.Fatalf("active = %v after unsupported switch, want %v", got, mode.ModeTZFS)
	}
}
