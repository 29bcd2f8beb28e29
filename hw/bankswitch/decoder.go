package bankswitch

import (
	"errors"

	"fusionx/emu/log"
	"fusionx/hw/hwio"
	"fusionx/hw/mode"
	"fusionx/hw/vdev"
)

// Decoder watches the accesses going out on the host bus and rebuilds the
// memory map when the guest touches one of the board bank switch triggers.
// It runs on the execution goroutine, between two table lookups.
type Decoder struct {
	board   mode.Board
	bank    *mode.Bank
	devs    *vdev.Set
	profile mode.Profile

	// ResetCPU is called when a bank switch also resets the CPU.
	ResetCPU func()

	swapped   bool // MZ-80A monitor swap
	inhibited bool // MZ-700 D000-FFFF inhibited
	lowSwap   bool // MZ-2000 IPL, RAM seen at 8000
	vramPaged bool // MZ-2000 VRAM paged in C000-FFFF
}

func New(board mode.Board, bank *mode.Bank, devs *vdev.Set) *Decoder {
	d := &Decoder{board: board, bank: bank, devs: devs}
	d.Reset(mode.Virtual)
	return d
}

// Reset clears the decoding state, to be called after the mode bank has been
// reset.
func (d *Decoder) Reset(p mode.Profile) {
	d.profile = p
	d.swapped, d.inhibited, d.vramPaged = false, false, false
	d.lowSwap = true
}

// Select makes id the active mode, for the control latch. Errors are logged
// and the active mode is left unchanged.
func (d *Decoder) Select(id mode.ID) error {
	fresh, err := d.bank.Select(id)
	switch {
	case errors.Is(err, mode.ErrUnsupportedMode):
		log.ModMode.WarnZ("unsupported mode ignored").Hex8("mode", uint8(id)).End()
	case err != nil:
		log.ModMode.ErrorZ("mode switch refused").
			Stringer("mode", id).
			Stringer("active", d.bank.ActiveID()).
			Error("err", err).
			End()
	default:
		log.ModMode.DebugZ("mode switch").Stringer("mode", id).Bool("fresh", fresh).End()
	}
	return err
}

// Decode inspects a host bus access. Installed devices get the first chance
// to handle it.
func (d *Decoder) Decode(addr uint16, data uint8, io, read bool) {
	if d.devs != nil && d.devs.Decode(addr, data, io, read) {
		return
	}

	switch d.board {
	case mode.MZ80A:
		if !io && read {
			d.decodeMZ80A(addr)
		}
	case mode.MZ700:
		if io && !read {
			d.decodeMZ700(uint8(addr))
		}
	case mode.MZ2000:
		if io && !read {
			d.decodeMZ2000(uint8(addr), data)
		}
	}
}

func (d *Decoder) table() *hwio.PageTable { return d.bank.Active() }

// decodeMZ80A handles the read-triggered monitor ROM swap between 0000 and
// C000.
func (d *Decoder) decodeMZ80A(addr uint16) {
	t := d.table()
	switch {
	case addr >= 0xE00C && addr <= 0xE00F:
		if d.swapped {
			return
		}
		t.MapRange(0x0000, 0x0FFF, hwio.VirtualRAM, 0xC000)
		t.MapRange(0xC000, 0xCFFF, hwio.VirtualROM, 0)
		d.swapped = true
	case addr >= 0xE010 && addr <= 0xE013:
		if !d.swapped {
			return
		}
		t.MapRange(0x0000, 0x0FFF, hwio.VirtualROM, 0)
		t.MapRange(0xC000, 0xCFFF, hwio.VirtualRAM, 0xC000)
		d.swapped = false
	default:
		return
	}
	log.ModMode.DebugZ("mz80a monitor swap").Hex16("addr", addr).Bool("swapped", d.swapped).End()
}

// mapUpperIO maps the MZ-700 D000-FFFF range to video RAM and memory mapped
// peripherals.
func mapUpperIO(t *hwio.PageTable) {
	t.MapRange(0xD000, 0xDFFF, hwio.PhysicalVRAM, 0xD000)
	t.MapRange(0xE000, 0xFFFF, hwio.PhysicalHW, 0xE000)
}

//	      |0000:0FFF|1000:CFFF|D000:FFFF
//	------------------------------------
//	OUT E0 |DRAM     |         |
//	OUT E1 |         |         |DRAM
//	OUT E2 |MONITOR  |         |
//	OUT E3 |         |         |Memory Mapped I/O
//	OUT E4 |MONITOR  |DRAM     |Memory Mapped I/O
//	OUT E5 |         |         |Inhibit
//	OUT E6 |         |         |<return>
func (d *Decoder) decodeMZ700(port uint8) {
	t := d.table()
	switch port {
	case 0xE0:
		t.MapRange(0x0000, 0x0FFF, hwio.VirtualRAM, 0)
	case 0xE1:
		if !d.inhibited {
			t.MapRange(0xD000, 0xFFFF, hwio.VirtualRAM, 0xD000)
		}
	case 0xE2:
		t.MapRange(0x0000, 0x0FFF, hwio.VirtualROM, 0)
	case 0xE3:
		if !d.inhibited {
			mapUpperIO(t)
		}
	case 0xE4:
		t.MapRange(0x0000, 0x0FFF, hwio.VirtualROM, 0)
		if !d.inhibited {
			mapUpperIO(t)
		}
	case 0xE5:
		t.Inhibit(0xD000, 0xFFFF)
		d.inhibited = true
	case 0xE6:
		t.Restore(0xD000, 0xFFFF)
		d.inhibited = false
	default:
		return
	}
	log.ModMode.DebugZ("mz700 memory port").Hex8("port", port).Bool("inhibited", d.inhibited).End()
}

const (
	mz2000PPIC   = 0xE2
	mz2000PPICtl = 0xE3
	mz2000PIOA   = 0xE8

	bitNST = 1
	bitIPL = 3
)

func (d *Decoder) decodeMZ2000(port, val uint8) {
	switch port {
	case mz2000PPIC:
		// A direct port C write acts as the matching bit set/reset commands.
		if val&(1<<bitIPL) == 0 {
			d.mz2000Ctl(bitIPL<<1 | 0)
		} else if val&(1<<bitNST) != 0 {
			d.mz2000Ctl(bitNST<<1 | 1)
		}
	case mz2000PPICtl:
		d.mz2000Ctl(val)
	case mz2000PIOA:
		d.mz2000VRAM(val)
	}
}

// mz2000Ctl decodes a PPI bit set/reset command.
func (d *Decoder) mz2000Ctl(val uint8) {
	if val&0x80 != 0 {
		return
	}
	bit, set := (val>>1)&0x07, val&0x01 != 0

	switch {
	case bit == bitNST && set:
		// NST: all RAM, CPU reset.
		t := d.table()
		if d.profile == mode.Host {
			t.MapRange(0x0000, 0xFFFF, hwio.PhysicalRAM, 0)
		} else {
			t.MapRange(0x0000, 0xFFFF, hwio.VirtualRAM, 0)
		}
		d.lowSwap = false
		log.ModMode.DebugZ("mz2000 nst").End()
		if d.ResetCPU != nil {
			d.ResetCPU()
		}
	case bit == bitIPL && !set:
		d.mz2000Default(d.table())
		d.lowSwap = true
		d.vramPaged = false
		log.ModMode.DebugZ("mz2000 ipl").End()
	}
}

func (d *Decoder) mz2000Default(t *hwio.PageTable) {
	t.Reset()
	mode.MZ2000.Default(d.profile).Populate(t)
}

// mz2000VRAM pages the VRAM in and out of C000-FFFF.
func (d *Decoder) mz2000VRAM(val uint8) {
	t := d.table()
	switch {
	case val&0x80 != 0 && val&0x40 != 0:
		t.MapRange(0xD000, 0xD7FF, hwio.PhysicalVRAM, 0xD000)
		d.vramPaged = true
	case val&0x80 != 0:
		t.MapRange(0xC000, 0xFFFF, hwio.PhysicalVRAM, 0xC000)
		d.vramPaged = true
	case d.vramPaged:
		switch {
		case d.profile == mode.Host:
			t.MapRange(0xC000, 0xFFFF, hwio.PhysicalRAM, 0xC000)
		case d.lowSwap:
			t.MapRange(0xC000, 0xFFFF, hwio.VirtualRAM, 0x4000)
		default:
			t.MapRange(0xC000, 0xFFFF, hwio.VirtualRAM, 0xC000)
		}
		d.vramPaged = false
	default:
		return
	}
	log.ModMode.DebugZ("mz2000 vram").Hex8("val", val).Bool("paged", d.vramPaged).End()
}

// Swapped reports whether the MZ-80A monitor swap is active.
func (d *Decoder) Swapped() bool { return d.swapped }

// Inhibited reports whether the MZ-700 upper range is inhibited.
func (d *Decoder) Inhibited() bool { return d.inhibited }
