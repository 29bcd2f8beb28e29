package vdev

import (
	"fmt"
	"os"

	"fusionx/emu/log"
	"fusionx/hw/hwio"
	"fusionx/hw/mode"
)

var RFS = DeviceDesc{
	Name:   "RFS",
	New:    newRFS,
	Boards: []mode.Board{mode.MZ80A},
}

const (
	rfsMROMBase = 0x00000 // 512K monitor ROM
	rfsUROMBase = 0x80000 // first 512K user ROM
	rfsROMSize  = 0x80000

	// Filler of ROM images that failed to load, RST 0 on a Z80.
	missingROMByte = 0xC7
)

// RFS board registers, in the upper part of the user ROM window.
const (
	rfsRegReset   = 0xEFF8 // reset registers to power-up default
	rfsRegDisable = 0xEFF9 // reset the coded latch
	rfsSPIData    = 0xEFFB
	rfsSPIStart   = 0xEFFC
	rfsBankMROM   = 0xEFFD
	rfsBankUROM   = 0xEFFE
	rfsBankCtrl   = 0xEFFF

	// the registers are enabled once the coded latch counted that many
	// accesses to the control region.
	rfsLatchCount = 15
)

// rfs emulates the MZ-80A ROM filing system board: banked monitor and user
// ROM windows and a bit-banged SD card.
type rfs struct {
	env *Env

	bank1, bank2, ctrl uint8
	upCntr             uint8
	mromAddr, uromAddr uint32
	swapped            bool

	sd sdCard
}

func newRFS(env *Env) Device {
	return &rfs{env: env, sd: sdCard{path: env.RFS.SDCard}}
}

func (r *rfs) Name() string { return "RFS" }

func (r *rfs) Reset() {
	r.bank1, r.bank2, r.ctrl = 0, 0, 0
	r.mromAddr = rfsMROMBase
	r.uromAddr = rfsUROMBase
	r.swapped = false
	r.upCntr = ((r.ctrl & 0x20) >> 2) | ((r.ctrl & 0x10) >> 2) | ((r.ctrl & 0x08) >> 2)
	r.sd.reset()
}

// Load reads the monitor and user ROM images into the ROM pool. The area of
// a missing image is filled with RST 0.
func (r *rfs) Load() error {
	load := func(path string, base uint32) {
		buf, err := readImage(path, rfsROMSize)
		if err != nil {
			log.ModDev.WarnZ("rfs rom image not loaded").String("path", path).Error("err", err).End()
			for i := range uint32(rfsROMSize) {
				r.env.Pool.ROM.Poke(base+i, missingROMByte)
			}
			return
		}
		r.env.Pool.ROM.Load(base, buf)
	}
	load(r.env.RFS.MROM, rfsMROMBase)
	load(r.env.RFS.UROM, rfsUROMBase)
	return nil
}

func readImage(path string, limit int) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("no image configured")
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(buf) > limit {
		buf = buf[:limit]
	}
	return buf, nil
}

func (r *rfs) MapMemory(t *hwio.PageTable) {
	r.mapMROM(t)
	r.mapUROM(t)
}

func (r *rfs) MapIO(*hwio.IOPageTable) {}

func (r *rfs) mapMROM(t *hwio.PageTable) {
	if r.swapped {
		t.MapRange(0xC000, 0xCFFF, hwio.VirtualROM, r.mromAddr)
		return
	}
	t.MapRange(0x0000, 0x0FFF, hwio.VirtualROM, r.mromAddr)
}

func (r *rfs) mapUROM(t *hwio.PageTable) {
	t.MapRange(0xE800, 0xEFFF, hwio.VirtualROMHW, r.uromAddr)
}

func inCtrlRegion(addr uint16) bool {
	return addr >= rfsRegReset && addr <= rfsBankCtrl
}

// latch counts an access to the control region and reports whether the
// registers are enabled.
func (r *rfs) latch(addr uint16) bool {
	if !inCtrlRegion(addr) {
		return false
	}
	if r.upCntr < rfsLatchCount {
		r.upCntr++
	}
	return r.upCntr >= rfsLatchCount
}

func (r *rfs) resetLatch() {
	r.upCntr = (r.ctrl >> 2) & 0x0E
}

func (r *rfs) Read(addr uint16, io bool) (uint8, bool) {
	if io || !r.latch(addr) {
		return 0, false
	}

	switch addr {
	case rfsRegDisable:
		r.resetLatch()
	case rfsSPIData:
		return r.sd.dataIn, true
	}
	return 0xFF, true
}

func (r *rfs) Write(addr uint16, val uint8, io bool) bool {
	if io || !r.latch(addr) {
		return false
	}

	switch addr {
	case rfsRegReset:
	case rfsSPIData:
		r.sd.write(val)
	case rfsSPIStart:
		r.sd.clock(r.ctrl)
	case rfsBankMROM:
		r.bank1 = val
		r.mromAddr = uint32(r.bank1) << 12
		r.mapMROM(r.env.Table())
	case rfsBankUROM, rfsBankCtrl:
		if addr == rfsBankUROM {
			r.bank2 = val
		} else {
			r.ctrl = val
		}
		r.uromAddr = ((uint32(r.ctrl&0xB0)<<2)|uint32(r.bank2))<<11 + rfsUROMBase
		r.mapUROM(r.env.Table())
	default:
		r.resetLatch()
	}

	log.ModDev.DebugZ("rfs register write").
		Hex16("addr", addr).
		Hex8("val", val).
		Hex32("mrom", r.mromAddr).
		Hex32("urom", r.uromAddr).
		End()
	return true
}

// Decode handles the MZ-80A monitor swap, using the current monitor bank.
func (r *rfs) Decode(addr uint16, _ uint8, io, read bool) bool {
	if io || !read {
		return false
	}
	t := r.env.Table()
	switch {
	case addr >= 0xE00C && addr <= 0xE00F:
		t.MapRange(0x0000, 0x0FFF, hwio.VirtualRAM, 0xC000)
		t.MapRange(0xC000, 0xCFFF, hwio.VirtualROM, r.mromAddr)
		r.swapped = true
		return true
	case addr >= 0xE010 && addr <= 0xE013:
		t.MapRange(0x0000, 0x0FFF, hwio.VirtualROM, r.mromAddr)
		t.MapRange(0xC000, 0xCFFF, hwio.VirtualRAM, 0xC000)
		r.swapped = false
		return true
	}
	return false
}
