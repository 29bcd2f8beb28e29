package vdev

import (
	"fusionx/hw/hwio"
	"fusionx/hw/mode"
)

var MZ1R18 = DeviceDesc{
	Name:   "MZ1R18",
	New:    func(*Env) Device { return &ramFile{} },
	Boards: []mode.Board{mode.MZ700},
}

const (
	portRAMFileData = 0xEA
	portRAMFileAddr = 0xEB
)

// ramFile is the MZ-1R18 64K RAM file board. The address register takes its
// high byte from the upper half of the port address.
type ramFile struct {
	mem  [0x10000]byte
	addr uint16
}

func (d *ramFile) Name() string { return "MZ1R18" }

// Reset only clears the address, the RAM file keeps its contents.
func (d *ramFile) Reset() { d.addr = 0 }

func (d *ramFile) MapMemory(*hwio.PageTable) {}

func (d *ramFile) MapIO(io *hwio.IOPageTable) {
	io.RouteLocal(portRAMFileData)
	io.RouteLocal(portRAMFileAddr)
}

func (d *ramFile) Read(port uint16, io bool) (uint8, bool) {
	if !io {
		return 0, false
	}
	switch uint8(port) {
	case portRAMFileData:
		val := d.mem[d.addr]
		d.addr++
		return val, true
	case portRAMFileAddr:
		return 0xFF, true
	}
	return 0, false
}

func (d *ramFile) Write(port uint16, val uint8, io bool) bool {
	if !io {
		return false
	}
	switch uint8(port) {
	case portRAMFileData:
		d.mem[d.addr] = val
		d.addr++
	case portRAMFileAddr:
		d.addr = port&0xFF00 | uint16(val)
	default:
		return false
	}
	return true
}
