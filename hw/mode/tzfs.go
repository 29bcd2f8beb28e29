package mode

import (
	"fmt"

	"fusionx/hw/hwio"
)

// ID identifies a memory mode, as written to the control latch.
type ID uint8

// NumModes is the size of the mode id space.
const NumModes = 32

// Memory modes selectable through the control latch.
const (
	ModeOrig       ID = 0x00
	ModeBoot       ID = 0x01
	ModeTZFS       ID = 0x02
	ModeTZFS2      ID = 0x03
	ModeTZFS3      ID = 0x04
	ModeTZFS4      ID = 0x05
	ModeCPM        ID = 0x06
	ModeCPM2       ID = 0x07
	ModeCompat     ID = 0x08
	ModeHostAccess ID = 0x09
	ModeMZ700Map0  ID = 0x0A
	ModeMZ700Map1  ID = 0x0B
	ModeMZ700Map2  ID = 0x0C
	ModeMZ700Map3  ID = 0x0D
	ModeMZ700Map4  ID = 0x0E
	ModeMZ800      ID = 0x0F
	ModeMZ2000     ID = 0x10
	ModeFPGA       ID = 0x15
	ModeTZPUM      ID = 0x16
	ModeTZPU       ID = 0x17
)

var modeNames = map[ID]string{
	ModeOrig:       "ORIG",
	ModeBoot:       "BOOT",
	ModeTZFS:       "TZFS",
	ModeTZFS2:      "TZFS2",
	ModeTZFS3:      "TZFS3",
	ModeTZFS4:      "TZFS4",
	ModeCPM:        "CPM",
	ModeCPM2:       "CPM2",
	ModeCompat:     "COMPAT",
	ModeHostAccess: "HOSTACCESS",
	ModeMZ700Map0:  "MZ700_0",
	ModeMZ700Map1:  "MZ700_1",
	ModeMZ700Map2:  "MZ700_2",
	ModeMZ700Map3:  "MZ700_3",
	ModeMZ700Map4:  "MZ700_4",
	ModeMZ800:      "MZ800",
	ModeMZ2000:     "MZ2000",
	ModeFPGA:       "FPGA",
	ModeTZPUM:      "TZPUM",
	ModeTZPU:       "TZPU",
}

func (id ID) String() string {
	if s, ok := modeNames[id]; ok {
		return s
	}
	return fmt.Sprintf("MODE_%02X", uint8(id))
}

// Address ranges of the TZFS layout.
const (
	monBegin, monEnd   = 0x0000, 0x0FFF
	mainBegin, mainEnd = 0x1000, 0xCFFF
	vramBegin, vramEnd = 0xD000, 0xDFFF
	mmioBegin, mmioEnd = 0xE000, 0xE7FF
	uromBegin, uromEnd = 0xE800, 0xEFFF
	fromBegin, fromEnd = 0xF000, 0xFFFF
)

// hostIO is the common upper layout of the passthrough-like modes.
func hostIO() Rows {
	return Rows{
		phys(vramBegin, vramEnd, hwio.PhysicalVRAM),
		phys(mmioBegin, mmioEnd, hwio.PhysicalHW),
	}
}

func tzfsRows(fromBank int) Rows {
	rows := Rows{
		banked(monBegin, monEnd, hwio.VirtualRAMReadOnly, 0),
		banked(mainBegin, mainEnd, hwio.VirtualRAM, 0),
	}
	rows = append(rows, hostIO()...)
	return append(rows,
		banked(uromBegin, uromEnd, hwio.VirtualRAMReadOnly, 0),
		banked(fromBegin, fromEnd, hwio.VirtualRAM, fromBank),
	)
}

func origRows() Rows {
	rows := Rows{
		banked(monBegin, monEnd, hwio.VirtualRAMReadOnly, 0),
		phys(mainBegin, mainEnd, hwio.PhysicalRAM),
	}
	rows = append(rows, hostIO()...)
	return append(rows, banked(uromBegin, fromEnd, hwio.VirtualRAMReadOnly, 0))
}

func mz700Rows(mon int, upper Row) Rows {
	return Rows{
		banked(monBegin, monEnd, hwio.VirtualRAM, mon),
		banked(mainBegin, mainEnd, hwio.VirtualRAM, 0),
		upper,
	}
}

var tzfsMatrix = map[ID]func() Rows{
	ModeOrig: origRows,
	ModeBoot: func() Rows {
		return append(origRows(), banked(uromBegin, uromEnd, hwio.VirtualRAM, 0))
	},
	ModeTZFS:  func() Rows { return tzfsRows(0) },
	ModeTZFS2: func() Rows { return tzfsRows(1) },
	ModeTZFS3: func() Rows { return tzfsRows(2) },
	ModeTZFS4: func() Rows { return tzfsRows(3) },
	ModeCPM: func() Rows {
		return Rows{
			banked(0x0000, 0xFFFF, hwio.VirtualRAM, 4),
			phys(0xF3C0, 0xF3FF, hwio.PhysicalHW),
			phys(0xF7C0, 0xF7FF, hwio.PhysicalHW),
		}
	},
	ModeCPM2: func() Rows {
		rows := Rows{
			banked(0x0000, 0x003F, hwio.VirtualRAM, 4),
			banked(0x0040, mainEnd, hwio.VirtualRAM, 5),
		}
		rows = append(rows, hostIO()...)
		return append(rows,
			banked(uromBegin, uromEnd, hwio.VirtualRAM, 5),
			banked(fromBegin, fromEnd, hwio.VirtualRAM, 4),
		)
	},
	ModeCompat: func() Rows {
		rows := Rows{
			banked(monBegin, monEnd, hwio.VirtualRAMReadOnly, 0),
			banked(mainBegin, mainEnd, hwio.VirtualRAM, 0),
		}
		rows = append(rows, hostIO()...)
		return append(rows, banked(uromBegin, fromEnd, hwio.VirtualRAMReadOnly, 0))
	},
	ModeHostAccess: func() Rows {
		rows := Rows{
			phys(monBegin, monEnd, hwio.PhysicalROM),
			phys(mainBegin, mainEnd, hwio.PhysicalRAM),
		}
		rows = append(rows, hostIO()...)
		return append(rows, banked(uromBegin, fromEnd, hwio.VirtualRAM, 0))
	},
	ModeMZ700Map0: func() Rows {
		return Rows{
			banked(monBegin, monEnd, hwio.VirtualRAM, 6),
			banked(mainBegin, mainEnd, hwio.VirtualRAM, 0),
			phys(vramBegin, vramEnd, hwio.PhysicalVRAM),
			phys(mmioBegin, fromEnd, hwio.PhysicalHW),
		}
	},
	ModeMZ700Map1: func() Rows { return mz700Rows(0, banked(vramBegin, fromEnd, hwio.VirtualRAM, 6)) },
	ModeMZ700Map2: func() Rows { return mz700Rows(6, banked(vramBegin, fromEnd, hwio.VirtualRAM, 6)) },
	ModeMZ700Map3: func() Rows { return mz700Rows(0, inhibited(vramBegin, fromEnd)) },
	ModeMZ700Map4: func() Rows { return mz700Rows(6, inhibited(vramBegin, fromEnd)) },
	ModeMZ800: func() Rows {
		return Rows{
			phys(monBegin, monEnd, hwio.PhysicalROM),
			phys(mainBegin, mainEnd, hwio.PhysicalRAM),
			phys(vramBegin, vramEnd, hwio.PhysicalVRAM),
			phys(mmioBegin, fromEnd, hwio.PhysicalHW),
		}
	},
	ModeMZ2000: func() Rows { return append(Rows(nil), mz2000IPL...) },
	ModeFPGA:   func() Rows { return Rows{inhibited(0x0000, 0xFFFF)} },
	ModeTZPUM: func() Rows {
		rows := Rows{
			phys(monBegin, monEnd, hwio.PhysicalROM),
			phys(mainBegin, mainEnd, hwio.PhysicalRAM),
		}
		rows = append(rows, hostIO()...)
		return append(rows, phys(uromBegin, fromEnd, hwio.PhysicalROM))
	},
	ModeTZPU: func() Rows { return Rows{banked(0x0000, 0xFFFF, hwio.VirtualRAM, 0)} },
}

// TZFS returns the mapping rows of mode id in the TZFS matrix. ok is false
// for ids the matrix does not define.
func TZFS(id ID) (rows Rows, ok bool) {
	f, ok := tzfsMatrix[id]
	if !ok {
		return nil, false
	}
	return f(), true
}
