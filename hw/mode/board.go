package mode

import (
	"fmt"
	"strings"

	"fusionx/hw/hwio"
)

// Board is the host machine the controller is plugged into.
type Board uint8

const (
	MZ80A Board = iota
	MZ700
	MZ2000
)

var boardNames = [...]string{"mz80a", "mz700", "mz2000"}

func (b Board) String() string {
	if int(b) < len(boardNames) {
		return boardNames[b]
	}
	return fmt.Sprintf("Board(%d)", b)
}

// ParseBoard accepts mz80a, 80a, mz700, 700, mz2000 or 2000, ignoring case.
func ParseBoard(s string) (Board, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "mz-")
	s = strings.TrimPrefix(s, "mz")
	switch s {
	case "80a":
		return MZ80A, nil
	case "700":
		return MZ700, nil
	case "2000":
		return MZ2000, nil
	}
	return 0, fmt.Errorf("unknown board %q", s)
}

func (b Board) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *Board) UnmarshalText(text []byte) error {
	v, err := ParseBoard(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Profile selects how the default mode is built at reset: passthrough to the
// host memory, or local memory standing in for it.
type Profile uint8

const (
	Virtual Profile = iota
	Host
)

func (p Profile) String() string {
	if p == Host {
		return "host"
	}
	return "virtual"
}

func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "virtual", "":
		return Virtual, nil
	case "host":
		return Host, nil
	}
	return 0, fmt.Errorf("unknown memory profile %q", s)
}

func (p Profile) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Profile) UnmarshalText(text []byte) error {
	v, err := ParseProfile(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Default returns the rows of mode 0 for the board memory profile.
func (b Board) Default(p Profile) Rows {
	switch b {
	case MZ80A, MZ700:
		if p == Host {
			return Rows{
				phys(0x0000, 0x0FFF, hwio.PhysicalROM),
				phys(0x1000, 0xCFFF, hwio.PhysicalRAM),
				phys(0xD000, 0xDFFF, hwio.PhysicalVRAM),
				phys(0xE000, 0xE7FF, hwio.PhysicalHW),
				phys(0xE800, 0xFFFF, hwio.PhysicalROM),
			}
		}
		rows := Rows{
			local(0x0000, 0x0FFF, hwio.VirtualROM, 0),
			local(0x1000, 0xCFFF, hwio.VirtualRAM, 0x1000),
			phys(0xD000, 0xDFFF, hwio.PhysicalVRAM),
			phys(0xE000, 0xE7FF, hwio.PhysicalHW),
			local(0xE800, 0xEFFF, hwio.VirtualHW, 0xE800),
			local(0xF000, 0xFFFF, hwio.VirtualROM, 0xF000),
		}
		if b == MZ700 {
			rows[4] = local(0xE800, 0xFFFF, hwio.VirtualROM, 0xE800)
			rows = rows[:5]
		}
		return rows

	case MZ2000:
		if p == Host {
			return Rows{
				phys(0x0000, 0x7FFF, hwio.PhysicalROM),
				phys(0x8000, 0xFFFF, hwio.PhysicalRAM),
			}
		}
		return mz2000IPL
	}
	return nil
}

// mz2000IPL is the MZ-2000 layout before the IPL hands over: ROM low, RAM
// high starting at the bottom of the RAM pool.
var mz2000IPL = Rows{
	local(0x0000, 0x7FFF, hwio.VirtualROM, 0),
	local(0x8000, 0xFFFF, hwio.VirtualRAM, 0),
}

// SetupIO resets the I/O table of the board. The service and system request
// ports are always handled locally.
func (b Board) SetupIO(io *hwio.IOPageTable) {
	io.Reset()
	io.RouteLocal(PortSvcReq)
	io.RouteLocal(PortSysReq)
}

const (
	PortCtrlLatch = 0x60
	PortSvcReq    = 0x68
	PortSysReq    = 0x6A
)
