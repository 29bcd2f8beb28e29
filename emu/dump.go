package emu

import (
	"context"
	"fmt"
	"strings"

	"fusionx/hw/hwio"
	"fusionx/hw/runstate"
)

// MemKind selects the memory a dump or a load applies to.
type MemKind uint8

const (
	MemHost       MemKind = iota // host memory, through the bus
	MemVirtualRAM                // local RAM pool
	MemVirtualROM                // local ROM pool
	MemPageTable                 // page table of the active mode
	MemIOTable                   // I/O page table
)

var memKindNames = [...]string{"host", "ram", "rom", "table", "io"}

func (k MemKind) String() string {
	if int(k) < len(memKindNames) {
		return memKindNames[k]
	}
	return fmt.Sprintf("MemKind(%d)", uint8(k))
}

func ParseMemKind(s string) (MemKind, error) {
	switch strings.ToLower(s) {
	case "host", "physical":
		return MemHost, nil
	case "ram", "virtual", "virtual-ram":
		return MemVirtualRAM, nil
	case "rom", "virtual-rom":
		return MemVirtualROM, nil
	case "table", "page-table":
		return MemPageTable, nil
	case "io", "io-table":
		return MemIOTable, nil
	}
	return 0, fmt.Errorf("unknown memory kind %q", s)
}

func (k MemKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *MemKind) UnmarshalText(text []byte) error {
	v, err := ParseMemKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// DumpRequest is the [Start, End) range of memory to dump. A zero Width
// selects the cells per line from the configured screen width.
type DumpRequest struct {
	Start, End uint32
	Kind       MemKind
	Width      int
}

// lineWidth maps a screen width in columns to a number of cells per line.
func lineWidth(screen int) int {
	switch screen {
	case 40:
		return 8
	case 80:
		return 16
	}
	return 32
}

func (c *Controller) limit(k MemKind) uint32 {
	switch k {
	case MemVirtualRAM:
		return uint32(len(c.pool.RAM.Data))
	case MemVirtualROM:
		return uint32(len(c.pool.ROM.Data))
	case MemPageTable:
		return hwio.NumBlocks
	case MemIOTable:
		return hwio.NumPorts
	}
	return hwio.AddrSpace
}

func (c *Controller) checkRange(start, end uint32, k MemKind) error {
	if k > MemIOTable {
		return fmt.Errorf("kind %v: %w", k, ErrBadRange)
	}
	if start >= end || end > c.limit(k) {
		return fmt.Errorf("%v %06X-%06X: %w", k, start, end, ErrBadRange)
	}
	return nil
}

// DumpMemory pauses the CPU, formats the requested memory as hex and ASCII
// lines, then restores the previous run state.
func (c *Controller) DumpMemory(ctx context.Context, req DumpRequest) (string, error) {
	if err := c.checkRange(req.Start, req.End, req.Kind); err != nil {
		return "", err
	}
	width := req.Width
	if width <= 0 {
		width = lineWidth(c.cfg.CPU.ScreenWidth)
	}

	var out string
	err := c.run.Quiesce(ctx, runstate.Pause, func() error {
		cells := make([]uint32, 0, req.End-req.Start)
		for addr := req.Start; addr < req.End; addr++ {
			v, err := c.cell(addr, req.Kind)
			if err != nil {
				c.setFault(err)
				return err
			}
			cells = append(cells, v)
		}

		digits := 2
		if req.Kind == MemPageTable || req.Kind == MemIOTable {
			digits = 8
		}
		var sb strings.Builder
		formatDump(&sb, req.Start, cells, digits, width)
		out = sb.String()
		return nil
	})
	return out, err
}

func (c *Controller) cell(addr uint32, k MemKind) (uint32, error) {
	switch k {
	case MemHost:
		v, err := c.bridge.HostRead(uint16(addr))
		return uint32(v), err
	case MemVirtualRAM:
		return uint32(c.pool.RAM.Read8(addr)), nil
	case MemVirtualROM:
		return uint32(c.pool.ROM.Read8(addr)), nil
	case MemPageTable:
		return c.bank.Active().Lookup(uint16(addr)).Pack(), nil
	}
	return c.io.Lookup(uint16(addr)).Pack(), nil
}

// formatDump writes cells, width per line, each line starting with the
// address of its first cell and ending with the ASCII form of the bytes.
func formatDump(sb *strings.Builder, addr uint32, cells []uint32, digits, width int) {
	for len(cells) > 0 {
		n := min(width, len(cells))
		line := cells[:n]

		fmt.Fprintf(sb, "%08X:  ", addr)
		for i := range width {
			if i < n {
				fmt.Fprintf(sb, "%0*X ", digits, line[i])
			} else {
				sb.WriteString(strings.Repeat(" ", digits+1))
			}
		}
		sb.WriteString(" |")
		for i := range width {
			ch := byte(' ')
			if i < n && line[i] >= ' ' && line[i] <= '~' {
				ch = byte(line[i])
			}
			sb.WriteByte(ch)
		}
		sb.WriteString("|\n")

		cells = cells[n:]
		addr += uint32(n)
	}
}

// LoadMemory copies data at addr in the selected memory. The CPU is stopped
// during the load and restarted if it was running.
func (c *Controller) LoadMemory(ctx context.Context, addr uint32, data []byte, k MemKind) error {
	if len(data) == 0 {
		return nil
	}
	if k > MemVirtualROM {
		return fmt.Errorf("load into %v: %w", k, ErrBadRange)
	}
	if err := c.checkRange(addr, addr+uint32(len(data)), k); err != nil {
		return err
	}

	return c.run.Quiesce(ctx, runstate.Stop, func() error {
		switch k {
		case MemVirtualRAM:
			c.pool.RAM.Load(addr, data)
		case MemVirtualROM:
			c.pool.ROM.Load(addr, data)
		case MemHost:
			for i, b := range data {
				if err := c.bridge.HostWrite(uint16(addr+uint32(i)), b); err != nil {
					c.setFault(err)
					return err
				}
			}
		}
		return nil
	})
}
