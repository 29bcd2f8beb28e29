package hwio

import (
	"fmt"

	"fusionx/emu/log"
)

const (
	DefaultRAMSize = 32 * 0x10000 // 2M, 32 banks of 64K
	DefaultROMSize = 32 * 0x10000
)

// Mem is a linear memory buffer addressed by 24-bit targets. Its size must be
// a power of two, targets wrap around.
type Mem struct {
	Name  string
	Data  []byte
	Flags MemFlags

	mask uint32
}

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlagReadOnly  MemFlags = (1 << iota) // writes are dropped and logged
	MemFlagNoROLog                          // writes are dropped silently
)

func NewMem(name string, size int, flags MemFlags) *Mem {
	if size <= 0 || size&(size-1) != 0 {
		panic(fmt.Sprintf("memory buffer %s size is not pow2: %d", name, size))
	}
	return &Mem{
		Name:  name,
		Data:  make([]byte, size),
		Flags: flags,
		mask:  uint32(size - 1),
	}
}

func (m *Mem) Read8(target uint32) uint8 {
	return m.Data[target&m.mask]
}

// Write8 stores val unless the memory is read-only.
func (m *Mem) Write8(target uint32, val uint8) {
	switch m.Flags {
	case MemFlagReadWrite:
		m.Data[target&m.mask] = val
	case MemFlagReadOnly:
		log.ModMem.WarnZ("Write8 to read-only memory").
			String("mem", m.Name).
			Hex32("target", target).
			Hex8("val", val).
			End()
	}
}

// Poke stores val whatever the flags, for loaders.
func (m *Mem) Poke(target uint32, val uint8) {
	m.Data[target&m.mask] = val
}

// Load copies buf at target, wrapping around the buffer end.
func (m *Mem) Load(target uint32, buf []byte) {
	log.ModMem.DebugZ("load").
		String("mem", m.Name).
		Hex32("target", target).
		Int("len", len(buf)).
		End()
	for i, b := range buf {
		m.Data[(target+uint32(i))&m.mask] = b
	}
}

// Slice copies n bytes starting at target.
func (m *Mem) Slice(target uint32, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = m.Data[(target+uint32(i))&m.mask]
	}
	return out
}

// Pool is the local memory standing in for, or extending, the host memory.
type Pool struct {
	RAM *Mem
	ROM *Mem
}

func NewPool(ramSize, romSize int) *Pool {
	return &Pool{
		RAM: NewMem("virtual-ram", ramSize, MemFlagReadWrite),
		ROM: NewMem("virtual-rom", romSize, MemFlagNoROLog),
	}
}
