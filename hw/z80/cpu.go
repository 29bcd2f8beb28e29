// Package z80 drives the koron-go Z80 interpreter through the bus bridge.
package z80

import (
	"github.com/koron-go/z80"

	"fusionx/emu/log"
)

// Bus is the set of CPU accesses served by the bus bridge.
type Bus interface {
	FetchOpcode(addr uint16) uint8
	Fetch(addr uint16) uint8
	Read(addr uint16) uint8
	Write(addr uint16, val uint8)
	In(port uint16) uint8
	Out(port uint16, val uint8)
	Nop(addr uint16)
	Halt()
}

// CPU is one Z80 whose every memory and I/O cycle goes through a Bus.
type CPU struct {
	cpu z80.CPU
	mem memory
	io  ports
}

func New(bus Bus) *CPU {
	c := &CPU{}
	c.mem.bus = bus
	c.io.bus = bus
	c.cpu.Memory = &c.mem
	c.cpu.IO = &c.io
	c.Reset()
	return c
}

// Step executes one instruction. While halted, it only clocks an idle cycle.
func (c *CPU) Step() {
	if c.cpu.HALT {
		c.mem.bus.Nop(c.cpu.PC)
		return
	}

	c.mem.begin(c.cpu.PC)
	c.cpu.Step()

	if c.cpu.HALT {
		log.ModCPU.DebugZ("halt").Hex16("pc", c.cpu.PC).End()
		c.mem.bus.Halt()
	}
}

// Reset brings the CPU to its power-on state.
func (c *CPU) Reset() {
	c.cpu.States = z80.States{}
	c.cpu.SP = 0xFFFF
	c.cpu.HALT = false
}

func (c *CPU) PC() uint16 { return c.cpu.PC }

func (c *CPU) SetPC(pc uint16) {
	c.cpu.PC = pc
	c.cpu.HALT = false
}

func (c *CPU) Halted() bool { return c.cpu.HALT }

// memory tells opcode fetches apart from the other reads. The interpreter
// reads the opcode at PC first, then the instruction bytes following it.
type memory struct {
	bus Bus

	opcode bool
	next   uint16
}

func (m *memory) begin(pc uint16) {
	m.opcode = true
	m.next = pc
}

func (m *memory) Get(addr uint16) uint8 {
	switch {
	case m.opcode && addr == m.next:
		m.opcode = false
		m.next++
		return m.bus.FetchOpcode(addr)
	case addr == m.next:
		m.next++
		return m.bus.Fetch(addr)
	}
	return m.bus.Read(addr)
}

func (m *memory) Set(addr uint16, val uint8) {
	m.bus.Write(addr, val)
}

type ports struct {
	bus Bus
}

func (p *ports) In(port uint8) uint8 {
	return p.bus.In(uint16(port))
}

func (p *ports) Out(port uint8, val uint8) {
	p.bus.Out(uint16(port), val)
}
