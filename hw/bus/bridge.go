package bus

import (
	"errors"
	"fmt"
	"time"

	"fusionx/emu/log"
	"fusionx/hw/hwio"
	"fusionx/hw/mode"
	"fusionx/hw/vdev"
)

const (
	DefaultTimeout = 50 * time.Millisecond
	DefaultFill    = 0xFF
)

var ErrBusFault = errors.New("bus fault")

// FaultError reports a host bus cycle which never completed.
type FaultError struct {
	Cmd     uint32
	Timeout time.Duration
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("bus fault: %s not ready after %v", FormatCommand(e.Cmd), e.Timeout)
}

func (e *FaultError) Unwrap() error { return ErrBusFault }

// Hold keeps the run state quiesced after a fault.
func (e *FaultError) Hold() bool { return true }

// Tables gives the page table of the active memory mode.
type Tables interface {
	Active() *hwio.PageTable
}

// Decoder is told about every access going out on the host bus, after the
// command is sent and before its data phase completes.
type Decoder interface {
	Decode(addr uint16, data uint8, io, read bool)
}

type Config struct {
	Board   mode.Board
	Link    Link
	Pool    *hwio.Pool
	Tables  Tables
	IO      *hwio.IOPageTable
	Devices *vdev.Set
	Decoder Decoder
	Fill    uint8
	Timeout time.Duration // 0 means DefaultTimeout
}

// Bridge routes the CPU memory and I/O accesses to the host bus, the local
// pool or the virtual devices, according to the active page tables.
//
// The six CPU operations never fail: a bus fault is recorded, to be taken by
// the exec loop with TakeFault, and reads return the fill byte until then.
// A Bridge is used by the exec goroutine only, or by the control path while
// the exec goroutine is quiesced.
type Bridge struct {
	board   mode.Board
	link    Link
	pool    *hwio.Pool
	tables  Tables
	io      *hwio.IOPageTable
	devs    *vdev.Set
	decoder Decoder
	fill    uint8
	timeout time.Duration

	autoRefresh bool

	gov   governor
	keys  keyboard
	video Video
	fault *FaultError
}

func NewBridge(cfg Config) *Bridge {
	b := &Bridge{
		board:   cfg.Board,
		link:    cfg.Link,
		pool:    cfg.Pool,
		tables:  cfg.Tables,
		io:      cfg.IO,
		devs:    cfg.Devices,
		decoder: cfg.Decoder,
		fill:    cfg.Fill,
		timeout: cfg.Timeout,
	}
	if b.timeout <= 0 {
		b.timeout = DefaultTimeout
	}
	b.keys.board = cfg.Board
	return b
}

// Reset clears the snooped state and any pending fault.
func (b *Bridge) Reset() {
	b.keys.reset()
	b.video = Video{}
	b.fault = nil
	b.gov.skip = 0
}

// SetGovernor sets the delays applied to local opcode fetches.
func (b *Bridge) SetGovernor(d mode.Delay) { b.gov.set(d) }

// TakeFault returns and clears the first fault recorded since the last call.
func (b *Bridge) TakeFault() error {
	f := b.fault
	b.fault = nil
	if f == nil {
		return nil
	}
	return f
}

// Faulted reports whether a fault is pending.
func (b *Bridge) Faulted() bool { return b.fault != nil }

// TakeHotKey returns and clears the latched hot key.
func (b *Bridge) TakeHotKey() HotKey {
	k := b.keys.hot
	b.keys.hot = HotKeyNone
	return k
}

// HotKey returns the latched hot key, without clearing it.
func (b *Bridge) HotKey() HotKey { return b.keys.hot }

func (b *Bridge) Video() Video { return b.video }

func (b *Bridge) hasDevices() bool { return b.devs != nil && b.devs.Len() > 0 }

// waitReady polls the link until the host completes the cycle started by
// cmd, or the timeout expires.
func (b *Bridge) waitReady(cmd uint32) error {
	if b.link.Ready() {
		return nil
	}
	deadline := time.Now().Add(b.timeout)
	for i := 0; ; i++ {
		if b.link.Ready() {
			return nil
		}
		if i&0x3F == 0 && time.Now().After(deadline) {
			return &FaultError{Cmd: cmd, Timeout: b.timeout}
		}
	}
}

// cycle runs one host bus transaction for the CPU. After a fault, nothing is
// sent until the fault has been taken.
func (b *Bridge) cycle(cpuAddr, busAddr uint16, data uint8, tag Tag, io, read bool) uint8 {
	if b.fault != nil {
		return b.fill
	}

	cmd := Command(busAddr, data, tag)
	b.link.Send(cmd)
	if b.decoder != nil {
		b.decoder.Decode(cpuAddr, data, io, read)
	}
	if err := b.waitReady(cmd); err != nil {
		b.fault = err.(*FaultError)
		log.ModBus.ErrorZ("bus fault").
			String("cmd", FormatCommand(cmd)).
			Duration("timeout", b.timeout).
			End()
		return b.fill
	}
	if io {
		b.gov.ioDone()
	}
	if !read {
		return data
	}
	return b.link.Data()
}

func (b *Bridge) readVirtual(addr uint16, e hwio.Entry) uint8 {
	if b.hasDevices() {
		if v, ok := b.devs.Read(addr, false); ok {
			return v
		}
	}
	switch e.Kind {
	case hwio.VirtualRAM, hwio.VirtualRAMReadOnly:
		return b.pool.RAM.Read8(e.Target)
	case hwio.VirtualROM, hwio.VirtualROMHW:
		return b.pool.ROM.Read8(e.Target)
	}
	return b.fill
}

func (b *Bridge) writeVirtual(addr uint16, e hwio.Entry, val uint8) {
	if b.hasDevices() && b.devs.Write(addr, val, false) {
		return
	}
	switch e.Kind {
	case hwio.VirtualRAM, hwio.VirtualRAMReadOnly:
		b.pool.RAM.Write8(e.Target, val)
	case hwio.VirtualROM, hwio.VirtualROMHW:
		log.ModBus.DebugZ("rom write dropped").Hex16("addr", addr).Hex8("val", val).End()
	}
}

func (b *Bridge) read(addr uint16, tag Tag) uint8 {
	e := b.tables.Active().Lookup(addr)
	var val uint8
	switch {
	case e.Kind.IsPhysical():
		val = b.cycle(addr, uint16(e.Target), 0, tag, false, true)
	case e.Kind.IsVirtual():
		val = b.readVirtual(addr, e)
	default:
		val = b.fill
	}
	if e.Kind.IsHW() {
		b.builtinMem(addr, val, true)
	}
	if tag == TagFetch && e.Kind.IsVirtual() {
		b.gov.fetch(e.Kind.IsROM() || e.Kind == hwio.VirtualRAMReadOnly)
	}
	return val
}

// FetchOpcode reads the first byte of an instruction.
func (b *Bridge) FetchOpcode(addr uint16) uint8 { return b.read(addr, TagFetch) }

// Fetch reads an operand byte of the current instruction.
func (b *Bridge) Fetch(addr uint16) uint8 { return b.read(addr, TagRead) }

func (b *Bridge) Read(addr uint16) uint8 { return b.read(addr, TagRead) }

func (b *Bridge) Write(addr uint16, val uint8) {
	e := b.tables.Active().Lookup(addr)
	if e.Kind.IsHW() {
		b.builtinMem(addr, val, false)
	}
	switch {
	case e.Kind.IsPhysical():
		b.cycle(addr, uint16(e.Target), val, TagWrite, false, false)
		if e.Kind == hwio.PhysicalRAM {
			b.pool.RAM.Write8(e.Target, val)
		}
	case e.Kind.IsVirtual():
		b.writeVirtual(addr, e, val)
	}
}

func (b *Bridge) In(port uint16) uint8 {
	e := b.io.Lookup(port)
	var val uint8
	if e.Kind == hwio.VirtualHW {
		val = b.fill
		if b.devs != nil {
			if v, ok := b.devs.Read(port, true); ok {
				val = v
			}
		}
	} else {
		val = b.cycle(port, e.Port, 0, TagReadIO, true, true)
	}
	if b.board == mode.MZ2000 {
		b.builtinIO(port, val, true)
	}
	return val
}

func (b *Bridge) Out(port uint16, val uint8) {
	e := b.io.Lookup(port)
	if b.board == mode.MZ2000 {
		b.builtinIO(port, val, false)
	}
	if e.Kind == hwio.VirtualHW {
		if b.devs == nil || !b.devs.Write(port, val, true) {
			log.ModBus.DebugZ("unclaimed port write").Hex16("port", port).Hex8("val", val).End()
		}
		return
	}
	b.cycle(port, e.Port, val, TagWriteIO, true, false)
}

// Nop is called on the idle cycles of the CPU. It requests a DRAM refresh
// when the address is on the host and auto refresh is off.
func (b *Bridge) Nop(addr uint16) {
	if b.fault != nil || b.autoRefresh {
		return
	}
	if b.tables.Active().Lookup(addr).Kind.IsPhysical() {
		b.link.Send(Command(0, 0, TagRefresh))
	}
}

// Halt tells the host the CPU entered the HALT state.
func (b *Bridge) Halt() {
	b.link.Send(Command(0, 0, TagHalt))
}

// SetAutoRefresh turns the gate array DRAM auto refresh on or off.
func (b *Bridge) SetAutoRefresh(on bool) {
	b.autoRefresh = on
	tag := TagClearAutoRefresh
	if on {
		tag = TagSetAutoRefresh
	}
	b.link.Send(Command(0, 0, tag))
}

// HostRead reads a byte of host memory, bypassing the page tables.
func (b *Bridge) HostRead(addr uint16) (uint8, error) {
	cmd := Command(addr, 0, TagRead)
	b.link.Send(cmd)
	if err := b.waitReady(cmd); err != nil {
		return b.fill, err
	}
	return b.link.Data(), nil
}

// HostWrite writes a byte of host memory, bypassing the page tables.
func (b *Bridge) HostWrite(addr uint16, val uint8) error {
	cmd := Command(addr, val, TagWrite)
	b.link.Send(cmd)
	return b.waitReady(cmd)
}

// Raw sends cmd as is, followed by two NOP words to clock the responses out.
func (b *Bridge) Raw(cmd uint32) (resp [2]uint32, err error) {
	b.link.Send(cmd)
	if err := b.waitReady(cmd); err != nil {
		return resp, err
	}
	resp[0] = b.link.Send(Command(0, 0, TagNop))
	resp[1] = b.link.Send(Command(0, 0, TagNop))
	return resp, nil
}
