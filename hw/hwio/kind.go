package hwio

//go:generate go tool stringer -type=Kind

// Kind tells which backing store answers for an address block or a port.
type Kind uint8

const (
	Inhibited          Kind = iota // no store, reads return the fill byte, writes are dropped
	PhysicalRAM                    // host DRAM, written through to virtual RAM
	PhysicalROM                    // host ROM sockets
	PhysicalVRAM                   // host video RAM
	PhysicalHW                     // host memory mapped or port mapped hardware
	VirtualRAM                     // local RAM
	VirtualROM                     // local ROM, writes are dropped
	VirtualRAMReadOnly             // ROM image held in local RAM, writable boot variable window
	VirtualHW                      // local device handlers
	VirtualROMHW                   // local ROM sharing its window with device registers

	numKinds
)

// IsPhysical reports whether accesses of this kind go out on the host bus.
func (k Kind) IsPhysical() bool {
	return k >= PhysicalRAM && k <= PhysicalHW
}

// IsVirtual reports whether accesses of this kind are served locally.
func (k Kind) IsVirtual() bool {
	return k >= VirtualRAM && k <= VirtualROMHW
}

// IsHW reports whether the kind is backed by hardware registers, either on
// the host or emulated locally.
func (k Kind) IsHW() bool {
	return k == PhysicalHW || k == VirtualHW || k == VirtualROMHW
}

// IsROM reports whether reads of this kind come from the local ROM pool.
func (k Kind) IsROM() bool {
	return k == VirtualROM || k == VirtualROMHW
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k < numKinds
}
