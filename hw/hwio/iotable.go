package hwio

import "fusionx/emu/log"

const NumPorts = 0x10000

// IOEntry routes a port either to the host bus or to local handlers.
type IOEntry struct {
	Kind Kind   // PhysicalHW or VirtualHW
	Port uint16 // port presented on the host bus
}

// IOPageTable is the port space counterpart of PageTable. Every port starts
// routed to the host, on itself.
type IOPageTable struct {
	Name string

	entries [NumPorts]IOEntry
}

func NewIOPageTable(name string) *IOPageTable {
	t := &IOPageTable{Name: name}
	t.Reset()
	return t
}

// Reset routes every port to the host, identity mapped.
func (t *IOPageTable) Reset() {
	for i := range t.entries {
		t.entries[i] = IOEntry{Kind: PhysicalHW, Port: uint16(i)}
	}
}

func (t *IOPageTable) Lookup(port uint16) IOEntry {
	return t.entries[port]
}

// Route sets how port is handled. Any kind other than VirtualHW routes the
// port to the host.
func (t *IOPageTable) Route(port uint16, kind Kind, real uint16) {
	if kind != VirtualHW && kind != PhysicalHW {
		log.ModHwIo.WarnZ("port kind must be PhysicalHW or VirtualHW").
			String("table", t.Name).
			Hex16("port", port).
			Stringer("kind", kind).
			End()
		kind = PhysicalHW
	}
	t.entries[port] = IOEntry{Kind: kind, Port: real}
}

// RouteLocal marks port as locally handled in every 256-port page, the
// Sharp machines only decode the low byte of the port address.
func (t *IOPageTable) RouteLocal(port uint8) {
	for hi := 0; hi < NumPorts; hi += 0x100 {
		p := uint16(hi) | uint16(port)
		t.entries[p] = IOEntry{Kind: VirtualHW, Port: p}
	}
}

// RouteHost is the reverse of RouteLocal.
func (t *IOPageTable) RouteHost(port uint8) {
	for hi := 0; hi < NumPorts; hi += 0x100 {
		p := uint16(hi) | uint16(port)
		t.entries[p] = IOEntry{Kind: PhysicalHW, Port: p}
	}
}

// Snapshot returns a copy of the entries in [begin, end].
func (t *IOPageTable) Snapshot(begin, end uint16) []IOEntry {
	return append([]IOEntry(nil), t.entries[begin:int(end)+1]...)
}

// Pack returns the entry in the same 32-bit form as Entry.Pack.
func (e IOEntry) Pack() uint32 {
	return uint32(e.Kind)<<24 | uint32(e.Port)
}
