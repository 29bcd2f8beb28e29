package bus

import "sync"

// SimHost is a Link to a simulated host: 64K of memory and 64K ports which
// answer every command at once. It stands in for the gate array when no
// hardware is present, and in tests.
type SimHost struct {
	mu sync.Mutex

	Mem [0x10000]byte
	IO  [0x10000]byte

	stalled bool
	data    uint8
	last    uint32
	cmds    []uint32
	record  bool
}

func NewSimHost() *SimHost {
	return &SimHost{}
}

// Stall makes the host never assert ready, as a dead bus would.
func (h *SimHost) Stall(stalled bool) {
	h.mu.Lock()
	h.stalled = stalled
	h.mu.Unlock()
}

// Record enables or disables recording of the commands received.
func (h *SimHost) Record(on bool) {
	h.mu.Lock()
	h.record = on
	h.cmds = nil
	h.mu.Unlock()
}

// Commands returns the commands recorded so far.
func (h *SimHost) Commands() []uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]uint32(nil), h.cmds...)
}

func (h *SimHost) Send(cmd uint32) uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.record {
		h.cmds = append(h.cmds, cmd)
	}

	addr, data, tag := Split(cmd)
	switch tag {
	case TagFetch, TagRead:
		h.data = h.Mem[addr]
	case TagWrite:
		h.Mem[addr] = data
		h.data = data
	case TagReadIO:
		h.data = h.IO[addr]
	case TagWriteIO:
		h.IO[addr] = data
		h.data = data
	}

	// The response carries the tag and data of the previous command.
	resp := h.last
	h.last = uint32(tag)<<8 | uint32(h.data)
	return resp
}

func (h *SimHost) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.stalled
}

func (h *SimHost) Data() uint8 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data
}
