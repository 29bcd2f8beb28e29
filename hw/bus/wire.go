package bus

import "fmt"

// Tag is the command selector in the low byte of a bus word.
type Tag uint8

const (
	TagNop              Tag = 0x00
	TagFetch            Tag = 0x10 // opcode fetch, M1 cycle
	TagWrite            Tag = 0x18
	TagRead             Tag = 0x20
	TagWriteIO          Tag = 0x28
	TagReadIO           Tag = 0x30
	TagHalt             Tag = 0x50
	TagRefresh          Tag = 0x51
	TagSetAutoRefresh   Tag = 0xF1
	TagClearAutoRefresh Tag = 0xF2
)

var tagNames = map[Tag]string{
	TagNop:              "NOP",
	TagFetch:            "FETCH",
	TagWrite:            "WRITE",
	TagRead:             "READ",
	TagWriteIO:          "WRITEIO",
	TagReadIO:           "READIO",
	TagHalt:             "HALT",
	TagRefresh:          "REFRESH",
	TagSetAutoRefresh:   "SET_AUTO_REFRESH",
	TagClearAutoRefresh: "CLEAR_AUTO_REFRESH",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TAG_%02X", uint8(t))
}

// Command builds a bus word: address in the top half, data then tag in the
// low half.
func Command(addr uint16, data uint8, tag Tag) uint32 {
	return uint32(addr)<<16 | uint32(data)<<8 | uint32(tag)
}

// Split is the reverse of Command.
func Split(cmd uint32) (addr uint16, data uint8, tag Tag) {
	return uint16(cmd >> 16), uint8(cmd >> 8), Tag(cmd)
}

// FormatCommand returns a human readable form of a bus word.
func FormatCommand(cmd uint32) string {
	addr, data, tag := Split(cmd)
	return fmt.Sprintf("%s %04X,%02X", tag, addr, data)
}
