package bus

// Video holds the state of the memory mapped video registers, which have side
// effects only.
type Video struct {
	Reverse bool  // reverse CRT display
	Roll    uint8 // VRAM roll offset
}

const (
	addrKeyStrobe  = 0xE000
	addrKeyData    = 0xE001
	addrCRTNormal  = 0xE014
	addrCRTReverse = 0xE015
	addrRollBegin  = 0xE200
	addrRollEnd    = 0xE2FF

	portMZ2000KeyStrobe = 0xE8
	portMZ2000KeyData   = 0xEA
)

// builtinMem applies the fixed side effects of an access to a memory mapped
// hardware address.
func (b *Bridge) builtinMem(addr uint16, val uint8, read bool) {
	switch {
	case addr == addrKeyStrobe && !read:
		b.keys.setStrobe(val)
	case addr == addrKeyData && read:
		b.keys.data(val)
	case addr == addrCRTNormal:
		b.video.Reverse = false
	case addr == addrCRTReverse:
		b.video.Reverse = true
	case addr >= addrRollBegin && addr <= addrRollEnd:
		b.video.Roll = uint8(addr)
	}
}

// builtinIO is the port counterpart of builtinMem.
func (b *Bridge) builtinIO(port uint16, val uint8, read bool) {
	switch uint8(port) {
	case portMZ2000KeyStrobe:
		if !read {
			b.keys.setStrobe(val)
		}
	case portMZ2000KeyData:
		if read {
			b.keys.data(val)
		}
	}
}
