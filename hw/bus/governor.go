package bus

import "fusionx/hw/mode"

// Fetches left ungoverned after a physical I/O transaction.
const ioSkipFetches = 10

// governor slows down opcode fetches from local memory to approximate the
// clock of the emulated machine.
type governor struct {
	delay mode.Delay
	skip  int
	sink  int
}

func (g *governor) set(d mode.Delay) {
	g.delay = d
	g.skip = 0
}

// ioDone is called after every physical I/O transaction, which already took
// longer than the local access would have.
func (g *governor) ioDone() { g.skip = ioSkipFetches }

func (g *governor) fetch(rom bool) {
	if g.skip > 0 {
		g.skip--
		return
	}
	n := g.delay.RAM
	if rom {
		n = g.delay.ROM
	}
	for i := 0; i < n; i++ {
		g.sink += i
	}
}
