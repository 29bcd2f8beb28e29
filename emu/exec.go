package emu

import (
	"context"

	"fusionx/emu/log"
	"fusionx/hw/bus"
	"fusionx/hw/runstate"
)

// Run is the exec loop. It executes one instruction at a time while the run
// state is Running, parks otherwise, and returns when ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	log.AddContext(c)
	defer log.RemoveContext(c)

	log.ModCPU.InfoZ("exec loop started").End()
	defer func() { log.ModCPU.InfoZ("exec loop exited").End() }()

	for ctx.Err() == nil {
		if !c.run.Sample() {
			if err := c.run.Park(ctx); err != nil {
				break
			}
			continue
		}

		c.cpu.Step()
		c.publish()

		if c.bridge.Faulted() {
			err := c.bridge.TakeFault()
			log.ModCPU.ErrorZ("instruction aborted").
				Hex16("pc", c.cpu.PC()).
				Error("err", err).
				End()
			c.setFault(err)
			c.run.Settle(runstate.Paused)
		}
		if k := c.bridge.TakeHotKey(); k != bus.HotKeyNone {
			log.ModCPU.InfoZ("hot key").Stringer("key", k).End()
			c.hotKey.Store(uint32(k))
		}
	}
	return nil
}
