package emu

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"fusionx/emu/log"
	"fusionx/hw/bankswitch"
	"fusionx/hw/bus"
	"fusionx/hw/hwio"
	"fusionx/hw/mode"
	"fusionx/hw/runstate"
	"fusionx/hw/vdev"
	"fusionx/hw/z80"
)

var (
	ErrUnsupportedMultiplier = errors.New("unsupported cpu multiplier")
	ErrBadRange              = errors.New("bad memory range")
)

// CPU is the instruction interpreter driven by the exec loop.
type CPU interface {
	Step()
	Reset()
	PC() uint16
	SetPC(pc uint16)
}

// Controller owns the whole virtualization layer of one host board: the
// local pool, the mode bank, the I/O table, the device set and the bus
// bridge. The exec loop (Run) is the only reader of these while running,
// every control command mutates them inside a quiesce window.
type Controller struct {
	cfg   Config
	board mode.Board

	run    *runstate.Coordinator
	pool   *hwio.Pool
	bank   *mode.Bank
	io     *hwio.IOPageTable
	devs   *vdev.Set
	dec    *bankswitch.Decoder
	bridge *bus.Bridge
	cpu    CPU

	// Published by the exec loop after each instruction.
	pc     atomic.Uint32
	modeID atomic.Uint32
	hotKey atomic.Uint32

	mu      sync.Mutex // guards the fields below
	profile mode.Profile
	mult    int
	devices []string
	fault   string
}

// NewController builds a controller for the configured board, on top of the
// given host bus link. ROM images and devices are loaded, and mode 0 is set
// up. The CPU is stopped until Start.
func NewController(ctx context.Context, cfg Config, link bus.Link) (*Controller, error) {
	c := &Controller{
		cfg:     cfg,
		board:   cfg.Board,
		run:     runstate.New(),
		pool:    hwio.NewPool(hwio.DefaultRAMSize, hwio.DefaultROMSize),
		io:      hwio.NewIOPageTable("io"),
		profile: cfg.Memory.Profile,
	}
	if cfg.Control.AckTimeout > 0 {
		c.run.AckTimeout = cfg.Control.AckTimeout
	}

	c.bank = mode.NewBank(cfg.Memory.MaxModes, nil)
	c.devs = vdev.NewSet(&vdev.Env{
		Pool:   c.pool,
		Board:  c.board,
		Table:  c.bank.Active,
		Select: c.selectMode,
		RFS:    cfg.Devices.RFSFiles,
	})
	c.dec = bankswitch.New(c.board, c.bank, c.devs)
	c.bridge = bus.NewBridge(bus.Config{
		Board:   c.board,
		Link:    link,
		Pool:    c.pool,
		Tables:  c.bank,
		IO:      c.io,
		Devices: c.devs,
		Decoder: c.dec,
		Fill:    cfg.Memory.Fill,
		Timeout: cfg.Bus.Timeout,
	})
	c.cpu = z80.New(c.bridge)
	c.dec.ResetCPU = c.cpu.Reset

	if err := vdev.LoadImages(ctx, c.pool, cfg.Memory.Images); err != nil {
		return nil, err
	}
	for _, name := range cfg.Devices.Installed {
		if err := c.devs.Add(name); err != nil {
			return nil, err
		}
	}
	if err := c.setMultiplier(cfg.CPU.Multiplier); err != nil {
		log.ModEmu.WarnZ("cpu multiplier").Int("mult", cfg.CPU.Multiplier).Error("err", err).End()
	}
	c.setup()

	log.ModEmu.InfoZ("controller ready").
		Stringer("board", c.board).
		Stringer("profile", c.profile).
		String("devices", fmt.Sprint(c.devs.Names())).
		End()
	return c, nil
}

// AddLogContext adds the run state and active mode to every log entry.
func (c *Controller) AddLogContext(z *log.EntryZ) {
	z.Stringer("state", c.run.State())
	z.Stringer("mode", mode.ID(c.modeID.Load()))
}

// selectMode handles control latch writes, on the exec goroutine.
func (c *Controller) selectMode(id mode.ID) mode.ID {
	c.dec.Select(id)
	active := c.bank.ActiveID()
	c.modeID.Store(uint32(active))
	return active
}

func (c *Controller) matrix() mode.Matrix {
	if c.devs.Has("TZPU") {
		return mode.TZFS
	}
	return nil
}

// baseRows returns the rows of mode 0. The tranZPUter boots in its original
// mode, unless the host memory profile is selected.
func (c *Controller) baseRows() mode.Rows {
	if c.profile == mode.Virtual && c.devs.Has("TZPU") {
		rows, _ := mode.TZFS(mode.ModeOrig)
		return rows
	}
	return c.board.Default(c.profile)
}

func (c *Controller) setupIO() {
	c.board.SetupIO(c.io)
	c.devs.MapIO(c.io)
}

// setup rebuilds everything from scratch: mode 0, device overlays, I/O
// table, then resets the devices and the CPU. Quiesced only.
func (c *Controller) setup() {
	c.bank.SetMatrix(c.matrix())
	c.bank.Reset(c.baseRows(), c.devs.MapMemory)
	c.dec.Reset(c.profile)
	c.setupIO()
	c.devs.Reset()
	c.bridge.Reset()
	c.cpu.Reset()
	c.publish()
	c.syncInfo()
}

func (c *Controller) publish() {
	c.pc.Store(uint32(c.cpu.PC()))
	c.modeID.Store(uint32(c.bank.ActiveID()))
}

func (c *Controller) syncInfo() {
	c.mu.Lock()
	c.devices = c.devs.Names()
	c.mu.Unlock()
}

func (c *Controller) setFault(err error) {
	c.mu.Lock()
	c.fault = ""
	if err != nil {
		c.fault = err.Error()
	}
	c.mu.Unlock()
}

// Start resets the CPU and runs it.
func (c *Controller) Start(ctx context.Context) error {
	err := c.run.Quiesce(ctx, runstate.Stop, func() error {
		c.cpu.Reset()
		c.bridge.Reset()
		c.setFault(nil)
		c.publish()
		return nil
	})
	if err != nil {
		return err
	}
	return c.run.Transition(ctx, runstate.Continue)
}

func (c *Controller) Stop(ctx context.Context) error {
	return c.run.Transition(ctx, runstate.Stop)
}

func (c *Controller) Pause(ctx context.Context) error {
	return c.run.Transition(ctx, runstate.Pause)
}

func (c *Controller) Continue(ctx context.Context) error {
	return c.run.Transition(ctx, runstate.Continue)
}

// Reset reinitializes the memory map to mode 0 and restarts the CPU.
func (c *Controller) Reset(ctx context.Context) error {
	err := c.run.Quiesce(ctx, runstate.Stop, func() error {
		c.setFault(nil)
		c.setup()
		return nil
	})
	if err != nil {
		return err
	}
	return c.run.Transition(ctx, runstate.Continue)
}

// UseHostRam sets the host memory profile, used from the next reset on,
// and resets.
func (c *Controller) UseHostRam(ctx context.Context) error {
	return c.useProfile(ctx, mode.Host)
}

func (c *Controller) UseVirtualRam(ctx context.Context) error {
	return c.useProfile(ctx, mode.Virtual)
}

func (c *Controller) useProfile(ctx context.Context, p mode.Profile) error {
	return c.run.Quiesce(ctx, runstate.Stop, func() error {
		c.mu.Lock()
		c.profile = p
		c.mu.Unlock()
		c.setup()
		log.ModEmu.InfoZ("memory profile").Stringer("profile", p).End()
		return nil
	})
}

const (
	syncBegin = 0x1000
	syncEnd   = 0xCFFF
)

// SyncToHostRam copies the main virtual RAM to the host RAM.
func (c *Controller) SyncToHostRam(ctx context.Context) error {
	return c.run.Quiesce(ctx, runstate.Stop, func() error {
		for addr := uint32(syncBegin); addr <= syncEnd; addr++ {
			if err := c.bridge.HostWrite(uint16(addr), c.pool.RAM.Read8(addr)); err != nil {
				c.setFault(err)
				return err
			}
		}
		log.ModEmu.InfoZ("virtual ram synced to host").End()
		return nil
	})
}

// SetCPUFrequency selects the governor delays of the multiplier. An unknown
// multiplier selects the normal speed.
func (c *Controller) SetCPUFrequency(ctx context.Context, mult int) error {
	return c.run.Quiesce(ctx, runstate.Pause, func() error {
		return c.setMultiplier(mult)
	})
}

func (c *Controller) setMultiplier(mult int) error {
	d, ok := c.board.Governor(mult)
	c.bridge.SetGovernor(d)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.mult = 1
		return fmt.Errorf("x%d: %w", mult, ErrUnsupportedMultiplier)
	}
	c.mult = mult
	log.ModEmu.DebugZ("cpu multiplier").Int("mult", mult).Int("rom", d.ROM).Int("ram", d.RAM).End()
	return nil
}

func (c *Controller) SetPC(ctx context.Context, pc uint16) error {
	return c.run.Quiesce(ctx, runstate.Pause, func() error {
		c.cpu.SetPC(pc)
		c.publish()
		return nil
	})
}

// AddDevice installs a device and rebuilds the active mode.
func (c *Controller) AddDevice(ctx context.Context, name string) error {
	return c.run.Quiesce(ctx, runstate.Stop, func() error {
		if err := c.devs.Add(name); err != nil {
			return err
		}
		c.rebuild()
		return nil
	})
}

func (c *Controller) RemoveDevice(ctx context.Context, name string) error {
	return c.run.Quiesce(ctx, runstate.Stop, func() error {
		if err := c.devs.Remove(name); err != nil {
			return err
		}
		c.rebuild()
		return nil
	})
}

// rebuild applies a device set change to the I/O table and the active mode.
// Mode 0 rows are only recomputed at the next reset, or right away when the
// active mode no longer exists without the removed device.
func (c *Controller) rebuild() {
	c.bank.SetMatrix(c.matrix())
	c.setupIO()
	if err := c.bank.Rebuild(); err != nil {
		log.ModEmu.WarnZ("back to mode 0").Error("err", err).End()
		c.bank.Reset(c.baseRows(), c.devs.MapMemory)
		c.dec.Reset(c.profile)
	}
	c.publish()
	c.syncInfo()
}

// SendRawCommand sends a bus word as is and returns the two response words.
func (c *Controller) SendRawCommand(ctx context.Context, cmd uint32) (resp [2]uint32, err error) {
	err = c.run.Quiesce(ctx, runstate.Stop, func() error {
		var rerr error
		resp, rerr = c.bridge.Raw(cmd)
		if rerr != nil {
			c.setFault(rerr)
		}
		return rerr
	})
	return resp, err
}

// State returns the run state.
func (c *Controller) State() runstate.State { return c.run.State() }

// TakeHotKey returns and clears the last hot key pressed on the host.
func (c *Controller) TakeHotKey() bus.HotKey {
	return bus.HotKey(c.hotKey.Swap(uint32(bus.HotKeyNone)))
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:      c.run.State(),
		Mode:       mode.ID(c.modeID.Load()),
		Board:      c.board,
		Profile:    c.profile,
		Devices:    slices.Clone(c.devices),
		Multiplier: c.mult,
		PC:         uint16(c.pc.Load()),
		Fault:      c.fault,
		HotKey:     bus.HotKey(c.hotKey.Load()),
	}
}
