package main

import (
	"fmt"
	"os"
	"strings"

	"fusionx/emu"
	"fusionx/emu/rpc"
	"fusionx/hw/bus"
)

type (
	CtlStart      struct{}
	CtlStop       struct{}
	CtlPause      struct{}
	CtlContinue   struct{}
	CtlReset      struct{}
	CtlHostRAM    struct{}
	CtlVirtualRAM struct{}
	CtlSync       struct{}
	CtlStatus     struct{}

	CtlDump struct {
		Start hexval   `arg:"" help:"First address."`
		End   hexval   `arg:"" help:"Address after the last one."`
		Kind  string   `name:"kind" help:"Memory to dump: host, ram, rom, table or io." default:"ram" enum:"host,ram,rom,table,io"`
		Width int      `name:"width" help:"Cells per line. (default: from the screen width)"`
		Out   *outfile `name:"out" help:"Write the dump to a file." placeholder:"FILE|stdout|stderr"`
	}

	CtlLoad struct {
		Addr hexval `arg:"" help:"Load address."`
		File string `arg:"" help:"File to load." type:"existingfile"`
		Kind string `name:"kind" help:"Memory to load into: host, ram or rom." default:"ram" enum:"host,ram,rom"`
	}

	CtlSpeed struct {
		Mult int `arg:"" help:"Multiplier of the host CPU frequency (1, 2, 4, ... 128)."`
	}

	CtlPC struct {
		Addr hexval `arg:"" help:"New program counter."`
	}

	CtlAddDevice struct {
		Name string `arg:"" help:"Device name (TZPU, RFS, MZ1R18)."`
	}

	CtlRemoveDevice struct {
		Name string `arg:"" help:"Device name."`
	}

	CtlRaw struct {
		Cmd hexval `arg:"" help:"Bus command word, address<<16 | data<<8 | tag."`
	}
)

func (CtlStart) Run(c *rpc.Client) error      { return c.Start() }
func (CtlStop) Run(c *rpc.Client) error       { return c.Stop() }
func (CtlPause) Run(c *rpc.Client) error      { return c.Pause() }
func (CtlContinue) Run(c *rpc.Client) error   { return c.Continue() }
func (CtlReset) Run(c *rpc.Client) error      { return c.Reset() }
func (CtlHostRAM) Run(c *rpc.Client) error    { return c.UseHostRam() }
func (CtlVirtualRAM) Run(c *rpc.Client) error { return c.UseVirtualRam() }
func (CtlSync) Run(c *rpc.Client) error       { return c.SyncToHostRam() }

func (cmd *CtlDump) Run(c *rpc.Client) error {
	kind, err := emu.ParseMemKind(cmd.Kind)
	if err != nil {
		return err
	}
	out, err := c.DumpMemory(emu.DumpRequest{
		Start: uint32(cmd.Start),
		End:   uint32(cmd.End),
		Kind:  kind,
		Width: cmd.Width,
	})
	if err != nil {
		return err
	}
	if cmd.Out == nil {
		_, err = os.Stdout.WriteString(out)
		return err
	}
	defer cmd.Out.Close()
	_, err = fmt.Fprint(cmd.Out, out)
	return err
}

func (cmd *CtlLoad) Run(c *rpc.Client) error {
	kind, err := emu.ParseMemKind(cmd.Kind)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(cmd.File)
	if err != nil {
		return err
	}
	return c.LoadMemory(uint32(cmd.Addr), data, kind)
}

func (cmd *CtlSpeed) Run(c *rpc.Client) error { return c.SetCPUFrequency(cmd.Mult) }

func (cmd *CtlPC) Run(c *rpc.Client) error {
	if cmd.Addr > 0xFFFF {
		return fmt.Errorf("pc %X out of the address space", uint32(cmd.Addr))
	}
	return c.SetPC(uint16(cmd.Addr))
}

func (cmd *CtlAddDevice) Run(c *rpc.Client) error    { return c.AddDevice(cmd.Name) }
func (cmd *CtlRemoveDevice) Run(c *rpc.Client) error { return c.RemoveDevice(cmd.Name) }

func (cmd *CtlRaw) Run(c *rpc.Client) error {
	resp, err := c.SendRawCommand(uint32(cmd.Cmd))
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", bus.FormatCommand(uint32(cmd.Cmd)))
	fmt.Printf("  %08X\n  %08X\n", resp[0], resp[1])
	return nil
}

func (CtlStatus) Run(c *rpc.Client) error {
	st, err := c.Status()
	if err != nil {
		return err
	}
	printStatus(st)
	return nil
}

func printStatus(st emu.Status) {
	fmt.Printf("state:      %v\n", st.State)
	fmt.Printf("board:      %v (%v memory)\n", st.Board, st.Profile)
	fmt.Printf("mode:       %d %v\n", st.Mode, st.Mode)
	fmt.Printf("devices:    %s\n", strings.Join(st.Devices, ", "))
	fmt.Printf("multiplier: x%d\n", st.Multiplier)
	fmt.Printf("pc:         %04X\n", st.PC)
	if st.HotKey != bus.HotKeyNone {
		fmt.Printf("hot key:    %v\n", st.HotKey)
	}
	if st.Fault != "" {
		fmt.Printf("fault:      %s\n", st.Fault)
	}
}
