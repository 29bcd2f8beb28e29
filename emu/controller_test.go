package emu_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fusionx/emu"
	"fusionx/hw/bus"
	"fusionx/hw/hwio"
	"fusionx/hw/mode"
	"fusionx/hw/runstate"
	"fusionx/hw/vdev"
)

func testConfig() emu.Config {
	cfg := emu.DefaultConfig()
	cfg.Bus.Timeout = 5 * time.Millisecond
	cfg.Control.AckTimeout = time.Second
	return cfg
}

// startController builds a controller over a simulated host and runs its
// exec loop until the test ends.
func startController(tb testing.TB, cfg emu.Config) (*emu.Controller, *bus.SimHost) {
	tb.Helper()

	host := bus.NewSimHost()
	ctx, cancel := context.WithCancel(context.Background())
	c, err := emu.NewController(ctx, cfg, host)
	if err != nil {
		cancel()
		tb.Fatalf("NewController() = %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	tb.Cleanup(func() {
		cancel()
		<-done
	})

	if err := c.Start(ctx); err != nil {
		tb.Fatalf("Start() = %v", err)
	}
	return c, host
}

func waitState(tb testing.TB, c *emu.Controller, want runstate.State) {
	tb.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.State() != want {
		if time.Now().After(deadline) {
			tb.Fatalf("state = %v, want %v", c.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDumpWhileRunning(t *testing.T) {
	c, _ := startController(t, testConfig())
	ctx := context.Background()

	data := []byte("@ABCDEFGHIJKLMNO")
	if err := c.LoadMemory(ctx, 0, data, emu.MemVirtualRAM); err != nil {
		t.Fatalf("LoadMemory() = %v", err)
	}
	waitState(t, c, runstate.Running)

	got, err := c.DumpMemory(ctx, emu.DumpRequest{Start: 0, End: 0x10, Kind: emu.MemVirtualRAM, Width: 16})
	if err != nil {
		t.Fatalf("DumpMemory() = %v", err)
	}
	want := "00000000:  40 41 42 43 44 45 46 47 48 49 4A 4B 4C 4D 4E 4F  |@ABCDEFGHIJKLMNO|\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DumpMemory() mismatch (-want +got):\n%s", diff)
	}
	if s := c.State(); s != runstate.Running {
		t.Errorf("state = %v after dump, want Running", s)
	}
}

func TestDumpFormat(t *testing.T) {
	cfg := testConfig()
	cfg.CPU.ScreenWidth = 40
	c, _ := startController(t, cfg)
	ctx := context.Background()

	if err := c.LoadMemory(ctx, 0x20000, []byte("0123456789"), emu.MemVirtualRAM); err != nil {
		t.Fatal(err)
	}
	got, err := c.DumpMemory(ctx, emu.DumpRequest{Start: 0x20000, End: 0x2000A, Kind: emu.MemVirtualRAM})
	if err != nil {
		t.Fatal(err)
	}
	want := "" +
		"00020000:  30 31 32 33 34 35 36 37  |01234567|\n" +
		"00020008:  38 39                    |89      |\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DumpMemory() mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.DumpMemory(ctx, emu.DumpRequest{Start: 0x10, End: 0x10, Kind: emu.MemHost}); !errors.Is(err, emu.ErrBadRange) {
		t.Errorf("DumpMemory(empty) = %v, want ErrBadRange", err)
	}
	if _, err := c.DumpMemory(ctx, emu.DumpRequest{Start: 0, End: 0x10001, Kind: emu.MemHost}); !errors.Is(err, emu.ErrBadRange) {
		t.Errorf("DumpMemory(too large) = %v, want ErrBadRange", err)
	}
}

func TestReset(t *testing.T) {
	c, _ := startController(t, testConfig())
	ctx := context.Background()

	if err := c.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Reset(ctx); err != nil {
		t.Fatalf("Reset() = %v", err)
	}
	st := c.Status()
	if st.State != runstate.Running || st.Mode != mode.ModeOrig {
		t.Errorf("after Reset: state %v mode %v, want Running ORIG", st.State, st.Mode)
	}
}

func TestUseHostRam(t *testing.T) {
	c, _ := startController(t, testConfig())
	ctx := context.Background()

	if err := c.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.UseHostRam(ctx); err != nil {
		t.Fatalf("UseHostRam() = %v", err)
	}
	st := c.Status()
	if st.Profile != mode.Host || st.State != runstate.Paused {
		t.Errorf("profile %v state %v, want host Paused", st.Profile, st.State)
	}

	out, err := c.DumpMemory(ctx, emu.DumpRequest{Start: 0, End: 1, Kind: emu.MemPageTable, Width: 8})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "00000000:  02000000 ") {
		t.Errorf("page table dump = %q, want PhysicalROM at 0000", out)
	}

	if err := c.UseVirtualRam(ctx); err != nil {
		t.Fatalf("UseVirtualRam() = %v", err)
	}
	if got := c.Status().Profile; got != mode.Virtual {
		t.Errorf("profile = %v, want virtual", got)
	}
	if err := c.Continue(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestSyncToHostRam(t *testing.T) {
	c, host := startController(t, testConfig())
	ctx := context.Background()

	if err := c.LoadMemory(ctx, 0x2000, []byte{0xDE, 0xAD}, emu.MemVirtualRAM); err != nil {
		t.Fatal(err)
	}
	if err := c.SyncToHostRam(ctx); err != nil {
		t.Fatalf("SyncToHostRam() = %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if host.Mem[0x2000] != 0xDE || host.Mem[0x2001] != 0xAD {
		t.Errorf("host Mem[2000:2002] = % X, want DE AD", host.Mem[0x2000:0x2002])
	}
}

func TestDevices(t *testing.T) {
	c, _ := startController(t, testConfig())
	ctx := context.Background()

	if err := c.AddDevice(ctx, "MZ1R18"); !errors.Is(err, vdev.ErrBoard) {
		t.Errorf("AddDevice(MZ1R18) on mz80a = %v, want ErrBoard", err)
	}
	if err := c.AddDevice(ctx, "tzpu"); !errors.Is(err, vdev.ErrDuplicate) {
		t.Errorf("AddDevice(tzpu) = %v, want ErrDuplicate", err)
	}
	if err := c.AddDevice(ctx, "rfs"); err != nil {
		t.Fatalf("AddDevice(rfs) = %v", err)
	}
	if diff := cmp.Diff([]string{"TZPU", "RFS"}, c.Status().Devices); diff != "" {
		t.Errorf("devices mismatch (-want +got):\n%s", diff)
	}
	if err := c.RemoveDevice(ctx, "RFS"); err != nil {
		t.Fatalf("RemoveDevice(RFS) = %v", err)
	}
	if err := c.RemoveDevice(ctx, "RFS"); !errors.Is(err, vdev.ErrNotInstalled) {
		t.Errorf("RemoveDevice(RFS) twice = %v, want ErrNotInstalled", err)
	}
	if s := c.State(); s != runstate.Running {
		t.Errorf("state = %v, want Running", s)
	}
}

// tableEntry reads one entry of the active page table through a dump.
func tableEntry(tb testing.TB, c *emu.Controller, addr uint32) hwio.Entry {
	tb.Helper()
	out, err := c.DumpMemory(context.Background(), emu.DumpRequest{Start: addr, End: addr + 1, Kind: emu.MemPageTable, Width: 1})
	if err != nil {
		tb.Fatalf("DumpMemory(table %04X) = %v", addr, err)
	}
	v, err := strconv.ParseUint(out[11:19], 16, 32)
	if err != nil {
		tb.Fatalf("table dump %q: %v", out, err)
	}
	return hwio.Entry{Kind: hwio.Kind(v >> 24), Target: uint32(v) & hwio.MaxTarget}
}

func wantTable(tb testing.TB, c *emu.Controller, addr uint32, kind hwio.Kind, target uint32) {
	tb.Helper()
	want := hwio.Entry{Kind: kind, Target: target}
	if got := tableEntry(tb, c, addr); got != want {
		tb.Errorf("table[%04X] = %v, want %v", addr, got, want)
	}
}

func TestDevicesRebuildModeZero(t *testing.T) {
	c, _ := startController(t, testConfig())
	ctx := context.Background()

	if err := c.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	wantTable(t, c, 0xE800, hwio.VirtualRAMReadOnly, 0xE800)

	if err := c.AddDevice(ctx, "rfs"); err != nil {
		t.Fatalf("AddDevice(rfs) = %v", err)
	}
	wantTable(t, c, 0x0000, hwio.VirtualROM, 0)
	wantTable(t, c, 0xE800, hwio.VirtualROMHW, 0x80000)
	wantTable(t, c, 0x1000, hwio.PhysicalRAM, 0x1000)

	if err := c.RemoveDevice(ctx, "rfs"); err != nil {
		t.Fatalf("RemoveDevice(rfs) = %v", err)
	}
	wantTable(t, c, 0x0000, hwio.VirtualRAMReadOnly, 0)
	wantTable(t, c, 0xE800, hwio.VirtualRAMReadOnly, 0xE800)
	if s := c.State(); s != runstate.Paused {
		t.Errorf("state = %v, want Paused", s)
	}
}

func TestRemoveLatchDeviceInTZFS(t *testing.T) {
	c, _ := startController(t, testConfig())
	ctx := context.Background()

	if err := c.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	// LD A,2; OUT (60h),A; JR $
	prog := []byte{0x3E, 0x02, 0xD3, 0x60, 0x18, 0xFE}
	if err := c.LoadMemory(ctx, 0, prog, emu.MemVirtualRAM); err != nil {
		t.Fatal(err)
	}
	if err := c.SetPC(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if err := c.Continue(ctx); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for c.Status().Mode != mode.ModeTZFS {
		if time.Now().After(deadline) {
			t.Fatalf("mode = %v, want TZFS", c.Status().Mode)
		}
		time.Sleep(time.Millisecond)
	}
	if err := c.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	wantTable(t, c, 0x1000, hwio.VirtualRAM, 0x1000)
	wantTable(t, c, 0xF000, hwio.VirtualRAM, 0xF000)

	if err := c.RemoveDevice(ctx, "TZPU"); err != nil {
		t.Fatalf("RemoveDevice(TZPU) = %v", err)
	}
	if m := c.Status().Mode; m != mode.ModeOrig {
		t.Errorf("mode = %v after removing TZPU, want mode 0", m)
	}
	// Mode 0 is now the board virtual profile.
	wantTable(t, c, 0x0000, hwio.VirtualROM, 0)
	wantTable(t, c, 0x1000, hwio.VirtualRAM, 0x1000)
	wantTable(t, c, 0xD000, hwio.PhysicalVRAM, 0xD000)
	wantTable(t, c, 0xE800, hwio.VirtualHW, 0xE800)
}

func TestSendRawCommand(t *testing.T) {
	c, host := startController(t, testConfig())
	ctx := context.Background()

	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	host.Mem[0x1234] = 0xAB
	if err := c.Continue(ctx); err != nil {
		t.Fatal(err)
	}

	resp, err := c.SendRawCommand(ctx, bus.Command(0x1234, 0, bus.TagRead))
	if err != nil {
		t.Fatalf("SendRawCommand() = %v", err)
	}
	if want := uint32(bus.TagRead)<<8 | 0xAB; resp[0] != want {
		t.Errorf("resp[0] = %08X, want %08X", resp[0], want)
	}
}

func TestSetCPUFrequency(t *testing.T) {
	c, _ := startController(t, testConfig())
	ctx := context.Background()

	if err := c.SetCPUFrequency(ctx, 4); err != nil {
		t.Fatalf("SetCPUFrequency(4) = %v", err)
	}
	if got := c.Status().Multiplier; got != 4 {
		t.Errorf("multiplier = %d, want 4", got)
	}
	if err := c.SetCPUFrequency(ctx, 3); !errors.Is(err, emu.ErrUnsupportedMultiplier) {
		t.Errorf("SetCPUFrequency(3) = %v, want ErrUnsupportedMultiplier", err)
	}
	if got := c.Status().Multiplier; got != 1 {
		t.Errorf("multiplier = %d after unsupported one, want 1", got)
	}
	if s := c.State(); s != runstate.Running {
		t.Errorf("state = %v, want Running", s)
	}
}

func TestSetPC(t *testing.T) {
	c, _ := startController(t, testConfig())
	ctx := context.Background()

	if err := c.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.SetPC(ctx, 0x1234); err != nil {
		t.Fatalf("SetPC() = %v", err)
	}
	if st := c.Status(); st.PC != 0x1234 || st.State != runstate.Paused {
		t.Errorf("Status() pc %04X state %v, want 1234 Paused", st.PC, st.State)
	}
}

func TestBusFaultPauses(t *testing.T) {
	c, host := startController(t, testConfig())
	ctx := context.Background()

	host.Stall(true)
	waitState(t, c, runstate.Paused)
	if c.Status().Fault == "" {
		t.Fatal("no fault reported in status")
	}

	// Control path host accesses fail too, and the CPU stays paused.
	if _, err := c.SendRawCommand(ctx, bus.Command(0, 0, bus.TagRead)); !errors.Is(err, bus.ErrBusFault) {
		t.Errorf("SendRawCommand() = %v, want ErrBusFault", err)
	}
	if s := c.State(); s != runstate.Paused {
		t.Errorf("state = %v after faulted command, want Paused", s)
	}

	host.Stall(false)
	if err := c.Continue(ctx); err != nil {
		t.Fatal(err)
	}
	if s := c.State(); s != runstate.Running {
		t.Errorf("state = %v, want Running", s)
	}
}

func TestStatusJSON(t *testing.T) {
	want := emu.Status{
		State:      runstate.Paused,
		Mode:       mode.ModeTZFS,
		Board:      mode.MZ700,
		Profile:    mode.Host,
		Devices:    []string{"TZPU", "MZ1R18"},
		Multiplier: 8,
		PC:         0xE800,
		Fault:      "bus fault",
		HotKey:     bus.HotKeyTZFS,
	}
	buf, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	var got emu.Status
	if err := json.Unmarshal(buf, &got); err != nil {
		t.Fatalf("Unmarshal(%s) = %v", buf, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("status round trip mismatch (-want +got):\n%s", diff)
	}
}
