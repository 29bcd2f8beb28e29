package main

import (
	"testing"

	"fusionx/emu/log"
)

func TestParseRun(t *testing.T) {
	cli := parseArgs([]string{"run", "--board", "mz700", "--profile", "host", "--port", "7000", "--log", "bus,mode"})
	if cli.mode != runMode {
		t.Fatalf("mode = %d, want runMode", cli.mode)
	}
	if cli.Run.Board != "mz700" || cli.Run.Profile != "host" || cli.Run.Port != 7000 {
		t.Errorf("run args = %+v", cli.Run)
	}
	if want := logModMask(log.ModBus.Mask() | log.ModMode.Mask()); cli.Log != want {
		t.Errorf("log mask = %X, want %X", cli.Log, want)
	}
	log.DisableDebugModules(log.ModuleMask(cli.Log))
}

func TestParseCtl(t *testing.T) {
	cli := parseArgs([]string{"ctl", "--port", "7000", "dump", "0x1000", "E800h", "--kind", "table"})
	if cli.mode != ctlMode {
		t.Fatalf("mode = %d, want ctlMode", cli.mode)
	}
	if got, want := cli.kctx.Command(), "ctl dump <start> <end>"; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
	d := cli.Ctl.Dump
	if cli.Ctl.Port != 7000 || d.Start != 0x1000 || d.End != 0xE800 || d.Kind != "table" {
		t.Errorf("dump args = port %d %+v", cli.Ctl.Port, d)
	}

	cli = parseArgs([]string{"ctl", "--port", "7000", "pc", "0x1234"})
	if cli.mode != ctlMode || cli.Ctl.PC.Addr != 0x1234 {
		t.Errorf("pc = %X (mode %d), want 1234", uint32(cli.Ctl.PC.Addr), cli.mode)
	}

	cli = parseArgs([]string{"ctl", "--port", "7000", "remove-device", "rfs"})
	if cli.Ctl.RemoveDevice.Name != "rfs" {
		t.Errorf("remove-device name = %q, want rfs", cli.Ctl.RemoveDevice.Name)
	}
}

func TestParseOthers(t *testing.T) {
	if cli := parseArgs([]string{"version"}); cli.mode != versionMode {
		t.Errorf("version: mode = %d, want versionMode", cli.mode)
	}
	cli := parseArgs([]string{"config", "--save"})
	if cli.mode != configMode || !cli.Config.Save {
		t.Errorf("config --save: mode = %d, save %t", cli.mode, cli.Config.Save)
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"0xE800", 0xE800},
		{"E800h", 0xE800},
		{"4096", 4096},
		{"0x20010", 0x20010},
	}
	for _, tt := range tests {
		if got, err := parseHex(tt.in); err != nil || got != tt.want {
			t.Errorf("parseHex(%q) = %X, %v, want %X", tt.in, got, err, tt.want)
		}
	}
	if _, err := parseHex("E800"); err == nil {
		t.Errorf("parseHex(E800) succeeded, want error")
	}
}
