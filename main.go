package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/BurntSushi/toml"

	"fusionx/emu"
	"fusionx/emu/rpc"
)

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case runMode:
		checkf(runMain(cli.Run), "controller failed")
	case ctlMode:
		client, err := rpc.NewClient(cli.Ctl.Port)
		checkf(err, "failed to connect to controller on port %d", cli.Ctl.Port)
		defer client.Close()
		if err := cli.kctx.Run(client); err != nil {
			client.Close()
			fatalf("%s: %s", cli.kctx.Command(), err)
		}
	case configMode:
		cfg, err := emu.LoadConfig(cli.Config.Config)
		checkf(err, "failed to load config")
		if cli.Config.Save {
			checkf(emu.SaveConfig(cli.Config.Config, cfg), "failed to save config")
			fmt.Println("config saved to", emu.ConfigPath(cli.Config.Config))
			return
		}
		checkf(toml.NewEncoder(os.Stdout).Encode(cfg), "failed to print config")
	case versionMode:
		printVersion()
	}
}

func printVersion() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("fusionx", version)
}
