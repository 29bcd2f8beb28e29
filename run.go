package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"golang.org/x/sync/errgroup"

	"fusionx/emu"
	"fusionx/emu/log"
	"fusionx/emu/rpc"
	"fusionx/hw/bus"
	"fusionx/hw/mode"
)

// runMain runs the controller until interrupted.
func runMain(args Run) error {
	cfg, err := emu.LoadConfig(args.Config)
	if err != nil {
		return err
	}
	if args.Board != "" {
		if cfg.Board, err = mode.ParseBoard(args.Board); err != nil {
			return err
		}
	}
	if args.Profile != "" {
		if cfg.Memory.Profile, err = mode.ParseProfile(args.Profile); err != nil {
			return err
		}
	}
	if args.Port != 0 {
		cfg.Control.Port = args.Port
	}

	if args.CPUProfile != "" {
		f, err := os.Create(args.CPUProfile)
		checkf(err, "failed to create cpu profile file")
		checkf(pprof.StartCPUProfile(f), "failed to start cpu profile")
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
			fmt.Println("CPU profile written to", args.CPUProfile)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// No gate array driver in this build, the host side of the bus is
	// simulated.
	host := bus.NewSimHost()
	ctl, err := emu.NewController(ctx, cfg, host)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctl.Run(ctx) })

	if cfg.Control.Port != 0 {
		server, err := rpc.NewServer(cfg.Control.Port, ctl)
		if err != nil {
			stop()
			g.Wait()
			return fmt.Errorf("failed to create rpc server: %w", err)
		}
		g.Go(func() error { return server.Serve(ctx) })
	}

	if err := ctl.Start(ctx); err != nil {
		stop()
		g.Wait()
		return err
	}
	log.ModEmu.InfoZ("controller running").
		Stringer("board", cfg.Board).
		Int("port", cfg.Control.Port).
		End()

	return g.Wait()
}
