package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"fusionx/emu/log"
)

type cliMode byte

const (
	runMode     cliMode = iota // Run the controller
	ctlMode                    // Send a command to a running controller
	configMode                 // Print or save the configuration
	versionMode                // Show fusionx version
)

type (
	CLI struct {
		Run     Run       `cmd:"" help:"Run the controller on the host bus."`
		Ctl     Ctl       `cmd:"" help:"Send a control command to a running controller."`
		Config  ConfigCmd `cmd:"" help:"Print or save the effective configuration."`
		Version Version   `cmd:"" help:"Show fusionx version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode cliMode
		kctx *kong.Context
	}

	Run struct {
		Config     string `name:"config" help:"${config_help}" type:"path"`
		Board      string `name:"board" help:"Host board (mz80a, mz700, mz2000)."`
		Profile    string `name:"profile" help:"Memory profile at reset (virtual, host)."`
		Port       int    `name:"port" help:"Serve control commands over rpc on this port."`
		CPUProfile string `name:"cpuprofile" help:"Write CPU profile to file." type:"path"`
	}

	Ctl struct {
		Port int `name:"port" help:"Port of the controller rpc server." required:""`

		Start        CtlStart        `cmd:"" help:"Reset the CPU and run it."`
		Stop         CtlStop         `cmd:"" help:"Stop the CPU."`
		Pause        CtlPause        `cmd:"" help:"Pause the CPU."`
		Continue     CtlContinue     `cmd:"" help:"Resume a paused or stopped CPU."`
		Reset        CtlReset        `cmd:"" help:"Reset the memory map and restart the CPU."`
		HostRAM      CtlHostRAM      `cmd:"" name:"host-ram" help:"Boot on host memory from now on."`
		VirtualRAM   CtlVirtualRAM   `cmd:"" name:"virtual-ram" help:"Boot on virtual memory from now on."`
		Sync         CtlSync         `cmd:"" help:"Copy virtual RAM to host RAM."`
		Dump         CtlDump         `cmd:"" help:"Dump memory or page tables."`
		Load         CtlLoad         `cmd:"" help:"Load a file into memory."`
		Speed        CtlSpeed        `cmd:"" help:"Set the CPU speed multiplier."`
		PC           CtlPC           `cmd:"" name:"pc" help:"Set the program counter."`
		AddDevice    CtlAddDevice    `cmd:"" name:"add-device" help:"Install a virtual device."`
		RemoveDevice CtlRemoveDevice `cmd:"" name:"remove-device" help:"Remove a virtual device."`
		Raw          CtlRaw          `cmd:"" help:"Send a raw 32-bit bus command."`
		Status       CtlStatus       `cmd:"" help:"Show controller status."`
	}

	ConfigCmd struct {
		Config string `name:"config" help:"${config_help}" type:"path"`
		Save   bool   `name:"save" help:"Write the effective configuration back to the file."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"config_help": "Configuration file. (default: config.toml in the user config directory)",
	"log_help":    "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("fusionx"),
		kong.Description("Sharp MZ bus and memory virtualization controller."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	cfg.kctx = ctx
	switch cmd := ctx.Command(); {
	case cmd == "run":
		cfg.mode = runMode
	case strings.HasPrefix(cmd, "ctl "):
		cfg.mode = ctlMode
	case cmd == "config":
		cfg.mode = configMode
	case cmd == "version":
		cfg.mode = versionMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "run") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm *logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	var mask logModMask
	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			mask |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if mask != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		mask = logModMask(log.ModuleMaskAll)
	}

	*lm = mask
	log.EnableDebugModules(log.ModuleMask(mask))
	return nil
}

// hexval is an unsigned integer accepting decimal, 0x hexadecimal or a
// trailing h (E800h).
type hexval uint32

// Decode implements kong.MapperValue interface.
func (h *hexval) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	v, err := parseHex(tok.Value.(string))
	if err != nil {
		return err
	}
	*h = hexval(v)
	return nil
}

func parseHex(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 0
	if rest, ok := strings.CutSuffix(strings.ToLower(s), "h"); ok {
		s, base = rest, 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint32(v), nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
