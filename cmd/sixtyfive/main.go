// Command sixtyfive loads a ROM image, wires it to a JIT-compiling 6502
// driver, and runs it from the reset vector. Flag handling follows the
// teacher pack's urfave/cli.v2 convention (master-g-childhood/go/chr2png)
// rather than the standard library's flag package.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v2"

	"sixtyfive/c64"
	"sixtyfive/cpu"
	"sixtyfive/debugtui"
	"sixtyfive/jitdrv"
	"sixtyfive/mem"
	"sixtyfive/nes"
	"sixtyfive/rom"
	"sixtyfive/trace"
)

func main() {
	app := &cli.App{
		Name:    "sixtyfive",
		Usage:   "run a 6502 ROM image through a JIT-compiling emulator core",
		Version: "v0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "rom",
				Aliases:  []string{"r"},
				Usage:    "path to an iNES (.nes) or C64 PRG (.prg) image",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "trace",
				Usage: "path to a trace filter YAML file (optional; trace is off unless set)",
			},
			&cli.StringFlag{
				Name:  "save-compiled",
				Usage: "directory to persist generated bodies into (accepted, not yet encoded)",
			},
			&cli.BoolFlag{
				Name:  "interactive",
				Usage: "step through execution in the debugtui inspector instead of running free",
			},
		},
		Action: run,
	}
	sort.Sort(cli.FlagsByName(app.Flags))

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sixtyfive:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	path := c.String("rom")
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading rom %q", path)
	}

	bus := mem.New()
	entry, err := loadImage(bus, path, raw)
	if err != nil {
		return err
	}

	hal := cpu.New(bus)
	if tracePath := c.String("trace"); tracePath != "" {
		cfg, err := trace.LoadConfig(tracePath)
		if err != nil {
			return errors.Wrapf(err, "loading trace config %q", tracePath)
		}
		logger := trace.NewLogger(os.Stdout, cfg)
		hal.SetDebugHook(logger.Hook(func() trace.Snapshot {
			return trace.Snapshot{A: hal.A, X: hal.X, Y: hal.Y, SP: hal.SP, P: hal.FlagsByte(), PC: hal.PC}
		}))
	}

	driver := jitdrv.New(hal, 0)

	if dir := c.String("save-compiled"); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating save-compiled dir %q", dir)
		}
	}

	if c.Bool("interactive") {
		hal.PC = entry
		if _, err := debugtui.New(driver.Hal(), driver.Cache()).Run(); err != nil {
			return errors.Wrap(err, "debugtui")
		}
		return nil
	}

	_, err = driver.Run(entry, func(uint16) bool { return false })
	if err != nil {
		return errors.Wrap(err, "running")
	}
	return nil
}

// loadImage parses raw according to path's extension and attaches the
// resulting memory map to bus, returning the reset-vector entry point.
func loadImage(bus *mem.Bus, path string, raw []byte) (uint16, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nes":
		img, err := rom.LoadNES(raw)
		if err != nil {
			return 0, errors.Wrap(err, "loading iNES image")
		}
		nes.NewConsole(bus, img)
	case ".prg":
		img, err := rom.LoadC64(raw)
		if err != nil {
			return 0, errors.Wrap(err, "loading C64 image")
		}
		c64.NewMachine(bus, img)
	default:
		return 0, errors.Errorf("unrecognized rom extension %q (want .nes or .prg)", filepath.Ext(path))
	}

	lo := bus.Read(cpu.VectorReset)
	hi := bus.Read(cpu.VectorReset + 1)
	return uint16(hi)<<8 | uint16(lo), nil
}
