// This file is part of Firebird Core.
//
// Firebird Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Firebird Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Firebird Core.  If not, see <https://www.gnu.org/licenses/>.

// Command firebirdcore is the headless driver named in spec §6: it has no
// display of its own, but it owns the CPU-thread goroutine, the debugger
// console, the optional GDB stub, and the optional stats dashboard, and
// implements the lifecycle the spec describes as "CPU thread blocks only
// in: debugger wait...exit on the exiting flag" using plain goroutines,
// channels and atomics instead of a condition variable.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/cpu"
	"github.com/nspiresim/firebirdcore/internal/debugger"
	"github.com/nspiresim/firebirdcore/internal/gdbstub"
	"github.com/nspiresim/firebirdcore/internal/gui"
	"github.com/nspiresim/firebirdcore/internal/logger"
	"github.com/nspiresim/firebirdcore/internal/loghook"
	"github.com/nspiresim/firebirdcore/internal/nand"
	"github.com/nspiresim/firebirdcore/internal/snapshot"
	"github.com/nspiresim/firebirdcore/internal/soc"
	"github.com/nspiresim/firebirdcore/internal/statsboard"
)

const (
	exitOK = iota
	exitEmuStartFailure
	exitMissingFlag
	exitRampayloadOpenFailure
	exitRampayloadReadFailure
	exitRampayloadTooLarge
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		boot1Path    = flag.String("boot1", "", "boot ROM image path")
		flashPath    = flag.String("flash", "", "NAND flash image path")
		snapshotPath = flag.String("snapshot", "", "resume from a snapshot file instead of cold-booting")
		rampayload   = flag.String("rampayload", "", "raw binary loaded into RAM and jumped to instead of boot1")
		rampayloadAt = flag.Uint("rampayload-address", 0x10000000, "load address for --rampayload")
		debugOnStart = flag.Bool("debug-on-start", false, "enter the debugger console before running the first batch")
		debugOnWarn  = flag.Bool("debug-on-warn", false, "enter the debugger console whenever a warning is logged")
		printOnWarn  = flag.Bool("print-on-warn", false, "print warnings to stderr as they are logged")
		diags        = flag.Bool("diags", false, "print active configuration toggles and the memory map at startup")
		gdbPort      = flag.Int("gdb-port", 0, "listen for a GDB client on this TCP port (0 disables the stub)")
		statsAddr    = flag.String("stats-addr", "", "bind address for the live runtime dashboard (empty disables it)")
		statusAddr   = flag.String("status-addr", "", "bind address for the JSON status endpoint (empty disables it)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Load()

	if *snapshotPath == "" && *flashPath == "" {
		fmt.Fprintln(os.Stderr, "emu start: --flash is required unless --snapshot is given")
		return exitMissingFlag
	}
	if *snapshotPath == "" && *boot1Path == "" && *rampayload == "" {
		fmt.Fprintln(os.Stderr, "emu start: one of --boot1 or --rampayload is required unless --snapshot is given")
		return exitMissingFlag
	}

	s, engine, err := bootstrap(cfg, *snapshotPath, *boot1Path, *flashPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emu start: %v\n", err)
		return exitEmuStartFailure
	}

	if *rampayload != "" {
		if code := loadRampayload(s, engine, *rampayload, uint32(*rampayloadAt)); code != exitOK {
			return code
		}
	}

	loop := cpu.NewLoop(engine, s.Ctx.Scheduler, s.Ctx)
	board := statsboard.New(s)
	cb := &cliCallbacks{board: board}

	s.Ctx.Notify = func(event string, args ...interface{}) {
		switch event {
		case "usblink_changed":
			attached, _ := args[0].(bool)
			cb.SetFeatureNoError(gui.ReqUSBLinkChanged, attached)
			if s.USBLink != nil {
				s.USBLink.Attach(attached)
			}
		case "nlog_printf":
			if len(args) > 0 {
				if rendered, ok := args[0].(string); ok {
					cb.NlogPrintf("%s", rendered)
				}
			}
		case "serial_putchar":
			if len(args) > 0 {
				if b, ok := args[0].(byte); ok {
					cb.Putchar(b)
				}
			}
		case "reset_hard":
			fmt.Fprintln(os.Stderr, "status: cold reset requested")
			engine.Reset(false)
		case "reset_soft":
			fmt.Fprintln(os.Stderr, "status: warm reset requested")
			engine.Reset(true)
		}
	}

	hook := loghook.New(s.Ctx, s.Memory(), cfg)
	dbg := debugger.New(s, engine, loop, cb, hook)

	var stub *gdbstub.Stub
	if *gdbPort != 0 {
		stub, err = gdbstub.New(s, engine, loop, *gdbPort)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gdb stub: %v\n", err)
			return exitEmuStartFailure
		}
		defer stub.Close()
	}

	if *statsAddr != "" || *statusAddr != "" {
		board.Start(*statsAddr, *statusAddr)
		defer board.Close(context.Background())
	}

	if *diags {
		printDiags(cfg, s)
	}

	console := openConsole()
	defer console.Close()

	breaking := false

	// debug-on-warn needs dbg and console to exist first, so the combined
	// log hook is installed here rather than at flag-parsing time.
	logger.SetHook(func(tag, message string) {
		if *printOnWarn {
			fmt.Fprintf(os.Stderr, "warn[%s]: %s\n", tag, message)
		}
		if *debugOnWarn && !breaking {
			breaking = true
			dbg.Enter()
			onBreak(dbg, console)
			breaking = false
		}
	})

	loop.SetHook(func() {
		if hook.Enabled() {
			hook.Poll(engine.PC())
		}
		if stub != nil {
			stub.Poll()
		}
		if !breaking && (dbg.ShouldBreak(engine.PC()) || (stub != nil && stub.ShouldBreak(engine.PC()))) {
			breaking = true
			onBreak(dbg, console)
			breaking = false
		}
	})

	if *debugOnStart {
		dbg.Enter()
		onBreak(dbg, console)
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run(false) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		loop.RequestStop()
		select {
		case <-done:
		case <-time.After(200 * time.Millisecond):
			// The CPU-thread goroutine missed its join deadline (spec §5
			// "terminate it if exceeded"); Go cannot forcibly kill a
			// goroutine, so the process exits out from under it instead.
		}
	case err := <-done:
		if err != nil {
			fmt.Fprintf(os.Stderr, "emu: %v\n", err)
			return exitEmuStartFailure
		}
	}

	return exitOK
}

// onBreak runs the interactive console loop while the CPU loop is paused,
// one line at a time, until `stop` is issued, the `c` command releases the
// pause, or the console reaches end of input. Leave is always called exactly once on the way out so the front end's
// debugger_entered_or_left(false) notification fires regardless of which
// command caused the exit.
func onBreak(dbg *debugger.Debugger, console lineReader) {
	defer dbg.Leave()
	for {
		line, err := console.ReadLine("(firebird) ")
		if err != nil {
			return
		}
		if line == "" {
			continue
		}
		out, err := dbg.Dispatch(line)
		if out != "" {
			fmt.Fprintln(os.Stdout, out)
		}
		if err == debugger.ErrStop {
			return
		}
		if f := strings.Fields(line); len(f) > 0 && f[0] == "c" {
			return
		}
	}
}

func bootstrap(cfg config.Config, snapshotPath, boot1Path, flashPath string) (*soc.Soc, cpu.Engine, error) {
	if snapshotPath != "" {
		s, err := snapshot.Resume(snapshotPath, cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, cpu.NewNullEngine(0), nil
	}

	variant, err := detectVariant(flashPath)
	if err != nil {
		return nil, nil, err
	}

	var boot1 []byte
	if boot1Path != "" {
		boot1, err = os.ReadFile(boot1Path)
		if err != nil {
			return nil, nil, err
		}
	}

	var s *soc.Soc
	switch variant {
	case soc.VariantCX2:
		s, err = soc.NewCX2Soc(cfg, boot1, flashPath)
	default:
		s, err = soc.NewClassicSoc(cfg, boot1, flashPath)
	}
	if err != nil {
		return nil, nil, err
	}
	return s, cpu.NewNullEngine(0), nil
}

// detectVariant distinguishes small-page from large-page flash geometry via
// nand.MetricsForImageSize and maps large-page to the CX II. The classic
// and CX variants build identical small-page flash geometry (see their own
// constructors), so file size alone can't tell them apart; with no
// --variant flag in the CLI's flag list, small-page defaults to classic.
func detectVariant(flashPath string) (soc.Variant, error) {
	fi, err := os.Stat(flashPath)
	if err != nil {
		return soc.VariantClassic, err
	}
	m, err := nand.MetricsForImageSize(fi.Size())
	if err != nil {
		return soc.VariantClassic, err
	}
	if m.PageSize > 512 {
		return soc.VariantCX2, nil
	}
	return soc.VariantClassic, nil
}

// loadRampayload writes raw bytes directly into RAM and redirects the
// engine's PC at them, bypassing the boot ROM entirely — the fast path
// used by the regression scenarios in spec §8.
func loadRampayload(s *soc.Soc, engine cpu.Engine, path string, addr uint32) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rampayload open: %v\n", err)
		return exitRampayloadOpenFailure
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rampayload open: %v\n", err)
		return exitRampayloadOpenFailure
	}

	var ramSize uint32
	for _, r := range s.MemoryMap() {
		if r.Type == "ram" {
			ramSize = r.Size
			break
		}
	}
	if ramSize == 0 || uint64(fi.Size()) > uint64(ramSize) {
		fmt.Fprintf(os.Stderr, "rampayload too large: %d bytes\n", fi.Size())
		return exitRampayloadTooLarge
	}

	data := make([]byte, fi.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		fmt.Fprintf(os.Stderr, "rampayload read: %v\n", err)
		return exitRampayloadReadFailure
	}

	mem := s.Memory()
	for i, b := range data {
		if err := mem.WriteByte(addr+uint32(i), b); err != nil {
			fmt.Fprintf(os.Stderr, "rampayload too large: %v\n", err)
			return exitRampayloadTooLarge
		}
	}

	engine.SetRegister(15, addr)
	return exitOK
}

func printDiags(cfg config.Config, s *soc.Soc) {
	fmt.Fprintf(os.Stderr, "variant: %s\n", s.Variant)
	fmt.Fprintf(os.Stderr, "config: mmio_trace=%v mmio_trace_pc=%v trace_irq=%v trace_vic=%v log_hook=%v log_hook_autoscan=%v log_hook_bypass=%v\n",
		cfg.MMIOTrace, cfg.MMIOTracePC, cfg.TraceIRQ, cfg.TraceVIC, cfg.LogHook, cfg.LogHookAutoscan, cfg.LogHookBypass)
	fmt.Fprintln(os.Stderr, "memory map:")
	for _, r := range s.MemoryMap() {
		fmt.Fprintf(os.Stderr, "  %-10s %-6s base=0x%08x size=0x%08x\n", r.Name, r.Type, r.Base, r.Size)
	}
}
