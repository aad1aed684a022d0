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

// Package debugger implements the text console commands of spec §6: a line
// of input is a case-insensitive first token plus arguments, dispatched
// against the running Soc, CPU Engine, and loop. It holds its own
// breakpoint table and wires the optional log-extraction hook's console
// commands (`nlog ...`), but leaves raw-mode terminal I/O and the
// condition-variable parking described in spec §5 to its caller — the
// headless driver owns the goroutine and the pkg/term session, this
// package only owns command semantics.
package debugger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bradleyjkemp/memviz"

	"github.com/nspiresim/firebirdcore/internal/cpu"
	"github.com/nspiresim/firebirdcore/internal/gui"
	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/loghook"
	"github.com/nspiresim/firebirdcore/internal/soc"
	"github.com/nspiresim/firebirdcore/internal/usblink"
)

// table is the dispatch-table index every console command reads and
// writes through; this core only ever populates table 0 (see
// internal/soc's own dispatchTable constant).
const table = 0

// ErrStop is returned by Dispatch when the `stop` command is issued; the
// caller's console loop should exit on seeing it.
var ErrStop = fmt.Errorf("debugger: stop requested")

// Breakpoint is one entry in the `k` command's table. R/W/X select which
// access kinds should trip it; a bare `k addr` sets X only, matching an
// execution breakpoint being the common case.
type Breakpoint struct {
	Addr    uint32
	R, W, X bool
}

// Debugger holds console session state: the breakpoint table, the
// translation-enabled display flag (`t+`/`t-`; no MMU model exists to
// actually translate against, so this only affects what the `mmu` command
// reports), and the USB-link staging directory `ln st` configures.
type Debugger struct {
	soc    *soc.Soc
	engine cpu.Engine
	loop   *cpu.Loop
	cb     gui.Callbacks
	hook   *loghook.Hook

	breakpoints  []Breakpoint
	translation  bool
	linkStageDir string
	lastFrame    []uint32
}

// New builds a Debugger around an already-constructed Soc/Engine/Loop. cb
// and hook may be nil; commands that need them report a plain error
// instead of panicking.
func New(s *soc.Soc, engine cpu.Engine, loop *cpu.Loop, cb gui.Callbacks, hook *loghook.Hook) *Debugger {
	return &Debugger{soc: s, engine: engine, loop: loop, cb: cb, hook: hook, linkStageDir: "."}
}

// Enter notifies the front end that the interactive console has taken
// over, pausing the loop so the console and the running engine never
// step on each other.
func (d *Debugger) Enter() {
	d.loop.Pause(true)
	if d.cb != nil {
		d.cb.DebuggerEnteredOrLeft(true)
	}
}

// Leave resumes the loop and notifies the front end the console gave
// control back.
func (d *Debugger) Leave() {
	d.loop.Pause(false)
	if d.cb != nil {
		d.cb.DebuggerEnteredOrLeft(false)
	}
}

// Breakpoints returns the current breakpoint table, for the CPU driver to
// consult on every access or fetch.
func (d *Debugger) Breakpoints() []Breakpoint { return d.breakpoints }

// ShouldBreak reports whether pc matches an execution breakpoint.
func (d *Debugger) ShouldBreak(pc uint32) bool {
	for _, bp := range d.breakpoints {
		if bp.Addr == pc && bp.X {
			return true
		}
	}
	return false
}

func (d *Debugger) readByte(addr uint32) (uint8, error)  { return d.soc.Dispatch.ReadByte(table, addr) }
func (d *Debugger) writeByte(addr uint32, v uint8) error { return d.soc.Dispatch.WriteByte(table, addr, v) }
func (d *Debugger) readWord(addr uint32) (uint32, error) { return d.soc.Dispatch.ReadWord(table, addr) }
func (d *Debugger) writeWord(addr uint32, v uint32) error {
	return d.soc.Dispatch.WriteWord(table, addr, v)
}

// Dispatch parses and executes one command line, returning the text to
// print (if any) or ErrStop on `stop`.
func (d *Debugger) Dispatch(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "?", "h":
		return d.help(), nil
	case "b":
		return d.backtrace(args)
	case "c":
		d.loop.Pause(false)
		return "continuing", nil
	case "s":
		return d.step()
	case "n":
		return d.stepOver()
	case "finish":
		return d.finish()
	case "d":
		return d.dump(args)
	case "r":
		return d.regs(), nil
	case "rs":
		return d.setReg(args)
	case "k":
		return d.breakpoint(args)
	case "u", "ua", "ut":
		return d.disassemble(cmd, args)
	case "mmu":
		return d.mmuDump(args)
	case "int", "int+", "int-":
		return d.irq(cmd, args)
	case "pr":
		return d.portRead(args)
	case "pw":
		return d.portWrite(args)
	case "ss":
		return d.search(args)
	case "wm":
		return d.memDump(args)
	case "wf":
		return d.memRestore(args)
	case "ln":
		return d.usbLinkCmd(args)
	case "t+", "t-":
		d.translation = cmd == "t+"
		return fmt.Sprintf("translation display: %v", d.translation), nil
	case "nlog":
		return d.nlogCmd(args)
	case "stop":
		return "", ErrStop
	case "exec":
		return d.exec(args)
	}
	return "", fmt.Errorf("unknown command: %s", fields[0])
}

func (d *Debugger) help() string {
	return strings.Join([]string{
		"? h            help",
		"b [fp]         stack backtrace",
		"c              continue",
		"s              step",
		"n              step-over",
		"finish         run to return",
		"d addr         dump 128 bytes",
		"r              show CPU registers",
		"rs n v         set register n to v",
		"k [addr [+r +w +x -r -w -x]]  add/remove breakpoint",
		"u|ua|ut [addr] disassemble (auto/ARM/Thumb)",
		"mmu [path]     dump dispatch-table graph",
		"int | int+ n | int- n  IRQ introspection",
		"pr addr        MMIO port read",
		"pw addr value  MMIO port write",
		"ss addr len b0 b1 ... (?? wildcard)  byte search",
		"wm file start size     dump memory to file",
		"wf file start [size]   restore memory from file",
		"ln c|s <file>|st <dir> USB-link operations",
		"t+ | t-        enable/disable translation display",
		"nlog on|off|scan|status|bypass on|off|status  log hook control",
		"stop           exit",
		"exec <path>    run a user program",
	}, "\n")
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad number %q: %w", s, err)
	}
	return uint32(v), nil
}

// backtrace walks the APCS frame-pointer chain (R11) down to 16 frames:
// each frame stores the caller's saved FP at [fp-12] and its return
// address at [fp-4]. A non-APCS build (Thumb leaf functions, some
// optimised ARM code) won't produce a walkable chain; this stops at the
// first read that fails or repeats rather than guessing further.
func (d *Debugger) backtrace(args []string) (string, error) {
	regs := d.engine.Registers()
	if len(regs) < 12 {
		return "", fmt.Errorf("backtrace: engine exposes too few registers")
	}
	fp := regs[11]
	if len(args) > 0 {
		v, err := parseU32(args[0])
		if err != nil {
			return "", err
		}
		fp = v
	}

	var out strings.Builder
	d.lastFrame = d.lastFrame[:0]
	for i := 0; i < 16 && fp != 0; i++ {
		savedFP, err1 := d.readWord(fp - 12)
		retAddr, err2 := d.readWord(fp - 4)
		if err1 != nil || err2 != nil {
			break
		}
		fmt.Fprintf(&out, "#%-2d 0x%08x\n", i, retAddr)
		d.lastFrame = append(d.lastFrame, retAddr)
		if savedFP == fp || savedFP == 0 {
			break
		}
		fp = savedFP
	}
	if out.Len() == 0 {
		return "no walkable frame", nil
	}
	return out.String(), nil
}

// step runs exactly one minimal engine batch. What that batch covers
// (one instruction vs. a recompiled block) is the Engine implementation's
// choice; Run(1) is the smallest budget Loop's contract allows.
func (d *Debugger) step() (string, error) {
	if _, err := d.engine.Run(1); err != nil {
		return "", err
	}
	return fmt.Sprintf("pc=0x%08x", d.engine.PC()), nil
}

// stepOver behaves like step: recognising a call instruction to skip over
// it in one bound needs a disassembler, which internal/cpu deliberately
// doesn't provide (see disassemble below).
func (d *Debugger) stepOver() (string, error) {
	return d.step()
}

// finish runs until the PC returns to the address `b` last recorded as the
// current frame's caller, bounded so a broken frame chain can't hang the
// console.
func (d *Debugger) finish() (string, error) {
	if len(d.lastFrame) == 0 {
		return "", fmt.Errorf("finish: no frame recorded, run b first")
	}
	target := d.lastFrame[0]
	const maxSteps = 1_000_000
	for i := 0; i < maxSteps; i++ {
		if _, err := d.engine.Run(1); err != nil {
			return "", err
		}
		if d.engine.PC() == target {
			return fmt.Sprintf("returned to 0x%08x", target), nil
		}
	}
	return "", fmt.Errorf("finish: did not return within %d steps", maxSteps)
}

// dump formats 128 bytes starting at addr as 8 lines of the layout spec §8
// scenario 5 requires: an absolute 8-digit address, 16 uppercase hex bytes
// with a `-` splitting the two 8-byte halves, and an ASCII gutter with no
// pipe delimiters. encoding/hex.Dump's relative-offset/lowercase/`|...|`
// layout doesn't match this, so the line formatting is hand-rolled here.
func (d *Debugger) dump(args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("usage: d addr")
	}
	addr, err := parseU32(args[0])
	if err != nil {
		return "", err
	}
	const dumpSize = 128
	buf := make([]byte, dumpSize)
	for i := range buf {
		b, err := d.readByte(addr + uint32(i))
		if err != nil {
			return "", err
		}
		buf[i] = b
	}

	var out strings.Builder
	for off := 0; off < len(buf); off += 16 {
		if off > 0 {
			out.WriteByte('\n')
		}
		line := buf[off : off+16]
		fmt.Fprintf(&out, "%08x  ", addr+uint32(off))
		for i, b := range line {
			fmt.Fprintf(&out, "%02X", b)
			switch {
			case i == 7:
				out.WriteByte('-')
			case i != 15:
				out.WriteByte(' ')
			}
		}
		out.WriteString("  ")
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				out.WriteByte(b)
			} else {
				out.WriteByte('.')
			}
		}
	}
	return out.String(), nil
}

func (d *Debugger) regs() string {
	regs := d.engine.Registers()
	var out strings.Builder
	for i, v := range regs {
		fmt.Fprintf(&out, "r%-2d 0x%08x\n", i, v)
	}
	fmt.Fprintf(&out, "pc  0x%08x\n", d.engine.PC())
	return out.String()
}

func (d *Debugger) setReg(args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("usage: rs n v")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return "", fmt.Errorf("bad register index %q: %w", args[0], err)
	}
	v, err := parseU32(args[1])
	if err != nil {
		return "", err
	}
	d.engine.SetRegister(n, v)
	return fmt.Sprintf("r%d = 0x%08x", n, v), nil
}

func (d *Debugger) breakpoint(args []string) (string, error) {
	if len(args) == 0 {
		if len(d.breakpoints) == 0 {
			return "no breakpoints", nil
		}
		var out strings.Builder
		for _, bp := range d.breakpoints {
			fmt.Fprintf(&out, "0x%08x r=%v w=%v x=%v\n", bp.Addr, bp.R, bp.W, bp.X)
		}
		return out.String(), nil
	}

	addr, err := parseU32(args[0])
	if err != nil {
		return "", err
	}

	idx := -1
	for i, bp := range d.breakpoints {
		if bp.Addr == addr {
			idx = i
			break
		}
	}

	if len(args) == 1 {
		if idx >= 0 {
			d.breakpoints = append(d.breakpoints[:idx], d.breakpoints[idx+1:]...)
			return fmt.Sprintf("removed breakpoint at 0x%08x", addr), nil
		}
		d.breakpoints = append(d.breakpoints, Breakpoint{Addr: addr, X: true})
		return fmt.Sprintf("added breakpoint at 0x%08x", addr), nil
	}

	var bp Breakpoint
	if idx >= 0 {
		bp = d.breakpoints[idx]
	} else {
		bp = Breakpoint{Addr: addr}
	}
	for _, f := range args[1:] {
		switch f {
		case "+r":
			bp.R = true
		case "-r":
			bp.R = false
		case "+w":
			bp.W = true
		case "-w":
			bp.W = false
		case "+x":
			bp.X = true
		case "-x":
			bp.X = false
		default:
			return "", fmt.Errorf("unknown breakpoint flag %q", f)
		}
	}
	if !bp.R && !bp.W && !bp.X {
		if idx >= 0 {
			d.breakpoints = append(d.breakpoints[:idx], d.breakpoints[idx+1:]...)
		}
		return fmt.Sprintf("removed breakpoint at 0x%08x", addr), nil
	}
	if idx >= 0 {
		d.breakpoints[idx] = bp
	} else {
		d.breakpoints = append(d.breakpoints, bp)
	}
	return fmt.Sprintf("breakpoint at 0x%08x: r=%v w=%v x=%v", bp.Addr, bp.R, bp.W, bp.X), nil
}

// disassemble has nothing to disassemble with: internal/cpu is an
// interface-only execution boundary (no ARM/Thumb decoder lives in this
// module), so u/ua/ut report that plainly rather than fabricating output.
func (d *Debugger) disassemble(kind string, args []string) (string, error) {
	return "", fmt.Errorf("%s: no decoder is wired to internal/cpu.Engine", kind)
}

func (d *Debugger) mmuDump(args []string) (string, error) {
	path := "mmu.dot"
	if len(args) > 0 {
		path = args[0]
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	memviz.Map(f, d.soc.Backing.Regions())
	return fmt.Sprintf("dispatch-table graph written to %s (translation display: %v)", path, d.translation), nil
}

func (d *Debugger) irq(cmd string, args []string) (string, error) {
	if cmd == "int" {
		ic := d.soc.Ctx.Intc
		return fmt.Sprintf("status=0x%08x irq=0x%08x fiq=0x%08x irq_mask=0x%08x fiq_mask=0x%08x",
			ic.Status(), ic.Pending(intc.IRQ), ic.Pending(intc.FIQ), ic.Mask(intc.IRQ), ic.Mask(intc.FIQ)), nil
	}
	if len(args) < 1 {
		return "", fmt.Errorf("usage: %s n", cmd)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return "", fmt.Errorf("bad line %q: %w", args[0], err)
	}
	d.soc.Ctx.Intc.SetMask(intc.IRQ, 1<<uint(n), cmd == "int+")
	return fmt.Sprintf("line %d mask %s", n, map[string]string{"int+": "enabled", "int-": "disabled"}[cmd]), nil
}

func (d *Debugger) portRead(args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("usage: pr addr")
	}
	addr, err := parseU32(args[0])
	if err != nil {
		return "", err
	}
	v, err := d.readWord(addr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%08x: 0x%08x", addr, v), nil
}

func (d *Debugger) portWrite(args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("usage: pw addr value")
	}
	addr, err := parseU32(args[0])
	if err != nil {
		return "", err
	}
	v, err := parseU32(args[1])
	if err != nil {
		return "", err
	}
	if err := d.writeWord(addr, v); err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%08x <- 0x%08x", addr, v), nil
}

// search implements the masked/wildcard byte search: each pattern token is
// either a two-hex-digit byte or the literal "??" wildcard.
func (d *Debugger) search(args []string) (string, error) {
	if len(args) < 3 {
		return "", fmt.Errorf("usage: ss addr len b0 b1 ...")
	}
	addr, err := parseU32(args[0])
	if err != nil {
		return "", err
	}
	length, err := parseU32(args[1])
	if err != nil {
		return "", err
	}
	pattern := args[2:]

	var matches []uint32
	for base := addr; base+uint32(len(pattern)) <= addr+length; base++ {
		ok := true
		for i, tok := range pattern {
			if tok == "??" {
				continue
			}
			want, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return "", fmt.Errorf("bad pattern byte %q: %w", tok, err)
			}
			b, err := d.readByte(base + uint32(i))
			if err != nil || b != byte(want) {
				ok = false
				break
			}
		}
		if ok {
			matches = append(matches, base)
		}
	}
	if len(matches) == 0 {
		return "no matches", nil
	}
	var out strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&out, "0x%08x\n", m)
	}
	return out.String(), nil
}

func (d *Debugger) memDump(args []string) (string, error) {
	if len(args) < 3 {
		return "", fmt.Errorf("usage: wm file start size")
	}
	start, err := parseU32(args[1])
	if err != nil {
		return "", err
	}
	size, err := parseU32(args[2])
	if err != nil {
		return "", err
	}
	buf := make([]byte, size)
	for i := range buf {
		b, err := d.readByte(start + uint32(i))
		if err != nil {
			return "", err
		}
		buf[i] = b
	}
	if err := os.WriteFile(args[0], buf, 0o600); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes to %s", size, args[0]), nil
}

func (d *Debugger) memRestore(args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("usage: wf file start [size]")
	}
	start, err := parseU32(args[1])
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	if len(args) >= 3 {
		size, err := parseU32(args[2])
		if err != nil {
			return "", err
		}
		if uint32(len(data)) > size {
			data = data[:size]
		}
	}
	for i, b := range data {
		if err := d.writeByte(start+uint32(i), b); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("restored %d bytes from %s", len(data), args[0]), nil
}

func (d *Debugger) usbLinkCmd(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: ln c|s <file>|st <dir>")
	}
	switch args[0] {
	case "c":
		attach := !d.soc.USBLink.Attached()
		d.soc.USBLink.Attach(attach)
		return fmt.Sprintf("usb link attached: %v", attach), nil
	case "s":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: ln s <file>")
		}
		data, err := os.ReadFile(filepath.Join(d.linkStageDir, args[1]))
		if err != nil {
			return "", err
		}
		d.soc.USBLink.Send(usblink.Packet{Kind: usblink.PacketBulk, Payload: data})
		return fmt.Sprintf("sent %d bytes over usb link", len(data)), nil
	case "st":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: ln st <dir>")
		}
		d.linkStageDir = args[1]
		return fmt.Sprintf("usb link staging directory: %s", args[1]), nil
	}
	return "", fmt.Errorf("unknown ln subcommand: %s", args[0])
}

func (d *Debugger) nlogCmd(args []string) (string, error) {
	if d.hook == nil {
		return "", fmt.Errorf("log hook not available")
	}
	if len(args) == 0 {
		return "", fmt.Errorf("usage: nlog on|off|scan|status|bypass on|off|status")
	}
	switch args[0] {
	case "on":
		d.hook.SetEnabled(true)
		return "nlog enabled", nil
	case "off":
		d.hook.SetEnabled(false)
		return "nlog disabled", nil
	case "scan":
		region := d.soc.Backing.Regions()[0]
		d.hook.ScanNow(region.Base, region.Size)
		return fmt.Sprintf("scan complete: %d dispatcher(s) found", len(d.hook.Dispatchers())), nil
	case "status":
		return d.hook.Status(), nil
	case "bypass":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: nlog bypass on|off|status")
		}
		switch args[1] {
		case "on":
			d.hook.SetFilterBypass(true)
			return "filter bypass enabled", nil
		case "off":
			d.hook.SetFilterBypass(false)
			return "filter bypass disabled", nil
		case "status":
			return fmt.Sprintf("filter bypass: %v", d.hook.FilterBypassEnabled()), nil
		}
	}
	return "", fmt.Errorf("unknown nlog subcommand: %s", args[0])
}

// exec loads a raw binary at the conventional RAM payload address and
// redirects execution to it, mirroring --rampayload's load path for an
// interactively-chosen file.
func (d *Debugger) exec(args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("usage: exec <path>")
	}
	const execLoadAddr = 0x10000000
	const pcRegisterIndex = 15
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	for i, b := range data {
		if err := d.writeByte(execLoadAddr+uint32(i), b); err != nil {
			return "", err
		}
	}
	d.engine.SetRegister(pcRegisterIndex, execLoadAddr)
	return fmt.Sprintf("loaded %d bytes at 0x%08x, pc set", len(data), execLoadAddr), nil
}
