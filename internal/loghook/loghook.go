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

// Package loghook implements the optional log-extraction hook of spec
// §4.K: it scans guest OS code for the byte signature of known logging
// dispatcher functions, and on a breakpoint hit at a registered dispatcher
// reconstructs the format string and arguments from registers and stack,
// rendering a record to the debug sink. Always off unless one of the three
// FIREBIRD_NSPIRE_LOG_* variables enabled it in internal/config.
package loghook

import (
	"fmt"
	"strings"

	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/periph"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
)

// anchors are short strings that, when found in the guest image, sit near a
// logging dispatcher's string-table references. A real OS build carries
// many more; this set is representative rather than exhaustive, matching
// the hook's own "scan, don't assume a fixed offset" design.
var anchors = []string{
	"_debug_log_%d.txt",
	"_boot_log_%d.txt",
	"_error_log_%d.txt",
}

// prologue is the ARM STMDB sp!, {..., lr} opcode mask/value pair: bits
// 27-25 = 100, bit 24 (P)=1, bit 23 (U)=0, bit 20 (L)=0, bits 19-16
// (Rn)=1101 (sp), and bit 14 (lr) of the register list set.
const (
	prologueMask  = 0xFFFF4000
	prologueValue = 0xE92D4000
)

// Dispatcher is one discovered logging entry point.
type Dispatcher struct {
	Addr uint32
}

// Hook holds the scan results and enable state for one loaded image.
type Hook struct {
	ctx *sysctx.SystemContext
	mem periph.Memory

	enabled   bool
	autoscan  bool
	bypass    bool
	installed bool

	dispatchers []Dispatcher
}

// New builds a Hook from the startup config. The hook does nothing until
// Enabled() is true and ScanNow (or an autoscan poll) has populated at
// least one dispatcher.
func New(ctx *sysctx.SystemContext, mem periph.Memory, cfg config.Config) *Hook {
	return &Hook{
		ctx:      ctx,
		mem:      mem,
		enabled:  cfg.LogHook,
		autoscan: cfg.LogHookAutoscan,
		bypass:   cfg.LogHookBypass,
	}
}

// Enabled reports whether the hook is armed.
func (h *Hook) Enabled() bool { return h.enabled }

// SetEnabled arms or disarms the hook from the debugger's `nlog on|off`.
func (h *Hook) SetEnabled(enabled bool) { h.enabled = enabled }

// FilterBypassEnabled reports whether discovered filter checks are patched
// to unconditional branches.
func (h *Hook) FilterBypassEnabled() bool { return h.bypass }

// SetFilterBypass arms or disarms the `nlog bypass on|off` patch. Patches
// already applied are not retroactively reverted; a fresh ScanNow is needed
// to apply a newly-enabled bypass.
func (h *Hook) SetFilterBypass(enabled bool) { h.bypass = enabled }

// Dispatchers returns the addresses found by the most recent scan.
func (h *Hook) Dispatchers() []Dispatcher { return h.dispatchers }

// Status renders the one-line summary the `nlog status` command prints.
func (h *Hook) Status() string {
	state := "disabled"
	if h.enabled {
		state = "enabled"
	}
	bypass := "off"
	if h.bypass {
		bypass = "on"
	}
	return fmt.Sprintf("nlog: %s, %d dispatcher(s) found, filter bypass %s", state, len(h.dispatchers), bypass)
}

// Poll is called from the CPU loop once per batch to lazily run an autoscan
// once OS code looks live (pc has left the boot ROM's low address range).
// It is a no-op once a scan has already run or autoscan is off.
func (h *Hook) Poll(pc uint32) {
	if !h.enabled || !h.autoscan || h.installed || pc < 0x10000000 {
		return
	}
	// OS code runs from SDRAM at 0x10000000; scan its first 32MB, the
	// smallest SDRAM size of any variant.
	h.ScanNow(0x10000000, 0x02000000)
}

// ScanNow walks [base, base+size) for anchor strings and, for every match,
// looks backward up to 256 bytes for an ARM push-with-lr prologue,
// recording its address as a dispatcher candidate. Safe to call more than
// once; later scans replace the dispatcher list rather than appending to
// it.
func (h *Hook) ScanNow(base, size uint32) {
	h.dispatchers = nil
	h.installed = true

	for off := uint32(0); off+4 < size; off++ {
		addr := base + off
		if !h.matchesAnyAnchor(addr, size-off) {
			continue
		}
		if entry, ok := h.findPrologueBefore(addr); ok {
			h.dispatchers = append(h.dispatchers, Dispatcher{Addr: entry})
		}
	}
}

func (h *Hook) matchesAnyAnchor(addr, remaining uint32) bool {
	for _, a := range anchors {
		if uint32(len(a)) > remaining {
			continue
		}
		if h.readString(addr, len(a)) == a {
			return true
		}
	}
	return false
}

func (h *Hook) readString(addr uint32, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		c, err := h.mem.ReadByte(addr + uint32(i))
		if err != nil {
			return ""
		}
		b.WriteByte(c)
	}
	return b.String()
}

func (h *Hook) readWord(addr uint32) (uint32, bool) {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		b, err := h.mem.ReadByte(addr + i)
		if err != nil {
			return 0, false
		}
		v |= uint32(b) << (8 * i)
	}
	return v, true
}

func (h *Hook) findPrologueBefore(addr uint32) (uint32, bool) {
	const window = 256
	start := uint32(0)
	if addr > window {
		start = addr - window
	}
	for a := addr; ; a -= 4 {
		op, ok := h.readWord(a)
		if ok && op&prologueMask == prologueValue {
			return a, true
		}
		if a < start+4 {
			break
		}
	}
	return 0, false
}

// Regs is the minimal register surface HandleExec needs: the first four
// APCS argument registers plus the stack pointer for overflow args.
type Regs struct {
	R0, R1, R2, R3 uint32
	SP             uint32
}

// HandleExec is called on an exec breakpoint hit. If pc matches a
// registered dispatcher it reconstructs the call's format string and
// arguments and emits an nlog_printf record, returning true so the
// debugger does not also open on this hit. Only %s/%d/%x/%c/%% are
// substituted; a format directive this hook doesn't recognise is copied
// through literally rather than guessed at.
func (h *Hook) HandleExec(pc uint32, regs Regs) bool {
	if !h.enabled {
		return false
	}
	var found bool
	for _, d := range h.dispatchers {
		if d.Addr == pc {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	format := h.readCString(regs.R0, 256)
	args := []uint32{regs.R1, regs.R2, regs.R3}
	// Arguments past the third are read from the stack, one word each.
	for i := 0; i < strings.Count(format, "%"); i++ {
		w, ok := h.readWord(regs.SP + uint32(4*i))
		if !ok {
			break
		}
		args = append(args, w)
	}
	rendered := h.render(format, args)

	if h.ctx.Notify != nil {
		h.ctx.Notify("nlog_printf", rendered)
	}
	return true
}

func (h *Hook) readCString(addr uint32, max int) string {
	var b strings.Builder
	for i := 0; i < max; i++ {
		c, err := h.mem.ReadByte(addr + uint32(i))
		if err != nil || c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

func (h *Hook) render(format string, args []uint32) string {
	var out strings.Builder
	argi := 0
	next := func() uint32 {
		if argi < len(args) {
			v := args[argi]
			argi++
			return v
		}
		return 0
	}
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			out.WriteByte(format[i])
			continue
		}
		i++
		switch format[i] {
		case '%':
			out.WriteByte('%')
		case 'd':
			fmt.Fprintf(&out, "%d", int32(next()))
		case 'x':
			fmt.Fprintf(&out, "%x", next())
		case 'c':
			out.WriteByte(byte(next()))
		case 's':
			out.WriteString(h.readCString(next(), 256))
		default:
			out.WriteByte('%')
			out.WriteByte(format[i])
		}
	}
	return out.String()
}
