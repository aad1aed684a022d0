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

// Package intc implements the 32-line vectored interrupt controller of
// spec §3/§4.B, in its "classic priority" guise. The vectored variant for
// the later SoC embeds this type; see vectored.go.
package intc

import (
	"github.com/nspiresim/firebirdcore/internal/curated"
	"github.com/nspiresim/firebirdcore/internal/logger"
)

// Bank distinguishes the IRQ and FIQ mask/priority-limit banks.
type Bank int

const (
	IRQ Bank = iota
	FIQ
	numBanks
)

const numLines = 32

// Controller is the classic-variant 32-line interrupt controller.
type Controller struct {
	active       uint32
	noninverted  uint32
	sticky       uint32
	stickyStatus uint32
	rawStatus    uint32
	status       uint32

	mask         [numBanks]uint32
	priorityLimit [numBanks]uint8
	prevPriLimit  [numBanks]uint8

	priority [numLines]uint8 // 0 highest .. 7 lowest

	// CPUInput is called whenever the CPU's IRQ/FIQ input lines might need
	// to change. The CPU engine (external) is expected to poll or be
	// signalled through this hook; see internal/cpu.Engine.
	CPUInput func(irq, fiq bool)

	// Trace, when non-nil, is called on every state-changing transition
	// (spec §4.B "Tracing: when configured via environment, every
	// transition emits a structured line"). Bound to logger.Log by the SoC
	// when FIREBIRD_TRACE_IRQ is set.
	Trace func(format string, args ...interface{})
}

// New returns a Controller with all priorities defaulted to lowest (7), as
// real VIC hardware resets to.
func New() *Controller {
	c := &Controller{}
	for i := range c.priority {
		c.priority[i] = 7
	}
	return c
}

func (c *Controller) trace(format string, args ...interface{}) {
	if c.Trace != nil {
		c.Trace(format, args...)
	}
}

// recompute refreshes every derived field and reassert/deasserts the CPU's
// IRQ/FIQ input, per §3's update-discipline invariant.
func (c *Controller) recompute() {
	c.rawStatus = c.active ^ ^c.noninverted
	c.status = (c.rawStatus &^ c.sticky) | (c.stickyStatus & c.sticky)

	if c.CPUInput != nil {
		irq := (c.status & c.mask[IRQ] &^ c.mask[FIQ]) != 0
		fiq := (c.status & c.mask[FIQ]) != 0
		c.CPUInput(irq, fiq)
	}
}

// SetLine flips a line's active level (line is the external hardware event
// driving this input, e.g. a timer's completion pulse).
func (c *Controller) SetLine(line int, on bool) error {
	if line < 0 || line >= numLines {
		return curated.Fatalf(curated.InterruptBadLine, line)
	}
	bit := uint32(1) << uint(line)

	oldRaw := c.rawStatus
	if on {
		c.active |= bit
	} else {
		c.active &^= bit
	}
	c.rawStatus = c.active ^ ^c.noninverted

	// rising edges latch into sticky_status for lines marked sticky.
	rising := c.rawStatus &^ oldRaw
	c.stickyStatus |= rising & c.sticky

	c.recompute()
	c.trace("irq: line %d -> %v (status=%#08x)", line, on, c.status)
	return nil
}

// SetMask ORs (set=true) or ANDs-NOT (set=false) bits into a bank's mask.
func (c *Controller) SetMask(bank Bank, bits uint32, set bool) {
	if set {
		c.mask[bank] |= bits
	} else {
		c.mask[bank] &^= bits
	}
	c.recompute()
}

// Mask returns a bank's current mask register.
func (c *Controller) Mask(bank Bank) uint32 {
	return c.mask[bank]
}

// SetNoninverted replaces the polarity mask wholesale.
func (c *Controller) SetNoninverted(v uint32) {
	c.noninverted = v
	c.recompute()
}

// SetSticky replaces the sticky mask wholesale.
func (c *Controller) SetSticky(v uint32) {
	c.sticky = v
	c.recompute()
}

// AckStickyStatus clears the given bits in sticky_status (write-1-to-clear).
func (c *Controller) AckStickyStatus(bits uint32) {
	c.stickyStatus &^= bits
	c.recompute()
}

// SetPriority sets the 3-bit priority (0 highest, 7 lowest) of one line.
func (c *Controller) SetPriority(line int, pri uint8) error {
	if line < 0 || line >= numLines {
		return curated.Fatalf(curated.InterruptBadLine, line)
	}
	c.priority[line] = pri & 0x7
	return nil
}

// SetPriorityLimit sets a bank's priority limit register.
func (c *Controller) SetPriorityLimit(bank Bank, limit uint8) {
	c.priorityLimit[bank] = limit & 0x7
}

// Status returns the effective status word: (raw_status &^ sticky) |
// (sticky_status & sticky).
func (c *Controller) Status() uint32 {
	return c.status
}

// Pending returns the masked-pending word for a bank.
func (c *Controller) Pending(bank Bank) uint32 {
	return c.status & c.mask[bank]
}

// current finds the highest-priority pending line within limit, tie-broken
// by lowest index. Returns (-1, false) if none qualifies.
func (c *Controller) current(bank Bank) (int, bool) {
	pending := c.Pending(bank)
	best := -1
	var bestPri uint8 = 8
	for i := 0; i < numLines; i++ {
		if pending&(1<<uint(i)) == 0 {
			continue
		}
		if c.priority[i] >= c.priorityLimit[bank] {
			continue
		}
		if best == -1 || c.priority[i] < bestPri {
			best = i
			bestPri = c.priority[i]
		}
	}
	return best, best != -1
}

// Current returns the highest-priority pending line within the bank's
// current priority limit, without side effects.
func (c *Controller) Current(bank Bank) (int, bool) {
	return c.current(bank)
}

// Acknowledge behaves like Current, but additionally pushes the bank's
// priority limit onto prev_pri_limit and lowers the limit to the acquired
// line's own priority, so lower/equal priority lines stay masked until
// Release.
func (c *Controller) Acknowledge(bank Bank) (int, bool) {
	line, ok := c.current(bank)
	if ok {
		c.prevPriLimit[bank] = c.priorityLimit[bank]
		c.priorityLimit[bank] = c.priority[line]
	}
	return line, ok
}

// Release restores the priority limit saved by the most recent Acknowledge.
// If no line is currently pending (post-restore), the CPU's corresponding
// input is deasserted. Release always returns the previous priority limit.
func (c *Controller) Release(bank Bank) uint8 {
	prev := c.prevPriLimit[bank]
	c.priorityLimit[bank] = prev

	if _, ok := c.current(bank); !ok {
		c.recompute()
	}
	return prev
}

// Log is a convenience that wires this controller's tracing into the
// package logger with a fixed tag, used by internal/soc wiring.
func (c *Controller) Log() {
	c.Trace = func(format string, args ...interface{}) {
		logger.Log("irq", format, args...)
	}
}

// State is every register value that makes up a Controller, with no
// collaborator references (CPUInput/Trace are rebound fresh on resume, per
// the scheduler's function-pointer rule).
type State struct {
	Active        uint32
	Noninverted   uint32
	Sticky        uint32
	StickyStatus  uint32
	Mask          [numBanks]uint32
	PriorityLimit [numBanks]uint8
	PrevPriLimit  [numBanks]uint8
	Priority      [numLines]uint8
}

// Snapshot captures every register value, for the snapshot package.
func (c *Controller) Snapshot() State {
	return State{
		Active:        c.active,
		Noninverted:   c.noninverted,
		Sticky:        c.sticky,
		StickyStatus:  c.stickyStatus,
		Mask:          c.mask,
		PriorityLimit: c.priorityLimit,
		PrevPriLimit:  c.prevPriLimit,
		Priority:      c.priority,
	}
}

// Restore replaces every register value and recomputes the derived status
// and CPU input lines, used when resuming from a snapshot.
func (c *Controller) Restore(st State) {
	c.active = st.Active
	c.noninverted = st.Noninverted
	c.sticky = st.Sticky
	c.stickyStatus = st.StickyStatus
	c.mask = st.Mask
	c.priorityLimit = st.PriorityLimit
	c.prevPriLimit = st.PrevPriLimit
	c.priority = st.Priority
	c.recompute()
}
