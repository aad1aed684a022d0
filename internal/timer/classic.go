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

// Package timer implements both generations of timer bank described in
// spec §4.H: the classic 32kHz-domain paired timers, and the SP804-style
// prescaled banks used on later SoCs.
package timer

import (
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
)

// classicAdvanceTicks is the empirically-chosen per-firing advance rate for
// the classic fast bank (spec §4.H, Open Questions: "empirically chosen; a
// more rigorous derivation ... is desirable").
const classicAdvanceTicks = 703

// ClassicTimer is one of the three timer pairs driven off the 32kHz domain.
type ClassicTimer struct {
	Start    uint32
	Value    uint32
	Divider  uint32
	Control  uint32
	Complete [6]uint32
}

// ClassicBank is a pair of ClassicTimer plus the shared interrupt
// status/mask the pair maintains.
type ClassicBank struct {
	Timers [2]ClassicTimer
	Status uint32
	Mask   uint32
}

// ClassicBanks owns the three pairs and the scheduler slot that advances
// them (703 ticks per firing for the fast bank, 1 for the others).
type ClassicBanks struct {
	ctx   *sysctx.SystemContext
	Banks [3]ClassicBank
	slot  scheduler.SlotID
	line  int
}

// NewClassicBanks binds the three timer pairs to slot and the VIC line to
// assert when a bank's status bits indicate a completion the mask allows.
func NewClassicBanks(ctx *sysctx.SystemContext, slot scheduler.SlotID, line int) *ClassicBanks {
	c := &ClassicBanks{ctx: ctx, slot: slot, line: line}
	ctx.Scheduler.BindHandler(slot, c.fire)
	ctx.Scheduler.EventSet(slot, 1)
	return c
}

// fire advances the running timers of bank 0 (the fast bank) by
// classicAdvanceTicks and those of banks 1 and 2 by one tick, matching the
// CPU-to-32kHz ratio the rest of the system expects, and re-arms itself.
func (c *ClassicBanks) fire(s *scheduler.Scheduler, id scheduler.SlotID) {
	any := false
	for b := range c.Banks {
		bank := &c.Banks[b]
		adv := uint32(1)
		if b == 0 {
			adv = classicAdvanceTicks
		}
		for t := range bank.Timers {
			tm := &bank.Timers[t]
			if tm.Control&0x1 == 0 { // bit0: enable
				continue
			}
			any = true
			if tm.Value <= adv {
				tm.Value = tm.Start
				bank.Status |= 1 << uint(t)
			} else {
				tm.Value -= adv
			}
		}
		if bank.Status&bank.Mask != 0 && c.ctx.Intc != nil {
			c.ctx.Intc.SetLine(c.line, true)
		}
	}
	if any {
		s.EventRepeat(id, 1)
	}
}

// AckStatus clears bits in a bank's status register (write-1-to-clear,
// matching the interrupt controller's own sticky-status idiom).
func (c *ClassicBanks) AckStatus(bank int, bits uint32) {
	c.Banks[bank].Status &^= bits
	if c.ctx.Intc != nil && c.Banks[bank].Status&c.Banks[bank].Mask == 0 {
		c.ctx.Intc.SetLine(c.line, false)
	}
}
