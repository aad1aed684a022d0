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

package timer

import (
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
)

// Control bits for an SP804Timer (spec §4.H).
const (
	CtrlEnable      = 0x80
	CtrlPeriodic    = 0x40
	Ctrl32Bit       = 0x02
	CtrlOneShot     = 0x01
	CtrlIntEnable   = 0x20
	ctrlPrescaleLSB = 2
	ctrlPrescaleMask = 0x3 << ctrlPrescaleLSB
)

func prescaleDivisor(control uint32) uint32 {
	switch (control & ctrlPrescaleMask) >> ctrlPrescaleLSB {
	case 0:
		return 1
	case 1:
		return 16
	default:
		// value 2 is reserved; treated as /256 same as 3 (spec §4.H).
		return 256
	}
}

// SP804Timer is one of the two timers in an SP804Bank. Rather than store a
// stale "current value" that drifts out of sync with the scheduler, Value
// is computed live from the slot's remaining ticks whenever it is read
// (spec §4.H "never a stale stored value").
type SP804Timer struct {
	Load             uint32
	backgroundLoad   uint32
	Control          uint32
	interruptPending bool

	slot      scheduler.SlotID
	armedLoad uint32
}

// SP804Bank is one bank of two timers; a SoC builds one SP804Bank per bank.
type SP804Bank struct {
	ctx     *sysctx.SystemContext
	Timers  [2]SP804Timer
	line    int
}

// NewSP804Bank binds both timers in a bank to their own scheduler slots.
func NewSP804Bank(ctx *sysctx.SystemContext, slot0, slot1 scheduler.SlotID, line int) *SP804Bank {
	b := &SP804Bank{ctx: ctx, line: line}
	b.Timers[0].slot = slot0
	b.Timers[1].slot = slot1
	ctx.Scheduler.BindHandler(slot0, b.makeFire(0))
	ctx.Scheduler.BindHandler(slot1, b.makeFire(1))
	return b
}

func (b *SP804Bank) makeFire(idx int) scheduler.HandlerFunc {
	return func(s *scheduler.Scheduler, id scheduler.SlotID) {
		t := &b.Timers[idx]
		t.interruptPending = true
		if t.Control&CtrlIntEnable != 0 && b.ctx.Intc != nil {
			b.ctx.Intc.SetLine(b.line, true)
		}
		if t.Control&CtrlPeriodic != 0 && t.Control&CtrlEnable != 0 {
			b.arm(idx, t.backgroundLoad)
		}
	}
}

func (b *SP804Bank) ticksFor(control, load uint32) uint64 {
	div := prescaleDivisor(control)
	return uint64(load) * uint64(div)
}

func (b *SP804Bank) arm(idx int, load uint32) {
	t := &b.Timers[idx]
	t.armedLoad = load
	ticks := b.ticksFor(t.Control, load)
	b.ctx.Scheduler.EventSet(t.slot, ticks)
}

// WriteLoad implements a write to the Load register: restarts the countdown
// immediately, even if the timer is currently running (spec boundary
// behavior: "write of Load while running restarts countdown").
func (b *SP804Bank) WriteLoad(idx int, v uint32) {
	t := &b.Timers[idx]
	t.Load = v
	t.backgroundLoad = v
	if t.Control&CtrlEnable != 0 {
		b.arm(idx, v)
	}
}

// WriteBackgroundLoad implements a write to the Background-Load register:
// only updates the reload value used at the next periodic boundary, the
// current countdown is undisturbed (spec boundary behavior: "write of
// Background-Load while running defers until reload boundary").
func (b *SP804Bank) WriteBackgroundLoad(idx int, v uint32) {
	b.Timers[idx].backgroundLoad = v
}

// WriteControl updates a timer's control register, arming/disarming the
// scheduler slot as the enable bit transitions.
func (b *SP804Bank) WriteControl(idx int, v uint32) {
	t := &b.Timers[idx]
	was := t.Control&CtrlEnable != 0
	t.Control = v
	now := v&CtrlEnable != 0
	if now && !was {
		b.arm(idx, t.backgroundLoad)
	} else if !now && was {
		b.ctx.Scheduler.EventClear(t.slot)
	}
}

// ReadValue returns the live countdown value: the armed load minus however
// many ticks (converted back to register units) have elapsed since the
// timer was last (re)armed.
func (b *SP804Bank) ReadValue(idx int) uint32 {
	t := &b.Timers[idx]
	if t.Control&CtrlEnable == 0 {
		return t.Load
	}
	remaining := b.ctx.Scheduler.EventTicksRemaining(t.slot)
	div := uint64(prescaleDivisor(t.Control))
	if div == 0 {
		div = 1
	}
	v := remaining / div
	if t.Control&Ctrl32Bit == 0 && v > 0xFFFF {
		v = 0xFFFF
	}
	return uint32(v)
}

// AckInterrupt clears a timer's latched interrupt-pending flag and
// deasserts the shared line if the sibling timer has nothing pending.
func (b *SP804Bank) AckInterrupt(idx int) {
	b.Timers[idx].interruptPending = false
	if !b.Timers[0].interruptPending && !b.Timers[1].interruptPending && b.ctx.Intc != nil {
		b.ctx.Intc.SetLine(b.line, false)
	}
}

// InterruptPending reports a timer's latched interrupt state (RAW status
// register).
func (b *SP804Bank) InterruptPending(idx int) bool {
	return b.Timers[idx].interruptPending
}

// TimerState is one SP804Timer's register state, including the fields not
// otherwise exported, for the snapshot package. The scheduler's own ticks-
// remaining for the timer's slot is snapshotted separately by the caller.
type TimerState struct {
	Load             uint32
	BackgroundLoad   uint32
	Control          uint32
	InterruptPending bool
	ArmedLoad        uint32
}

// Snapshot captures one timer's register state.
func (b *SP804Bank) Snapshot(idx int) TimerState {
	t := &b.Timers[idx]
	return TimerState{
		Load:             t.Load,
		BackgroundLoad:   t.backgroundLoad,
		Control:          t.Control,
		InterruptPending: t.interruptPending,
		ArmedLoad:        t.armedLoad,
	}
}

// Restore replaces one timer's register state. It does not touch the
// scheduler slot; the caller restores that separately once every slot's
// snapshot has been read.
func (b *SP804Bank) Restore(idx int, st TimerState) {
	t := &b.Timers[idx]
	t.Load = st.Load
	t.backgroundLoad = st.BackgroundLoad
	t.Control = st.Control
	t.interruptPending = st.InterruptPending
	t.armedLoad = st.ArmedLoad
}
