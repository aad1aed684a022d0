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

package periph

import (
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
)

// WatchdogLockMagic is the value that must be written to the lock register
// to unlock Load/Control (spec §4.I "lock register (magic value
// 0x1ACCE551)").
const WatchdogLockMagic = 0x1ACCE551

const (
	WatchdogCtrlEnable    = 0x1
	WatchdogCtrlIntEnable = 0x2
)

// Watchdog is a 32-bit downcounter that raises an interrupt on its first
// expiry and requests a hard reset if it is not reloaded before the second
// (spec §4.I, spec scenario 3).
type Watchdog struct {
	ctx     *sysctx.SystemContext
	Load    uint32
	Control uint32
	locked  bool
	expired bool

	slot scheduler.SlotID
	line int

	onHardReset func()
}

// NewWatchdog binds a watchdog to its scheduler slot and interrupt line.
// The lock starts engaged, matching reset state.
func NewWatchdog(ctx *sysctx.SystemContext, slot scheduler.SlotID, line int) *Watchdog {
	w := &Watchdog{ctx: ctx, slot: slot, line: line, locked: true}
	ctx.Scheduler.BindHandler(slot, w.fire)
	return w
}

// SetHardResetHook registers a callback run immediately before the watchdog
// requests a hard reset on its second expiry, letting internal/soc record
// the reset cause in the Misc block before the reset actually happens.
func (w *Watchdog) SetHardResetHook(fn func()) {
	w.onHardReset = fn
}

// WriteLock unlocking requires the exact magic value; any other write
// re-engages the lock (spec §4.I).
func (w *Watchdog) WriteLock(v uint32) {
	w.locked = v != WatchdogLockMagic
}

// WriteLoad reloads the countdown and clears the first-expiry latch. Writes
// while locked are ignored.
func (w *Watchdog) WriteLoad(v uint32) {
	if w.locked {
		return
	}
	w.Load = v
	w.expired = false
	if w.Control&WatchdogCtrlEnable != 0 {
		w.ctx.Scheduler.EventSet(w.slot, uint64(v))
	}
}

// WriteControl enables or disables the downcounter. Writes while locked are
// ignored.
func (w *Watchdog) WriteControl(v uint32) {
	if w.locked {
		return
	}
	w.Control = v
	if v&WatchdogCtrlEnable != 0 {
		w.ctx.Scheduler.EventSet(w.slot, uint64(w.Load))
	} else {
		w.ctx.Scheduler.EventClear(w.slot)
	}
}

func (w *Watchdog) fire(s *scheduler.Scheduler, id scheduler.SlotID) {
	if !w.expired {
		w.expired = true
		if w.Control&WatchdogCtrlIntEnable != 0 && w.ctx.Intc != nil {
			w.ctx.Intc.SetLine(w.line, true)
		}
		if w.Control&WatchdogCtrlEnable != 0 {
			s.EventSet(w.slot, uint64(w.Load))
		}
		return
	}
	// second expiry without an intervening reload: hard reset (spec
	// scenario 3).
	if w.onHardReset != nil {
		w.onHardReset()
	}
	w.ctx.RequestResetHard()
}

// Locked and Expired return the watchdog's two latched flags, for snapshot.
func (w *Watchdog) Locked() bool {
	return w.locked
}

func (w *Watchdog) Expired() bool {
	return w.expired
}

// Restore replaces the two latched flags, used when resuming from a
// snapshot.
func (w *Watchdog) Restore(locked, expired bool) {
	w.locked = locked
	w.expired = expired
}
