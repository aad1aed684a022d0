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

package cpu

import (
	"sync/atomic"
	"time"

	"github.com/nspiresim/firebirdcore/internal/frontend"
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
)

// Loop drives Engine against a Scheduler the way spec §5 describes: the
// scheduler hands out a CPU-tick budget, the engine runs a batch and
// reports how much it actually consumed, and that delta is fed straight
// back into the scheduler. Pause/resume and the exiting flag are plain
// atomics polled at batch boundaries, matching the "short signal fields
// polled at instruction-batch boundaries" cross-thread contract; this
// package does not itself spawn a goroutine; the caller runs Run on
// whatever thread it likes, the same way internal/scheduler is driven
// synchronously by its caller rather than owning a goroutine of its own.
type Loop struct {
	engine Engine
	sched  *scheduler.Scheduler
	ctx    *sysctx.SystemContext

	paused  atomic.Bool
	exiting atomic.Bool
	state   atomic.Int32

	hook Hook
}

// Hook is invoked once per batch, immediately before Engine.Run, so a
// driver can poll non-blocking I/O (a GDB stub's listening socket) and
// check breakpoint tables against the engine's current PC. A hook that
// calls Pause(true) stops the batch about to start: Run re-checks the pause
// flag right after the hook returns. There is no decoder here to stop a
// batch partway through, so breakpoint granularity is exactly the Engine's
// own batch size.
type Hook func()

// SetHook installs the per-batch hook. Passing nil clears it.
func (l *Loop) SetHook(h Hook) { l.hook = h }

// NewLoop binds a Loop to the engine, scheduler, and shared context it
// drives. The returned Loop starts in frontend.Initialising.
func NewLoop(engine Engine, sched *scheduler.Scheduler, ctx *sysctx.SystemContext) *Loop {
	l := &Loop{engine: engine, sched: sched, ctx: ctx}
	l.state.Store(int32(frontend.Initialising))
	return l
}

// State reports the loop's current lifecycle state.
func (l *Loop) State() frontend.State {
	return frontend.State(l.state.Load())
}

// Pause sets or releases the pause flag, polled at the top of every batch.
func (l *Loop) Pause(set bool) {
	l.paused.Store(set)
	if set {
		l.state.Store(int32(frontend.Paused))
	} else if l.State() == frontend.Paused {
		l.state.Store(int32(frontend.Running))
	}
}

// RequestStop sets the exiting flag; Run returns at the next batch
// boundary. Run joining the caller's own goroutine with a 200ms deadline
// (spec §5 "emu_stop...terminate it if exceeded") is the caller's
// responsibility, since Loop never owns the goroutine Run executes on.
func (l *Loop) RequestStop() {
	l.exiting.Store(true)
}

// Run executes batches until RequestStop is called or the engine returns an
// error. While paused it polls at a fixed interval rather than spinning.
func (l *Loop) Run(reset bool) error {
	if reset {
		l.engine.Reset(false)
	}
	l.state.Store(int32(frontend.Running))

	var pendingDelta uint64
	for !l.exiting.Load() {
		if l.paused.Load() {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if l.ctx.Sleep {
			time.Sleep(time.Millisecond)
			continue
		}
		if l.hook != nil {
			l.hook()
			if l.paused.Load() {
				continue
			}
		}

		budget := l.sched.ProcessPending(pendingDelta)
		delta, err := l.engine.Run(budget)
		if err != nil {
			l.state.Store(int32(frontend.Ending))
			return err
		}
		pendingDelta = delta
	}

	l.state.Store(int32(frontend.Ending))
	return nil
}
