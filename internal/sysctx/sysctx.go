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

// Package sysctx bundles the handful of values every peripheral needs a
// reference to: the scheduler, the interrupt controller(s), the clock-rate
// table, the startup configuration, and the notification hook used to tell
// the front end something happened. This replaces the cyclic
// peripheral-to-peripheral/global-state pattern the original implementation
// relies on (spec §9 "Cyclic references between peripherals").
package sysctx

import (
	"math/rand"

	"github.com/nspiresim/firebirdcore/internal/clockdomain"
	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/scheduler"
)

// Notify is how a peripheral tells the front end something happened,
// without depending on the frontend package directly (avoids an import
// cycle; internal/soc wires the real callback in).
type Notify func(event string, args ...interface{})

// SystemContext is passed by reference into every peripheral constructor.
// Peripherals keep only their own state; anything shared lives here.
type SystemContext struct {
	Scheduler *scheduler.Scheduler
	Intc      *intc.Controller
	Vectored  *intc.Vectored
	Rates     *clockdomain.Rates
	Config    config.Config
	Notify    Notify
	Rand      *rand.Rand

	// Sleep is set by the PMU's sleep write and polled by the CPU engine
	// at instruction-batch boundaries (spec §4.F, §5).
	Sleep bool
}

// New builds a SystemContext around an already-constructed scheduler and
// interrupt controller. Rand is seeded from a fixed default source; callers
// running reproducible tests should replace it.
func New(sched *scheduler.Scheduler, ic *intc.Controller, rates *clockdomain.Rates, cfg config.Config) *SystemContext {
	return &SystemContext{
		Scheduler: sched,
		Intc:      ic,
		Rates:     rates,
		Config:    cfg,
		Rand:      rand.New(rand.NewSource(1)),
	}
}

func (s *SystemContext) notify(event string, args ...interface{}) {
	if s.Notify != nil {
		s.Notify(event, args...)
	}
}

// RequestResetHard asks the front end / CPU loop to perform a cold reset,
// e.g. on the second watchdog expiry (spec scenario 3).
func (s *SystemContext) RequestResetHard() {
	s.notify("reset_hard")
}

// RequestResetSoft asks for a warm reset (misc-reset register write).
func (s *SystemContext) RequestResetSoft() {
	s.notify("reset_soft")
}

// EnterSleep sets the CPU-polled sleep flag (spec §4.F "Sleep").
func (s *SystemContext) EnterSleep() {
	s.Sleep = true
}

// WakeUp clears the sleep flag (spec §4.F "Wake").
func (s *SystemContext) WakeUp() {
	s.Sleep = false
}
