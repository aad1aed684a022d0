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

import "github.com/nspiresim/firebirdcore/internal/sysctx"

const fastbootRAMSize = 0x40

// ResetCause distinguishes why the boot ROM is running (SPEC_FULL.md
// supplemented feature, grounded on the original's misc.c reset-cause
// register; needed by spec scenario 3 to tell a watchdog reset apart from a
// user-requested one).
type ResetCause uint32

const (
	ResetCauseCold ResetCause = iota
	ResetCauseWarm
	ResetCauseWatchdog
)

// Misc is the fastboot-RAM window plus the reset-cause/software-reset
// register pair (spec §8 scenario 2, SPEC_FULL.md §2).
type Misc struct {
	ctx        *sysctx.SystemContext
	FastbootRAM [fastbootRAMSize]byte
	Cause      ResetCause
}

// NewMisc constructs a Misc block starting in the cold-boot state.
func NewMisc(ctx *sysctx.SystemContext) *Misc {
	return &Misc{ctx: ctx, Cause: ResetCauseCold}
}

// ReadFastboot reads a byte out of the fastboot RAM window, which survives
// a warm reset (spec §8 scenario 2 "fastboot-RAM warm-reset test").
func (m *Misc) ReadFastboot(offset uint32) byte {
	if int(offset) >= len(m.FastbootRAM) {
		return 0
	}
	return m.FastbootRAM[offset]
}

// WriteFastboot writes a byte into the fastboot RAM window.
func (m *Misc) WriteFastboot(offset uint32, v byte) {
	if int(offset) >= len(m.FastbootRAM) {
		return
	}
	m.FastbootRAM[offset] = v
}

// TriggerSoftReset is a guest write to the software-reset register: the
// fastboot RAM is preserved, only the reset cause changes to Warm.
func (m *Misc) TriggerSoftReset() {
	m.Cause = ResetCauseWarm
	m.ctx.RequestResetSoft()
}

// NoteWatchdogReset is called by the watchdog model immediately before it
// requests a hard reset, so the next boot's reset-cause read reports
// Watchdog rather than Cold (spec scenario 3: "distinguishing a
// watchdog-induced reset from a user-requested one").
func (m *Misc) NoteWatchdogReset() {
	m.Cause = ResetCauseWatchdog
}
