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

// LCD is the register-level front-end of the display controller: the
// framebuffer pointer/format/timing registers the guest programs, plus the
// contrast register the backlight PWM mirrors into (spec §4.I). Pixel
// readout for the lcd_frame_ready callback is internal/soc's job, not
// this package's; LCD only owns the guest-visible registers.
type LCD struct {
	ctx          *sysctx.SystemContext
	FramebufferAddr uint32
	Format       uint32
	Timing       uint32
	Contrast     uint32
}

// NewLCD returns an LCD register block with no framebuffer programmed yet.
func NewLCD(ctx *sysctx.SystemContext) *LCD {
	return &LCD{ctx: ctx}
}

// WriteFramebufferAddr programs the base address the display controller
// scans out from.
func (l *LCD) WriteFramebufferAddr(v uint32) {
	l.FramebufferAddr = v
}

// Backlight is the PWM duty-cycle register. Its duty cycle mirrors into the
// LCD contrast register unless a GUI override is active (spec §4.I "The
// backlight PWM mirrors its duty cycle to the LCD-contrast register unless
// a GUI override is active").
type Backlight struct {
	lcd         *LCD
	Duty        uint32
	overrideSet bool
}

// NewBacklight binds a Backlight PWM to the LCD register block it mirrors
// into.
func NewBacklight(lcd *LCD) *Backlight {
	return &Backlight{lcd: lcd}
}

// WriteDuty sets the PWM duty cycle and, absent a GUI contrast override,
// mirrors it into the LCD's contrast register.
func (b *Backlight) WriteDuty(v uint32) {
	b.Duty = v
	if !b.overrideSet {
		b.lcd.Contrast = v
	}
}

// SetContrastOverride lets the GUI pin the LCD contrast independent of the
// backlight duty cycle (e.g. a user-facing contrast slider). Passing ok=
// false releases the override and re-mirrors the current duty cycle.
func (b *Backlight) SetContrastOverride(v uint32, ok bool) {
	b.overrideSet = ok
	if ok {
		b.lcd.Contrast = v
	} else {
		b.lcd.Contrast = b.Duty
	}
}

// OverrideSet reports whether a GUI contrast override is active, for
// snapshot.
func (b *Backlight) OverrideSet() bool {
	return b.overrideSet
}

// RestoreOverride replaces the override flag directly, used when resuming
// from a snapshot (unlike SetContrastOverride, this does not touch the
// LCD's contrast register).
func (b *Backlight) RestoreOverride(v bool) {
	b.overrideSet = v
}
