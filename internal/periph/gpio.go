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

// Package periph implements the register-level models for the "Misc
// Peripherals" component: GPIO, watchdog, RTC, SDIO, SPI, LED, serial,
// fastboot RAM/reset-cause, keypad I/O, DMA, LCD registers and backlight
// PWM (spec §3 table row I, §4.I).
package periph

import "github.com/nspiresim/firebirdcore/internal/sysctx"

const numGPIOSections = 8

// GPIOSection is one 8-pin bank: direction/output/edge/mask are guest-set
// registers, Input is driven by whatever is wired to the pins externally,
// Status is the latched edge-detect result, Sticky is the interrupt-enabled
// subset of Status still outstanding.
type GPIOSection struct {
	Direction uint8 // 1 bit = output
	Output    uint8
	Input     uint8
	Edge      uint8 // 1 bit = interrupt on rising edge of that pin
	Mask      uint8 // 1 bit = interrupt enabled for that pin
	Status    uint8
	Sticky    uint8
}

// GPIO is the eight-section register file (spec §4.I "GPIO: eight 8-pin
// sections").
type GPIO struct {
	ctx      *sysctx.SystemContext
	Sections [numGPIOSections]GPIOSection
	line     int
}

// NewGPIO binds a GPIO block to the interrupt line it raises on any
// unmasked sticky bit.
func NewGPIO(ctx *sysctx.SystemContext, line int) *GPIO {
	return &GPIO{ctx: ctx, line: line}
}

// Data blends input on input-configured pins with output on
// output-configured pins (spec §4.I: "the 'data' read blends input on
// input-configured pins with output on output-configured pins").
func (g *GPIO) Data(section int) uint8 {
	s := &g.Sections[section]
	return (s.Output & s.Direction) | (s.Input &^ s.Direction)
}

// WriteOutput sets the output latch for output-configured pins; bits whose
// direction is input are ignored.
func (g *GPIO) WriteOutput(section int, v uint8) {
	s := &g.Sections[section]
	s.Output = v
}

// WriteDirection sets the per-pin input/output direction.
func (g *GPIO) WriteDirection(section int, v uint8) {
	g.Sections[section].Direction = v
}

// SetInput is how the board model (keypad, card-detect, etc.) drives a
// section's input pins. A rising edge on an edge-armed, unmasked pin sets
// Status/Sticky and raises the shared interrupt line.
func (g *GPIO) SetInput(section int, v uint8) {
	s := &g.Sections[section]
	rose := v &^ s.Input
	s.Input = v
	armed := rose & s.Edge & s.Mask
	if armed == 0 {
		return
	}
	s.Status |= armed
	s.Sticky |= armed
	if g.ctx.Intc != nil {
		g.ctx.Intc.SetLine(g.line, true)
	}
}

// AckStatus clears sticky bits (write-1-to-clear) and drops the interrupt
// line once every section is quiet.
func (g *GPIO) AckStatus(section int, bits uint8) {
	s := &g.Sections[section]
	s.Sticky &^= bits
	s.Status &^= bits
	for i := range g.Sections {
		if g.Sections[i].Sticky != 0 {
			return
		}
	}
	if g.ctx.Intc != nil {
		g.ctx.Intc.SetLine(g.line, false)
	}
}
