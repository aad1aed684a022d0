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

// Package adc implements the classic 7-channel direct-read converter and
// the later SoC's FIFO/periodic-sampling window (spec §4.G).
package adc

import "github.com/nspiresim/firebirdcore/internal/sysctx"

const numClassicChannels = 7

// channelKeypadType is the one classic channel wired to the keypad-type
// code rather than a battery-level reading (spec §4.G).
const channelKeypadType = 3

// ClassicChannel mirrors one of the seven register sets.
type ClassicChannel struct {
	Unknown uint32
	Count   uint32
	Address uint32
	Value   uint32
	Speed   uint32
}

// Sampler supplies synthesized channel readings; internal/soc wires this to
// the power model (battery level) and a keypad-type override.
type Sampler interface {
	ReadChannel(n int) uint16
}

// Classic is the seven-channel direct-read ADC.
type Classic struct {
	ctx      *sysctx.SystemContext
	Channels [numClassicChannels]ClassicChannel
	Status   uint32 // per-channel "done" bits
	sampler  Sampler
}

// NewClassic binds a Classic ADC to its sample source.
func NewClassic(ctx *sysctx.SystemContext, sampler Sampler) *Classic {
	return &Classic{ctx: ctx, sampler: sampler}
}

// WriteCommand latches a synthesized sample for channel n into Value and
// sets its "done" bit (spec §4.G "Classic"). Channel 3 always reads the
// keypad-type code; user overrides for other channels are honored by the
// Sampler implementation.
func (c *Classic) WriteCommand(n int) {
	if n < 0 || n >= numClassicChannels {
		return
	}
	var v uint16
	if c.sampler != nil {
		v = c.sampler.ReadChannel(n)
	}
	c.Channels[n].Value = uint32(v)
	c.Status |= 1 << uint(n)
}

// AckStatus clears done bits (write-1-to-clear).
func (c *Classic) AckStatus(bits uint32) {
	c.Status &^= bits
}
