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

package adc

import (
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
)

const (
	numFIFOSlots    = 8
	numControlChans = 7 // (0x1DF-0x100+1)/32

	offsetReloadCounter  = 0x110
	offsetBackgroundStep = 0x118
)

// controlBlock is one 32-byte per-channel control/status stride at
// 0x100..0x1DF.
type controlBlock struct {
	control   uint32
	status    uint32
	completed bool
}

// FIFO is the later SoC's flat 4KB register window (spec §4.G "Later
// SoC"): an 8-entry sample bank refreshed from the power model on every
// read, 7 per-channel control blocks, and a periodic background step that
// walks started channels.
type FIFO struct {
	ctx     *sysctx.SystemContext
	sampler Sampler
	slot    scheduler.SlotID
	line    int

	Slots    [numFIFOSlots]uint32
	Channels [numControlChans]controlBlock

	BackgroundStepEnable bool
	ReloadCounter        uint32
}

// NewFIFO constructs the later-SoC ADC bound to the background-step
// scheduler slot and the dedicated ADC VIC line.
func NewFIFO(ctx *sysctx.SystemContext, sampler Sampler, slot scheduler.SlotID, line int) *FIFO {
	f := &FIFO{ctx: ctx, sampler: sampler, slot: slot, line: line}
	ctx.Scheduler.BindHandler(slot, f.step)
	return f
}

// RefreshBank recomputes the 8-entry sample bank from the power model. It
// is called on every read of the bank; reads of PMU registers do not call
// it.
func (f *FIFO) RefreshBank() {
	if f.sampler == nil {
		return
	}
	for i := range f.Slots {
		f.Slots[i] = uint32(f.sampler.ReadChannel(i))
	}
}

// StartConversion begins a conversion on channel idx via its control
// register write.
func (f *FIFO) StartConversion(idx int) {
	if idx < 0 || idx >= len(f.Channels) {
		return
	}
	f.Channels[idx].control |= 0x1
	f.Channels[idx].completed = false
	if !f.backgroundStepArmed() && f.BackgroundStepEnable {
		f.arm()
	}
}

func (f *FIFO) backgroundStepArmed() bool {
	return f.ctx.Scheduler.Active(f.slot)
}

func (f *FIFO) arm() {
	ticks := uint64(f.ReloadCounter)
	if ticks == 0 {
		ticks = 1
	}
	f.ctx.Scheduler.EventSet(f.slot, ticks)
}

// SetBackgroundStepEnable toggles the control bit at 0x118.
func (f *FIFO) SetBackgroundStepEnable(on bool) {
	f.BackgroundStepEnable = on
	if on {
		f.arm()
	} else {
		f.ctx.Scheduler.EventClear(f.slot)
	}
}

// step walks every started (not yet completed) channel, latches completion
// bits, and raises the dedicated ADC VIC line if any channel finished. It
// sets no ADC-pending bit in the PMU.
func (f *FIFO) step(s *scheduler.Scheduler, id scheduler.SlotID) {
	any := false
	for i := range f.Channels {
		cb := &f.Channels[i]
		if cb.control&0x1 != 0 && !cb.completed {
			var v uint16
			if f.sampler != nil {
				v = f.sampler.ReadChannel(i % numFIFOSlots)
			}
			cb.status = uint32(v) | 0x80000000 // bit31: done
			cb.completed = true
			any = true
		}
	}
	if any && f.ctx.Intc != nil {
		f.ctx.Intc.SetLine(f.line, true)
	}
	if f.BackgroundStepEnable {
		f.arm()
	}
}

// ChannelStatus returns a channel's status register (completion bit plus
// last sampled value).
func (f *FIFO) ChannelStatus(idx int) uint32 {
	if idx < 0 || idx >= len(f.Channels) {
		return 0
	}
	return f.Channels[idx].status
}

// AckChannel clears a channel's completed flag/status so it can be
// restarted.
func (f *FIFO) AckChannel(idx int) {
	if idx < 0 || idx >= len(f.Channels) {
		return
	}
	f.Channels[idx].completed = false
	f.Channels[idx].status = 0
	f.Channels[idx].control &^= 0x1
}

// ChannelState is one control block's full register state, for the
// snapshot package.
type ChannelState struct {
	Control   uint32
	Status    uint32
	Completed bool
}

// ChannelSnapshot captures one channel's control block.
func (f *FIFO) ChannelSnapshot(idx int) ChannelState {
	cb := &f.Channels[idx]
	return ChannelState{Control: cb.control, Status: cb.status, Completed: cb.completed}
}

// ChannelRestore replaces one channel's control block, used when resuming
// from a snapshot. It does not touch the scheduler slot; the caller
// restores that separately.
func (f *FIFO) ChannelRestore(idx int, st ChannelState) {
	cb := &f.Channels[idx]
	cb.control = st.Control
	cb.status = st.Status
	cb.completed = st.Completed
}

// NumChannels returns the fixed control-block count, for snapshot loops.
func (f *FIFO) NumChannels() int {
	return len(f.Channels)
}
