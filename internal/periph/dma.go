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
	"github.com/nspiresim/firebirdcore/internal/logger"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
)

const numDMAChannels = 8

// DMA channel control bits.
const (
	DMACtrlEnable    = 0x1
	DMACtrlIntEnable = 0x2
)

// Memory is the byte-addressed surface a DMA channel copies through;
// internal/soc wires this to the shared memdispatch.Dispatch so a DMA
// transfer goes through the same handler fabric a CPU load/store would.
type Memory interface {
	ReadByte(addr uint32) (uint8, error)
	WriteByte(addr uint32, v uint8) error
}

// DMAChannel is one source/destination/count/control register set.
type DMAChannel struct {
	Src     uint32
	Dst     uint32
	Count   uint32
	Control uint32
	Done    bool
}

// DMA is the fixed bank of channels (spec §3 table row I "DMA"; §9
// "Unsupported peripheral state...DMA channel stops").
type DMA struct {
	ctx      *sysctx.SystemContext
	mem      Memory
	Channels [numDMAChannels]DMAChannel
	line     int
}

// NewDMA binds a DMA controller to the memory surface it copies through and
// the interrupt line it raises on channel completion.
func NewDMA(ctx *sysctx.SystemContext, mem Memory, line int) *DMA {
	return &DMA{ctx: ctx, mem: mem, line: line}
}

// WriteControl starts (or stops) a channel. A channel whose Count is zero,
// or whose memory surface rejects the transfer, stops immediately and logs
// a warning rather than panicking (spec §9 "the peripheral falls back to a
// safe default (e.g., DMA channel stops...)").
func (d *DMA) WriteControl(n int, v uint32) {
	ch := &d.Channels[n]
	ch.Control = v
	if v&DMACtrlEnable == 0 {
		return
	}
	if ch.Count == 0 {
		logger.Log("periph", "dma channel %d started with zero count, stopping", n)
		ch.Control &^= DMACtrlEnable
		return
	}
	for i := uint32(0); i < ch.Count; i++ {
		b, err := d.mem.ReadByte(ch.Src + i)
		if err != nil {
			logger.Log("periph", "dma channel %d read fault at %#08x, stopping: %v", n, ch.Src+i, err)
			ch.Control &^= DMACtrlEnable
			return
		}
		if err := d.mem.WriteByte(ch.Dst+i, b); err != nil {
			logger.Log("periph", "dma channel %d write fault at %#08x, stopping: %v", n, ch.Dst+i, err)
			ch.Control &^= DMACtrlEnable
			return
		}
	}
	ch.Done = true
	ch.Control &^= DMACtrlEnable
	if v&DMACtrlIntEnable != 0 && d.ctx.Intc != nil {
		d.ctx.Intc.SetLine(d.line, true)
	}
}

// AckChannel clears a channel's completion latch.
func (d *DMA) AckChannel(n int) {
	d.Channels[n].Done = false
}
