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

const (
	serialStatusTxReady = 0x1
	serialStatusRxReady = 0x2
)

// Serial is the guest UART register model backing the external
// putchar(c)/getchar() collaborator (spec §3 "debugger input prompts",
// glossary "putchar(c) / getchar() -> int (guest serial)").
type Serial struct {
	ctx   *sysctx.SystemContext
	rx    []byte
	line  int
}

// NewSerial binds a Serial port to the interrupt line it raises whenever
// received bytes are pending.
func NewSerial(ctx *sysctx.SystemContext, line int) *Serial {
	return &Serial{ctx: ctx, line: line}
}

// WriteData transmits one byte to the front end via the shared Notify hook
// (spec glossary "putchar(c)").
func (s *Serial) WriteData(b byte) {
	if s.ctx.Notify != nil {
		s.ctx.Notify("serial_putchar", b)
	}
}

// Push is how the front end delivers a received byte (spec glossary
// "getchar() -> int").
func (s *Serial) Push(b byte) {
	s.rx = append(s.rx, b)
	if s.ctx.Intc != nil {
		s.ctx.Intc.SetLine(s.line, true)
	}
}

// ReadData pops the oldest received byte, or -1 if none is pending.
func (s *Serial) ReadData() int {
	if len(s.rx) == 0 {
		return -1
	}
	b := s.rx[0]
	s.rx = s.rx[1:]
	if len(s.rx) == 0 && s.ctx.Intc != nil {
		s.ctx.Intc.SetLine(s.line, false)
	}
	return int(b)
}

// Status reports tx-ready (always, this model has no transmit backpressure)
// and rx-ready bits.
func (s *Serial) Status() uint32 {
	st := uint32(serialStatusTxReady)
	if len(s.rx) > 0 {
		st |= serialStatusRxReady
	}
	return st
}

// PendingRx returns the bytes still queued for ReadData, for snapshot.
func (s *Serial) PendingRx() []byte {
	return s.rx
}

// RestorePendingRx replaces the queued receive bytes and re-asserts the
// interrupt line to match, used when resuming from a snapshot.
func (s *Serial) RestorePendingRx(rx []byte) {
	s.rx = rx
	if s.ctx.Intc != nil {
		s.ctx.Intc.SetLine(s.line, len(s.rx) > 0)
	}
}
