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

package nand

import "github.com/nspiresim/firebirdcore/internal/logger"

// Parallel command bytes recognised by the classic command/address state
// machine (spec §4.E "Classic parallel path").
const (
	CmdReadPage      = 0x00
	CmdReadOOBSmall  = 0x01
	CmdReadSpare     = 0x50
	CmdProgramBegin  = 0x80
	CmdProgramExec   = 0x10
	CmdEraseBegin    = 0x60
	CmdEraseConfirm  = 0xD0
	CmdReset         = 0xFF
	CmdStatus        = 0x70
	CmdReadID        = 0x90
)

// ParallelController drives a Chip through the classic command/address/
// data phases.
type ParallelController struct {
	chip *Chip

	pendingErase bool
	status       uint8
}

// NewParallelController binds a controller to a chip.
func NewParallelController(chip *Chip) *ParallelController {
	return &ParallelController{chip: chip, status: 0xC0}
}

func (p *ParallelController) smallPage() bool {
	return p.chip.Metrics.PageSize == 512
}

func (p *ParallelController) addrByteCount() int {
	if p.smallPage() {
		return 1
	}
	return 2
}

// Command handles a write to the command latch register.
func (p *ParallelController) Command(cmd uint8) {
	c := p.chip
	switch cmd {
	case CmdReadPage:
		c.op, c.area, c.addrBytes = cmd, 0, 0
	case CmdReadOOBSmall:
		c.op, c.area, c.addrBytes = cmd, 1, 0
	case CmdReadSpare:
		c.op, c.area, c.addrBytes = cmd, 1, 0
	case CmdProgramBegin:
		c.op, c.area, c.addrBytes = cmd, 0, 0
		c.pageBuffer = make([]byte, c.Metrics.RawPageSize())
		for i := range c.pageBuffer {
			c.pageBuffer[i] = 0xFF
		}
	case CmdProgramExec:
		err := c.ProgramRaw(c.row, 0, c.pageBuffer)
		if err != nil {
			logger.Log("nand", "program execute failed: %v", err)
		}
	case CmdEraseBegin:
		p.pendingErase = true
		c.op, c.addrBytes = cmd, 0
	case CmdEraseConfirm:
		if p.pendingErase {
			if err := c.EraseBlock(c.row); err != nil {
				logger.Log("nand", "erase confirm failed: %v", err)
			}
			p.pendingErase = false
		}
	case CmdReset:
		c.op, c.row, c.column, c.addrBytes = 0, 0, 0, 0
		p.pendingErase = false
	case CmdStatus:
		c.op = cmd
	case CmdReadID:
		c.op, c.addrBytes = cmd, 0
	default:
		logger.Log("nand", "unsupported nand command byte: %#02x", cmd)
	}
}

// Address feeds one address-phase byte. Column bytes come first
// (addrByteCount of them), then row bytes.
func (p *ParallelController) Address(b uint8) {
	c := p.chip
	n := p.addrByteCount()
	if c.addrBytes < n {
		c.column |= uint32(b) << uint(8*c.addrBytes)
	} else {
		c.row |= uint32(b) << uint(8*(c.addrBytes-n))
	}
	c.addrBytes++
}

// ReadByte returns the next data-phase byte for the currently selected
// operation (read page/OOB/spare/ID/status).
func (p *ParallelController) ReadByte() uint8 {
	c := p.chip
	switch c.op {
	case CmdStatus:
		return p.status
	case CmdReadID:
		ids := []uint8{c.Metrics.ManufacturerID, c.Metrics.DeviceID, 0x00, 0x15}
		idx := int(c.column)
		c.column++
		if idx < len(ids) {
			return ids[idx]
		}
		return 0
	case CmdReadPage, CmdReadOOBSmall, CmdReadSpare:
		off := c.column
		if c.area == 1 {
			off += c.Metrics.PageSize
		}
		buf := c.ReadRaw(c.row, off, 1)
		c.column++
		return buf[0]
	default:
		logger.Log("nand", "read byte with no active read operation")
		return 0xFF
	}
}

// WriteByte feeds one data-phase byte into the pending program buffer.
func (p *ParallelController) WriteByte(b uint8) {
	c := p.chip
	if c.op != CmdProgramBegin || c.pageBuffer == nil {
		logger.Log("nand", "data byte written with no program in progress")
		return
	}
	if int(c.column) >= len(c.pageBuffer) {
		logger.Log("nand", "program data past page size, dropped")
		return
	}
	c.pageBuffer[c.column] = b
	c.column++
}
